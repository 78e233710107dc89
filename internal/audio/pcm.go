package audio

import (
	"encoding/binary"
	"time"
)

// Block is one hardware callback's worth of mono PCM16 samples.
// A Block is never modified after the capture callback produces it, so
// consumers may share it without copying.
type Block struct {
	Samples   []int16
	Timestamp time.Time
}

// Len returns the number of samples in the block
func (b Block) Len() int {
	return len(b.Samples)
}

// Duration returns how much audio the block holds at the given sample rate
func (b Block) Duration(sampleRate uint32) time.Duration {
	return SamplesDuration(len(b.Samples), sampleRate)
}

// SamplesDuration converts a sample count to a duration
func SamplesDuration(n int, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(sampleRate))
}

// DurationSamples converts a duration to a sample count, rounding down
func DurationSamples(d time.Duration, sampleRate uint32) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// BytesToSamples decodes little-endian 16-bit PCM. A trailing odd byte is ignored.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// SamplesToBytes encodes samples as little-endian 16-bit PCM
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// Concat joins the samples of consecutive blocks into one contiguous buffer
func Concat(blocks []Block) []int16 {
	total := 0
	for _, b := range blocks {
		total += len(b.Samples)
	}

	out := make([]int16, 0, total)
	for _, b := range blocks {
		out = append(out, b.Samples...)
	}
	return out
}
