package audio

import (
	"fmt"
	"math"
	"time"
)

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	// EnergyThreshold is the minimum RMS energy of a sub-frame to count as speech
	// Typical values: 0.001 to 0.1 (lower = more sensitive)
	EnergyThreshold float64

	// SubFrame is the duration of each classified sub-frame
	SubFrame time.Duration
}

// DefaultVADConfig returns a default VAD configuration
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 0.01,                  // Moderate sensitivity
		SubFrame:        20 * time.Millisecond, // 320 samples at 16kHz
	}
}

// VAD (Voice Activity Detector) classifies audio as speech or silence
type VAD struct {
	config        VADConfig
	subFrameLen   int
	speechBlocks  uint64
	silenceBlocks uint64
}

// NewVAD creates a voice activity detector for the given sample rate
func NewVAD(config VADConfig, sampleRate uint32) (*VAD, error) {
	n := DurationSamples(config.SubFrame, sampleRate)
	if n <= 0 {
		return nil, fmt.Errorf("vad sub-frame %s is shorter than one sample", config.SubFrame)
	}
	return &VAD{
		config:      config,
		subFrameLen: n,
	}, nil
}

// IsSpeech classifies a single sub-frame
func (v *VAD) IsSpeech(subFrame []int16) bool {
	return calculateEnergy(subFrame) > v.config.EnergyThreshold
}

// ClassifyBlock splits the block into whole sub-frames and reports speech
// if any of them is speech. Samples left over after the last whole
// sub-frame are not classified.
func (v *VAD) ClassifyBlock(samples []int16) bool {
	speech := false
	for off := 0; off+v.subFrameLen <= len(samples); off += v.subFrameLen {
		if v.IsSpeech(samples[off : off+v.subFrameLen]) {
			speech = true
			break
		}
	}

	if speech {
		v.speechBlocks++
	} else {
		v.silenceBlocks++
	}
	return speech
}

// Counts returns how many blocks were classified as speech and silence
func (v *VAD) Counts() (speech, silence uint64) {
	return v.speechBlocks, v.silenceBlocks
}

// Reset clears the counters
func (v *VAD) Reset() {
	v.speechBlocks = 0
	v.silenceBlocks = 0
}

// calculateEnergy calculates the RMS energy of samples normalized to [-1, 1]
func calculateEnergy(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		normalized := float64(s) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(len(samples)))
}
