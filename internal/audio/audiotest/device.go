// Package audiotest provides an in-memory audio device and signal helpers for tests.
package audiotest

import (
	"errors"
	"math"
	"sync"

	"github.com/emmett/voxstream/internal/audio"
)

// Device is an audio.Device driven by the test instead of hardware.
// Feed plays the role of the real-time callback thread.
type Device struct {
	mu        sync.Mutex
	callbacks audio.DeviceCallbacks
	open      bool
	config    audio.CaptureConfig

	// OpenErr, when set, is returned by Open
	OpenErr error
	// CloseErr, when set, is returned by Close
	CloseErr error

	Opens  int
	Closes int
}

// NewDevice creates a closed device
func NewDevice() *Device {
	return &Device{}
}

// Open implements audio.Device
func (d *Device) Open(config audio.CaptureConfig, callbacks audio.DeviceCallbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.OpenErr != nil {
		return d.OpenErr
	}
	if d.open {
		return errors.New("device already open")
	}
	d.open = true
	d.config = config
	d.callbacks = callbacks
	d.Opens++
	return nil
}

// Close implements audio.Device. It waits for an in-flight Feed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Closes++
	if d.CloseErr != nil {
		return d.CloseErr
	}
	d.open = false
	return nil
}

// Feed delivers samples through the data callback, as the hardware would.
// It reports false if the device is closed.
func (d *Device) Feed(samples []int16) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || d.callbacks.Data == nil {
		return false
	}
	d.callbacks.Data(audio.SamplesToBytes(samples), uint32(len(samples)))
	return true
}

// FeedBlocks delivers n blocks of the configured block size produced by gen
func (d *Device) FeedBlocks(n int, gen func(i int, size int) []int16) int {
	d.mu.Lock()
	size := int(d.config.BlockSize)
	d.mu.Unlock()

	fed := 0
	for i := 0; i < n; i++ {
		if !d.Feed(gen(i, size)) {
			break
		}
		fed++
	}
	return fed
}

// Lose simulates the device disappearing
func (d *Device) Lose() {
	d.mu.Lock()
	stopped := d.callbacks.Stopped
	d.mu.Unlock()

	if stopped != nil {
		stopped()
	}
}

// IsOpen reports whether the device is open
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Tone returns n samples of a sine wave with amplitude in [0, 1]
func Tone(freq, amplitude float64, n int, sampleRate uint32) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		samples[i] = int16(v * 32767)
	}
	return samples
}

// Silence returns n zero samples
func Silence(n int) []int16 {
	return make([]int16, n)
}

// Ramp returns n samples whose values encode their position, starting at start.
// Useful for checking that audio is neither lost nor duplicated.
func Ramp(start, n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((start + i) % 32768)
	}
	return samples
}
