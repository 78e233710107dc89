package audio

import (
	"errors"
	"fmt"
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz)
	// 16000 is what the speech models expect
	SampleRate uint32

	// Channels is the number of audio channels
	// Only mono (1) is supported
	Channels uint32

	// BlockSize is the number of frames delivered per callback
	// 1024 frames at 16kHz is 64ms
	BlockSize uint32

	// TelemetryQueue is the capacity of the block queue feeding telemetry.
	// When the consumer lags the oldest block is dropped.
	TelemetryQueue int

	// DeviceID is the audio device identifier
	// Empty string = use default device
	DeviceID string
}

// DefaultConfig returns the fixed capture profile used for dictation
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:     16000, // 16kHz is optimal for most STT engines
		Channels:       1,     // Mono
		BlockSize:      1024,  // 64ms at 16kHz
		TelemetryQueue: 32,    // ~2 seconds of blocks
		DeviceID:       "",    // Default device
	}
}

// Validate checks that the configuration describes the supported PCM profile
func (c CaptureConfig) Validate() error {
	if c.SampleRate == 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if c.Channels != 1 {
		return fmt.Errorf("only mono capture is supported, got %d channels", c.Channels)
	}
	if c.BlockSize == 0 {
		return fmt.Errorf("block size must be positive")
	}
	if c.TelemetryQueue <= 0 {
		return fmt.Errorf("telemetry queue must be positive")
	}
	return nil
}

// DeviceCallbacks are invoked by a Device from its real-time audio thread
type DeviceCallbacks struct {
	// Data receives little-endian PCM16 bytes for frameCount frames.
	// The slice is only valid for the duration of the call.
	Data func(data []byte, frameCount uint32)

	// Stopped is called if the device stops without being asked to
	Stopped func()
}

// Device is an audio input device. Open starts delivering callbacks and
// Close stops them; after Close returns no callback is running or will run.
type Device interface {
	Open(config CaptureConfig, callbacks DeviceCallbacks) error
	Close() error
}

// ErrNoDevice is returned when no capture device can be found
var ErrNoDevice = errors.New("no capture devices found")

// ErrQueueOverflow marks telemetry data dropped because a consumer lagged
var ErrQueueOverflow = errors.New("telemetry queue overflow")

// DeviceError reports an input device that is unavailable or was lost.
// It is fatal to the session.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
