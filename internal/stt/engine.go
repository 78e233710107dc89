package stt

import (
	"context"
	"fmt"
)

// Transcriber is the speech-to-text collaborator. Implementations must be
// safe for concurrent use: one call per chunk may be in flight at once.
type Transcriber interface {
	// Transcribe converts mono PCM16 samples to text. An empty string means
	// nothing was recognized.
	Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error)
}

// TranscriberFunc adapts a plain function to the Transcriber interface
type TranscriberFunc func(ctx context.Context, samples []int16, sampleRate int) (string, error)

// Transcribe calls f
func (f TranscriberFunc) Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	return f(ctx, samples, sampleRate)
}

// Config holds configuration for the STT engine
type Config struct {
	// ModelPath is the path to the STT model directory
	ModelPath string

	// SampleRate is the audio sample rate in Hz
	SampleRate int
}

// Engine is a Transcriber that owns a loaded model
type Engine interface {
	Transcriber

	// Initialize loads the model
	Initialize(config Config) error

	// Close releases resources
	Close() error

	// IsInitialized returns true if the engine is initialized
	IsInitialized() bool
}

// DefaultConfig returns a default STT configuration
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:  modelPath,
		SampleRate: 16000,
	}
}

// TranscriptionError reports that one segment could not be transcribed.
// Sequence is the chunk sequence number, or -1 for the stop-time tail.
type TranscriptionError struct {
	Sequence int
	Err      error
}

func (e *TranscriptionError) Error() string {
	if e.Sequence < 0 {
		return fmt.Sprintf("transcription of tail failed: %v", e.Err)
	}
	return fmt.Sprintf("transcription of chunk %d failed: %v", e.Sequence, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
