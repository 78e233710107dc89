package dictation

import (
	"fmt"
	"time"

	"github.com/emmett/voxstream/internal/audio"
	"github.com/emmett/voxstream/internal/visualizer"
)

// Config holds the settings of a dictation session
type Config struct {
	Audio      audio.CaptureConfig
	Telemetry  audio.TelemetryConfig
	Visualizer visualizer.Config

	// ChunkDuration is how much audio accumulates before a chunk is cut
	ChunkDuration time.Duration
	// PollInterval is how often the scheduler checks whether a chunk is due
	PollInterval time.Duration
	// Overlap is the preceding audio prepended to each chunk as context
	Overlap time.Duration
	// TailMinDuration is the shortest tail that is still transcribed on stop
	TailMinDuration time.Duration
	// ReconcileTimeout bounds the wait for in-flight chunks on stop
	ReconcileTimeout time.Duration
	// MaxWorkers caps concurrent chunk transcriptions; 0 means no cap
	MaxWorkers int

	// WAVPath, when set, receives the whole recording on stop
	WAVPath string
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		Audio:            audio.DefaultConfig(),
		Telemetry:        audio.DefaultTelemetryConfig(),
		Visualizer:       visualizer.DefaultConfig(),
		ChunkDuration:    15 * time.Second,
		PollInterval:     500 * time.Millisecond,
		TailMinDuration:  500 * time.Millisecond,
		ReconcileTimeout: 30 * time.Second,
		MaxWorkers:       3,
	}
}

// Validate checks the session configuration
func (c Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return err
	}
	if err := c.Visualizer.Validate(); err != nil {
		return err
	}
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("chunk duration must be positive, got %s", c.ChunkDuration)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkDuration {
		return fmt.Errorf("overlap must be in [0, %s), got %s", c.ChunkDuration, c.Overlap)
	}
	if c.TailMinDuration < 0 {
		return fmt.Errorf("tail minimum duration must not be negative")
	}
	if c.ReconcileTimeout <= 0 {
		return fmt.Errorf("reconcile timeout must be positive, got %s", c.ReconcileTimeout)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max workers must not be negative")
	}
	return nil
}
