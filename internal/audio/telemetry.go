package audio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Frame is the telemetry computed for one block
type Frame struct {
	Bands     []float64 // per-band magnitude in [0, 1]
	IsSpeech  bool      // true if any sub-frame of the block was speech
	Timestamp time.Time // capture time of the block
}

// TelemetryConfig configures the telemetry processor
type TelemetryConfig struct {
	SampleRate uint32
	Bands      int
	Gain       float64
	VAD        VADConfig

	// Queue is the capacity of the outgoing frame channel
	Queue int

	// MaxBacklog is the number of queued blocks beyond which older blocks
	// are skipped so the processor catches up with capture
	MaxBacklog int
}

// DefaultTelemetryConfig returns the default telemetry configuration
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		SampleRate: 16000,
		Bands:      DefaultBands,
		Gain:       4,
		VAD:        DefaultVADConfig(),
		Queue:      16,
		MaxBacklog: 8,
	}
}

// TelemetryProcessor turns raw blocks into voice-activity and spectral
// telemetry. It only ever sees the telemetry queue, never the frame store.
type TelemetryProcessor struct {
	config   TelemetryConfig
	vad      *VAD
	spectrum *SpectrumAnalyzer
	frames   chan Frame
	logger   zerolog.Logger

	processed atomic.Uint64
	dropped   atomic.Uint64
}

// NewTelemetryProcessor creates a processor
func NewTelemetryProcessor(config TelemetryConfig, logger zerolog.Logger) (*TelemetryProcessor, error) {
	vad, err := NewVAD(config.VAD, config.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create vad: %w", err)
	}
	if config.Queue <= 0 {
		config.Queue = 1
	}

	return &TelemetryProcessor{
		config:   config,
		vad:      vad,
		spectrum: NewSpectrumAnalyzer(config.Bands, config.Gain),
		frames:   make(chan Frame, config.Queue),
		logger:   logger.With().Str("component", "telemetry").Logger(),
	}, nil
}

// Frames returns the channel of computed frames. It is closed when Run returns.
func (t *TelemetryProcessor) Frames() <-chan Frame {
	return t.frames
}

// Process computes the telemetry frame for one block
func (t *TelemetryProcessor) Process(block Block) Frame {
	return Frame{
		Bands:     t.spectrum.Bands(block.Samples),
		IsSpeech:  t.vad.ClassifyBlock(block.Samples),
		Timestamp: block.Timestamp,
	}
}

// Run consumes blocks until the channel closes or ctx is cancelled
func (t *TelemetryProcessor) Run(ctx context.Context, blocks <-chan Block) error {
	defer close(t.frames)

	for {
		select {
		case <-ctx.Done():
			return nil
		case block, ok := <-blocks:
			if !ok {
				speech, silence := t.vad.Counts()
				t.logger.Debug().
					Uint64("processed", t.processed.Load()).
					Uint64("dropped", t.dropped.Load()).
					Uint64("speech_blocks", speech).
					Uint64("silence_blocks", silence).
					Msg("telemetry finished")
				return nil
			}

			// Skip stale blocks rather than fall further behind
			for t.config.MaxBacklog > 0 && len(blocks) > t.config.MaxBacklog {
				next, ok := <-blocks
				if !ok {
					break
				}
				block = next
				t.dropped.Add(1)
			}

			t.emit(t.Process(block))
			t.processed.Add(1)
		}
	}
}

// emit pushes a frame, dropping the oldest unconsumed frame when full
func (t *TelemetryProcessor) emit(frame Frame) {
	select {
	case t.frames <- frame:
		return
	default:
	}
	select {
	case <-t.frames:
		t.dropped.Add(1)
	default:
	}
	select {
	case t.frames <- frame:
	default:
		t.dropped.Add(1)
	}
}

// Processed returns the number of blocks turned into frames
func (t *TelemetryProcessor) Processed() uint64 {
	return t.processed.Load()
}

// Dropped returns the number of blocks or frames dropped to keep pace
func (t *TelemetryProcessor) Dropped() uint64 {
	return t.dropped.Load()
}
