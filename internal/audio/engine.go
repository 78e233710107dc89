package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Segment is a contiguous range of captured blocks copied out of the store
type Segment struct {
	// StartBlock and EndBlock delimit the blocks [StartBlock, EndBlock)
	StartBlock int
	EndBlock   int

	// LeadIn is the number of samples at the front of Samples that precede StartBlock
	LeadIn int

	// Samples holds the lead-in followed by the blocks of the range
	Samples []int16
}

// Audio returns the samples belonging to the range, without lead-in
func (s Segment) Audio() []int16 {
	return s.Samples[s.LeadIn:]
}

// CaptureEngine owns the input device for one session at a time. The
// device callback appends each block to the frame store and offers it to
// the telemetry queue; both operations are bounded and never block.
type CaptureEngine struct {
	config CaptureConfig
	device Device
	logger zerolog.Logger
	frames *FrameStore

	// mu guards boundary and the session fields below; never taken by the callback
	mu        sync.Mutex
	boundary  int
	blocks    chan Block
	errs      chan error
	startedAt time.Time

	capturing atomic.Bool
	dropped   atomic.Uint64
}

// NewCaptureEngine creates an engine for the given device
func NewCaptureEngine(config CaptureConfig, device Device, logger zerolog.Logger) (*CaptureEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}
	if device == nil {
		return nil, &DeviceError{Op: "open", Err: ErrNoDevice}
	}

	return &CaptureEngine{
		config: config,
		device: device,
		logger: logger.With().Str("component", "capture").Logger(),
		frames: NewFrameStore(),
	}, nil
}

// Start opens the device and begins a fresh capture
func (e *CaptureEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.capturing.Load() {
		return fmt.Errorf("capture is already running")
	}

	e.frames.Reset()
	e.boundary = 0
	e.dropped.Store(0)
	e.blocks = make(chan Block, e.config.TelemetryQueue)
	e.errs = make(chan error, 1)

	blocks := e.blocks
	errs := e.errs
	callbacks := DeviceCallbacks{
		Data: func(data []byte, _ uint32) {
			e.onData(data, blocks)
		},
		Stopped: func() {
			if !e.capturing.Load() {
				return
			}
			select {
			case errs <- &DeviceError{Op: "capture", Err: fmt.Errorf("device stopped unexpectedly")}:
			default:
			}
		},
	}

	e.capturing.Store(true)
	if err := e.device.Open(e.config, callbacks); err != nil {
		e.capturing.Store(false)
		close(e.blocks)
		return &DeviceError{Op: "open", Err: err}
	}
	e.startedAt = time.Now()

	e.logger.Debug().
		Uint32("sample_rate", e.config.SampleRate).
		Uint32("block_size", e.config.BlockSize).
		Msg("capture started")
	return nil
}

// onData runs on the real-time audio thread
func (e *CaptureEngine) onData(data []byte, blocks chan Block) {
	if !e.capturing.Load() || len(data) == 0 {
		return
	}

	block := Block{
		Samples:   BytesToSamples(data),
		Timestamp: time.Now(),
	}

	e.frames.Append(block)

	// Non-blocking send; on overflow drop the oldest queued block and retry once
	select {
	case blocks <- block:
		return
	default:
	}
	select {
	case <-blocks:
		e.dropped.Add(1)
	default:
	}
	select {
	case blocks <- block:
	default:
		e.dropped.Add(1)
	}
}

// Blocks returns the telemetry queue of the current capture.
// It is closed when the capture stops or is cancelled.
func (e *CaptureEngine) Blocks() <-chan Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blocks
}

// Errors returns a channel that receives a DeviceError if the device is lost
func (e *CaptureEngine) Errors() <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errs
}

// TakeSegment copies every block after the boundary and advances the boundary
// past them. leadIn samples preceding the boundary are prepended as context.
// It returns false when there is nothing new.
func (e *CaptureEngine) TakeSegment(leadIn int) (Segment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	blocks := e.frames.Snapshot()
	end := len(blocks)
	if end <= e.boundary {
		return Segment{}, false
	}

	seg := Segment{
		StartBlock: e.boundary,
		EndBlock:   end,
	}

	var context []int16
	if leadIn > 0 && e.boundary > 0 {
		context = tailSamples(blocks[:e.boundary], leadIn)
	}
	seg.LeadIn = len(context)
	seg.Samples = append(context, Concat(blocks[e.boundary:end])...)

	e.boundary = end
	return seg, true
}

// tailSamples returns a copy of the last n samples held by blocks
func tailSamples(blocks []Block, n int) []int16 {
	start := len(blocks)
	have := 0
	for start > 0 && have < n {
		start--
		have += len(blocks[start].Samples)
	}

	samples := Concat(blocks[start:])
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	return samples
}

// StopAndKeep closes the device and returns the unprocessed tail as one
// buffer, together with every block of the session for callers that archive
// the recording. Session state is cleared afterwards.
func (e *CaptureEngine) StopAndKeep() ([]int16, []Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.capturing.Load() {
		return nil, nil, fmt.Errorf("capture is not running")
	}

	e.capturing.Store(false)
	closeErr := e.device.Close()

	blocks := e.frames.Snapshot()
	tail := e.frames.Range(e.boundary, len(blocks))

	e.logger.Debug().
		Int("blocks", len(blocks)).
		Int("tail_samples", len(tail)).
		Uint64("dropped", e.dropped.Load()).
		Dur("elapsed", time.Since(e.startedAt)).
		Msg("capture stopped")

	e.frames.Reset()
	e.boundary = 0
	if closeErr == nil {
		close(e.blocks)
	}

	if closeErr != nil {
		return tail, blocks, &DeviceError{Op: "close", Err: closeErr}
	}
	return tail, blocks, nil
}

// Cancel closes the device and discards everything captured, including
// any blocks still waiting in the telemetry queue.
func (e *CaptureEngine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.capturing.Load() {
		return nil
	}

	e.capturing.Store(false)
	closeErr := e.device.Close()

	e.frames.Reset()
	e.boundary = 0

	for drained := false; !drained; {
		select {
		case <-e.blocks:
		default:
			drained = true
		}
	}
	if closeErr == nil {
		close(e.blocks)
	}

	e.logger.Debug().Msg("capture cancelled")

	if closeErr != nil {
		return &DeviceError{Op: "close", Err: closeErr}
	}
	return nil
}

// IsRunning returns true if capture is currently active
func (e *CaptureEngine) IsRunning() bool {
	return e.capturing.Load()
}

// Frames returns the number of blocks captured in the current session
func (e *CaptureEngine) Frames() int {
	return e.frames.Len()
}

// PendingDuration returns how much captured audio lies beyond the boundary
func (e *CaptureEngine) PendingDuration() time.Duration {
	e.mu.Lock()
	from := e.boundary
	e.mu.Unlock()
	n := e.frames.SampleCount(from, e.frames.Len())
	return SamplesDuration(n, e.config.SampleRate)
}

// Dropped returns how many telemetry blocks were dropped on overflow
func (e *CaptureEngine) Dropped() uint64 {
	return e.dropped.Load()
}

// Config returns the capture configuration
func (e *CaptureEngine) Config() CaptureConfig {
	return e.config
}
