package dictation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/emmett/voxstream/internal/audio"
	"github.com/emmett/voxstream/internal/stt"
	"github.com/emmett/voxstream/internal/visualizer"
)

const drainPollInterval = 50 * time.Millisecond

// Session drives push-to-talk dictation: capture, background chunk
// transcription and the final reconciliation. One recording runs at a time.
type Session struct {
	config      Config
	engine      *audio.CaptureEngine
	transcriber stt.Transcriber
	visual      *visualizer.State
	logger      zerolog.Logger
	onStatus    func(StatusUpdate)
	now         func() time.Time

	mu     sync.Mutex
	status Status
	run    *run
	last   *Transcript
}

// run is the state of one recording; workers of a cancelled run only
// ever touch their own run.
type run struct {
	id        string
	startedAt time.Time
	logger    zerolog.Logger

	cancel     context.CancelFunc
	workCtx    context.Context
	workCancel context.CancelFunc
	group      *errgroup.Group

	sched     *scheduler
	workers   *workerSet
	results   *partialResults
	telemetry *audio.TelemetryProcessor
	failed    atomic.Int32
}

// Info is a point-in-time view of the session
type Info struct {
	Status    Status
	SessionID string
	Elapsed   time.Duration
	Chunks    int
	Pending   int
	Results   int
	Dropped   uint64
	// Buffered is captured audio not yet sent for transcription
	Buffered  time.Duration
}

// Option configures a Session
type Option func(*Session)

// WithStatusHandler registers a callback for status updates
func WithStatusHandler(fn func(StatusUpdate)) Option {
	return func(s *Session) {
		s.onStatus = fn
	}
}

// WithClock replaces time.Now for chunk scheduling
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates an idle session capturing from device
func New(config Config, device audio.Device, transcriber stt.Transcriber, logger zerolog.Logger, opts ...Option) (*Session, error) {
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	config.Telemetry.SampleRate = config.Audio.SampleRate
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dictation config: %w", err)
	}

	engine, err := audio.NewCaptureEngine(config.Audio, device, logger)
	if err != nil {
		return nil, err
	}
	visual, err := visualizer.New(config.Visualizer)
	if err != nil {
		return nil, err
	}

	s := &Session{
		config:      config,
		engine:      engine,
		transcriber: transcriber,
		visual:      visual,
		logger:      logger.With().Str("component", "dictation").Logger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start opens the device and begins recording
func (s *Session) Start() error {
	s.mu.Lock()
	if s.status != StatusIdle {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}

	r, err := s.begin()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.run = r
	s.status = StatusRecording
	s.mu.Unlock()

	r.logger.Info().Msg("recording started")
	s.emit(StatusUpdate{SessionID: r.id, Status: StatusRecording, Message: "recording"})
	return nil
}

// begin starts capture and the background loops. Called with mu held.
func (s *Session) begin() (*run, error) {
	telemetry, err := audio.NewTelemetryProcessor(s.config.Telemetry, s.logger)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Start(); err != nil {
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}

	id := uuid.NewString()
	r := &run{
		id:        id,
		startedAt: s.now(),
		logger:    s.logger.With().Str("session", id).Logger(),
		workers:   newWorkerSet(),
		results:   &partialResults{},
		telemetry: telemetry,
	}
	r.workCtx, r.workCancel = context.WithCancel(context.Background())
	r.sched = &scheduler{
		source:        s.engine,
		busy:          r.workers.len,
		dispatch:      func(c Chunk) { s.startWorker(r, c) },
		logger:        r.logger,
		now:           s.now,
		chunkDuration: s.config.ChunkDuration,
		pollInterval:  s.config.PollInterval,
		leadIn:        audio.DurationSamples(s.config.Overlap, s.config.Audio.SampleRate),
		maxWorkers:    s.config.MaxWorkers,
		lastDispatch:  r.startedAt,
	}

	s.visual.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	group, gctx := errgroup.WithContext(ctx)
	blocks := s.engine.Blocks()
	errs := s.engine.Errors()

	group.Go(func() error {
		return telemetry.Run(gctx, blocks)
	})
	group.Go(func() error {
		return s.visual.Run(gctx, telemetry.Frames())
	})
	group.Go(func() error {
		return r.sched.run(gctx)
	})
	group.Go(func() error {
		select {
		case <-gctx.Done():
		case err := <-errs:
			r.logger.Error().Err(err).Msg("capture failed")
			go s.abort(r, err)
		}
		return nil
	})
	r.group = group

	return r, nil
}

// startWorker registers the chunk as active and transcribes it in the background
func (s *Session) startWorker(r *run, chunk Chunk) {
	r.workers.add(chunk.Sequence)

	go func() {
		defer r.workers.done(chunk.Sequence)

		start := time.Now()
		text, err := s.transcribe(r.workCtx, chunk.Sequence, chunk.Samples)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				r.logger.Debug().Int("sequence", chunk.Sequence).Msg("chunk transcription abandoned")
				return
			}
			r.failed.Add(1)
			r.logger.Error().Err(err).Int("sequence", chunk.Sequence).Msg("chunk transcription failed")
			return
		}

		r.logger.Debug().
			Int("sequence", chunk.Sequence).
			Dur("took", time.Since(start)).
			Msg("chunk transcribed")
		s.collect(r, chunk.Sequence, text)
	}()
}

// transcribe runs the transcriber, turning errors and panics into a TranscriptionError
func (s *Session) transcribe(ctx context.Context, seq int, samples []int16) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("transcriber panicked: %v", p)
		}
		if err != nil {
			err = &stt.TranscriptionError{Sequence: seq, Err: err}
		}
	}()
	return s.transcriber.Transcribe(ctx, samples, int(s.config.Audio.SampleRate))
}

func (s *Session) collect(r *run, seq int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if !r.results.add(PartialResult{Sequence: seq, Text: text, CompletedAt: s.now()}) {
		r.logger.Debug().Int("sequence", seq).Msg("dropped repeated or late result")
	}
}

// Stop ends the recording, waits for in-flight chunks, transcribes the
// tail and returns the reconciled transcript.
func (s *Session) Stop(ctx context.Context) (*Transcript, error) {
	s.mu.Lock()
	if s.status != StatusRecording {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	r := s.run
	s.status = StatusStopping
	s.mu.Unlock()

	s.emit(StatusUpdate{SessionID: r.id, Status: StatusStopping, Message: "stopping"})

	tailSeq := r.sched.halt()
	tail, blocks, err := s.engine.StopAndKeep()
	if err != nil {
		r.logger.Warn().Err(err).Msg("capture did not stop cleanly")
	}
	r.cancel()
	_ = r.group.Wait()

	if s.config.WAVPath != "" {
		if err := audio.SaveWAV(s.config.WAVPath, blocks, s.config.Audio.SampleRate); err != nil {
			r.logger.Warn().Err(err).Str("path", s.config.WAVPath).Msg("failed to save recording")
		} else {
			r.logger.Info().Str("path", s.config.WAVPath).Msg("recording saved")
		}
	}

	transcript := s.reconcile(ctx, r, tailSeq, tail)
	captured := 0
	for _, b := range blocks {
		captured += b.Len()
	}
	transcript.Duration = audio.SamplesDuration(captured, s.config.Audio.SampleRate)

	s.mu.Lock()
	s.run = nil
	s.status = StatusIdle
	s.last = transcript
	s.mu.Unlock()

	r.logger.Info().
		Int("chunks", transcript.Chunks).
		Int("failed", transcript.Failed).
		Bool("timed_out", transcript.TimedOut).
		Dur("duration", transcript.Duration).
		Msg("transcript ready")
	s.emit(StatusUpdate{SessionID: r.id, Status: StatusIdle, Message: "transcript ready"})
	return transcript, nil
}

// reconcile waits for the workers, transcribes the tail and merges the results
func (s *Session) reconcile(ctx context.Context, r *run, tailSeq int, tail []int16) *Transcript {
	t := &Transcript{SessionID: r.id, Chunks: tailSeq}

	pending := r.workers.wait(ctx, s.config.ReconcileTimeout, drainPollInterval, func(n int) {
		s.emit(StatusUpdate{
			SessionID: r.id,
			Status:    StatusStopping,
			Message:   fmt.Sprintf("waiting for %d chunks", n),
			Pending:   n,
		})
	})
	if pending > 0 {
		t.TimedOut = true
		r.logger.Warn().Err(ErrReconciliationTimeout).Int("pending", pending).Msg("building transcript without unfinished chunks")
	}

	if audio.SamplesDuration(len(tail), s.config.Audio.SampleRate) > s.config.TailMinDuration {
		text, err := s.transcribe(ctx, -1, tail)
		if err != nil {
			r.failed.Add(1)
			r.logger.Error().Err(err).Msg("tail transcription failed")
		} else {
			s.collect(r, tailSeq, text)
		}
	}

	r.results.seal()
	r.workCancel()

	t.Segments = r.results.sorted()
	t.Text = Deduplicate(joinResults(t.Segments))
	t.Failed = int(r.failed.Load())
	t.CompletedAt = s.now()
	r.results.clear()
	return t
}

// Cancel ends the recording and discards all audio, partial results and
// the previous transcript. It does nothing unless a session is recording.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.status != StatusRecording {
		s.mu.Unlock()
		return nil
	}
	r := s.run
	s.status = StatusStopping
	s.mu.Unlock()

	err := s.discard(r)

	s.mu.Lock()
	s.run = nil
	s.status = StatusIdle
	s.last = nil
	s.mu.Unlock()

	r.logger.Info().Msg("recording cancelled")
	s.emit(StatusUpdate{SessionID: r.id, Status: StatusIdle, Message: "cancelled"})
	return err
}

// abort tears down a run whose device failed
func (s *Session) abort(r *run, cause error) {
	s.mu.Lock()
	if s.run != r || s.status != StatusRecording {
		s.mu.Unlock()
		return
	}
	s.status = StatusStopping
	s.mu.Unlock()

	if err := s.discard(r); err != nil {
		r.logger.Warn().Err(err).Msg("failed to release device")
	}

	s.mu.Lock()
	s.run = nil
	s.status = StatusIdle
	s.mu.Unlock()

	s.emit(StatusUpdate{SessionID: r.id, Status: StatusIdle, Message: "capture device lost", Err: cause})
}

func (s *Session) discard(r *run) error {
	r.sched.halt()
	r.results.seal()
	r.workCancel()

	err := s.engine.Cancel()
	r.cancel()
	_ = r.group.Wait()

	r.results.clear()
	s.visual.Reset()
	return err
}

// Close cancels any active recording
func (s *Session) Close() error {
	return s.Cancel()
}

// Status returns the current lifecycle state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Info returns a snapshot of the session
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{Status: s.status}
	if s.run != nil {
		info.SessionID = s.run.id
		info.Elapsed = s.now().Sub(s.run.startedAt)
		info.Chunks = s.run.sched.dispatched()
		info.Pending = s.run.workers.len()
		info.Results = s.run.results.len()
		info.Dropped = s.engine.Dropped()
		info.Buffered = s.engine.PendingDuration()
	}
	return info
}

// Levels returns the smoothed visualizer levels
func (s *Session) Levels() visualizer.SmoothedFrame {
	return s.visual.Snapshot()
}

// LastTranscript returns the transcript of the most recent stop, or nil
// after a cancel
func (s *Session) LastTranscript() *Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Config returns the session configuration
func (s *Session) Config() Config {
	return s.config
}

func (s *Session) emit(update StatusUpdate) {
	if s.onStatus != nil {
		s.onStatus(update)
	}
}
