package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/voxstream/internal/dictation"
	"github.com/emmett/voxstream/internal/input"
	"github.com/emmett/voxstream/internal/output"
)

// DefaultFrameInterval redraws the level bars at about 30 FPS
const DefaultFrameInterval = 33 * time.Millisecond

// PushToTalk turns toggle and cancel actions into dictation sessions and
// writes each transcript through the formatter.
type PushToTalk struct {
	session   *dictation.Session
	console   *output.ConsoleOutput
	formatter output.Formatter
	logger    zerolog.Logger

	// FrameInterval is how often the level bars are redrawn; 0 disables them
	FrameInterval time.Duration

	count int
	wg    sync.WaitGroup
}

type stopResult struct {
	transcript *dictation.Transcript
	err        error
}

// NewPushToTalk creates the push-to-talk loop for session
func NewPushToTalk(session *dictation.Session, console *output.ConsoleOutput, formatter output.Formatter, logger zerolog.Logger) *PushToTalk {
	return &PushToTalk{
		session:       session,
		console:       console,
		formatter:     formatter,
		logger:        logger.With().Str("component", "ptt").Logger(),
		FrameInterval: DefaultFrameInterval,
	}
}

// StatusPrinter returns a status handler that shows session progress on console
func StatusPrinter(console *output.ConsoleOutput) func(dictation.StatusUpdate) {
	return func(u dictation.StatusUpdate) {
		if u.Err != nil {
			console.Error(fmt.Sprintf("%s: %v", u.Message, u.Err))
			return
		}
		console.Status(u.Message)
	}
}

// Run handles actions until ctx is done or actions is closed. An active
// recording is cancelled on the way out; a stop in progress is awaited.
func (p *PushToTalk) Run(ctx context.Context, actions <-chan input.Action) error {
	results := make(chan stopResult, 4)

	var frames <-chan time.Time
	if p.FrameInterval > 0 {
		ticker := time.NewTicker(p.FrameInterval)
		defer ticker.Stop()
		frames = ticker.C
	}

	defer p.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return nil

		case action, ok := <-actions:
			if !ok {
				p.shutdown()
				p.wg.Wait()
				p.drain(results)
				return nil
			}
			p.handle(ctx, action, results)

		case r := <-results:
			p.report(r)

		case <-frames:
			if p.session.Status() == dictation.StatusRecording {
				levels := p.session.Levels()
				_ = p.console.WriteBands(levels.Levels, levels.Speech)
			}
		}
	}
}

func (p *PushToTalk) handle(ctx context.Context, action input.Action, results chan<- stopResult) {
	switch action {
	case input.ActionToggle:
		switch p.session.Status() {
		case dictation.StatusIdle:
			if err := p.session.Start(); err != nil {
				p.console.Error(fmt.Sprintf("Failed to start recording: %v", err))
			}
		case dictation.StatusRecording:
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				t, err := p.session.Stop(ctx)
				results <- stopResult{transcript: t, err: err}
			}()
		case dictation.StatusStopping:
			p.console.Status("still finishing the previous recording")
		}

	case input.ActionCancel:
		if err := p.session.Cancel(); err != nil {
			p.console.Error(fmt.Sprintf("Cancel failed: %v", err))
		}
	}
}

func (p *PushToTalk) report(r stopResult) {
	if r.err != nil {
		if !errors.Is(r.err, dictation.ErrNotRecording) {
			p.console.Error(fmt.Sprintf("Stop failed: %v", r.err))
		}
		return
	}

	t := r.transcript
	_ = p.console.Clear()
	if t.Text == "" {
		p.console.Info("No speech detected")
		return
	}

	p.count++
	result := output.TranscriptResult{
		Index:     p.count,
		SessionID: t.SessionID,
		Text:      t.Text,
		Chunks:    t.Chunks,
		Failed:    t.Failed,
		TimedOut:  t.TimedOut,
		Duration:  t.Duration.Seconds(),
		Timestamp: t.CompletedAt,
	}
	if err := p.formatter.WriteTranscript(result); err != nil {
		p.logger.Error().Err(err).Msg("failed to write transcript")
	}
	_ = p.formatter.Flush()
}

func (p *PushToTalk) shutdown() {
	if p.session.Status() == dictation.StatusRecording {
		if err := p.session.Cancel(); err != nil {
			p.logger.Warn().Err(err).Msg("failed to cancel recording")
		}
	}
}

func (p *PushToTalk) drain(results <-chan stopResult) {
	select {
	case r := <-results:
		p.report(r)
	default:
	}
}

// Transcripts returns how many transcripts have been written
func (p *PushToTalk) Transcripts() int {
	return p.count
}
