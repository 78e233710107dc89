package dictation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/voxstream/internal/audio"
)

// segmentSource hands out contiguous ranges of captured audio
type segmentSource interface {
	TakeSegment(leadIn int) (audio.Segment, bool)
}

// scheduler cuts a chunk off the capture every chunkDuration and hands it
// to dispatch. Chunks are only cut while the scheduler has not been halted.
type scheduler struct {
	mu     sync.Mutex
	source segmentSource
	busy   func() int
	// dispatch must register the chunk as active before returning
	dispatch func(Chunk)
	logger   zerolog.Logger
	now      func() time.Time

	chunkDuration time.Duration
	pollInterval  time.Duration
	leadIn        int
	maxWorkers    int

	lastDispatch time.Time
	nextSeq      int
	halted       bool
}

// run polls until ctx is done
func (s *scheduler) run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.poll(s.now())
		}
	}
}

// poll dispatches a chunk if one is due. It reports whether it did.
func (s *scheduler) poll(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted || now.Sub(s.lastDispatch) <= s.chunkDuration {
		return false
	}
	if s.maxWorkers > 0 && s.busy() >= s.maxWorkers {
		s.logger.Debug().Int("active", s.busy()).Msg("all workers busy, postponing chunk")
		return false
	}

	seg, ok := s.source.TakeSegment(s.leadIn)
	if !ok {
		return false
	}

	chunk := Chunk{
		Sequence:     s.nextSeq,
		StartBlock:   seg.StartBlock,
		EndBlock:     seg.EndBlock,
		LeadIn:       seg.LeadIn,
		Samples:      seg.Samples,
		DispatchedAt: now,
	}
	s.nextSeq++
	s.lastDispatch = now

	s.logger.Debug().
		Int("sequence", chunk.Sequence).
		Int("start_block", chunk.StartBlock).
		Int("end_block", chunk.EndBlock).
		Msg("dispatching chunk")
	s.dispatch(chunk)
	return true
}

// halt stops any further dispatch and returns the next unused sequence number.
// A poll already in progress completes first.
func (s *scheduler) halt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = true
	return s.nextSeq
}

func (s *scheduler) dispatched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}
