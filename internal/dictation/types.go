package dictation

import (
	"errors"
	"time"
)

// Status is the lifecycle state of the dictation session
type Status int

const (
	StatusIdle Status = iota
	StatusRecording
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRecording:
		return "recording"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyRecording is returned by Start while a session is active
	ErrAlreadyRecording = errors.New("a dictation session is already active")

	// ErrNotRecording is returned by Stop when there is nothing to stop
	ErrNotRecording = errors.New("no dictation session is recording")

	// ErrReconciliationTimeout marks a transcript built before every chunk finished
	ErrReconciliationTimeout = errors.New("timed out waiting for chunk transcriptions")
)

// Chunk is a copied, contiguous range of captured audio handed to one worker
type Chunk struct {
	Sequence     int
	StartBlock   int
	EndBlock     int
	LeadIn       int     // samples of preceding audio prepended as context
	Samples      []int16 // lead-in followed by the chunk's own audio
	DispatchedAt time.Time
}

// PartialResult is the text recognized for one chunk or for the tail
type PartialResult struct {
	Sequence    int
	Text        string
	CompletedAt time.Time
}

// Transcript is the final, merged result of a session
type Transcript struct {
	SessionID string
	Text      string

	// Segments are the partial results in sequence order
	Segments []PartialResult

	Chunks   int           // chunks dispatched while recording
	Failed   int           // chunks or tail that failed to transcribe
	TimedOut bool          // reconciliation gave up on unfinished chunks
	Duration time.Duration // captured audio length

	CompletedAt time.Time
}

// StatusUpdate is reported to the status handler as a session progresses
type StatusUpdate struct {
	SessionID string
	Status    Status
	Message   string
	Pending   int   // chunks still being transcribed
	Err       error // set when the session ended because of an error
}
