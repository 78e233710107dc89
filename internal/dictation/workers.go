package dictation

import (
	"context"
	"sync"
	"time"
)

// workerSet tracks the sequence numbers of chunks still being transcribed
type workerSet struct {
	mu     sync.Mutex
	active map[int]struct{}
}

func newWorkerSet() *workerSet {
	return &workerSet{active: make(map[int]struct{})}
}

func (w *workerSet) add(seq int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active[seq] = struct{}{}
}

func (w *workerSet) done(seq int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.active, seq)
}

func (w *workerSet) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.active)
}

// wait polls until no worker is active, timeout elapses or ctx is done.
// onWaiting is called whenever the number of pending workers changes.
// It returns the number of workers still active.
func (w *workerSet) wait(ctx context.Context, timeout, poll time.Duration, onWaiting func(pending int)) int {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	last := -1
	for {
		pending := w.len()
		if pending == 0 {
			return 0
		}
		if pending != last && onWaiting != nil {
			onWaiting(pending)
		}
		last = pending

		select {
		case <-ctx.Done():
			return w.len()
		case <-deadline.C:
			return w.len()
		case <-ticker.C:
		}
	}
}
