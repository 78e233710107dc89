package dictation

import (
	"slices"
	"strings"
	"sync"
)

// partialResults is the shared list workers append to
type partialResults struct {
	mu     sync.Mutex
	items  []PartialResult
	sealed bool
}

// add appends r unless the list is sealed or r repeats the most recently
// appended text (ignoring case and whitespace)
func (p *partialResults) add(r PartialResult) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sealed {
		return false
	}
	if n := len(p.items); n > 0 && normalize(p.items[n-1].Text) == normalize(r.Text) {
		return false
	}
	p.items = append(p.items, r)
	return true
}

// seal stops accepting results; late workers are ignored
func (p *partialResults) seal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sealed = true
}

// sorted returns the results ordered by sequence number
func (p *partialResults) sorted() []PartialResult {
	p.mu.Lock()
	out := slices.Clone(p.items)
	p.mu.Unlock()

	slices.SortStableFunc(out, func(a, b PartialResult) int {
		return a.Sequence - b.Sequence
	})
	return out
}

func (p *partialResults) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
}

func (p *partialResults) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// normalize lowercases text and collapses whitespace
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
