package audio

import "sync/atomic"

// blockList is an immutable view of the store. The backing array may be
// shared with newer views, but only beyond this view's length.
type blockList struct {
	blocks []Block
}

// FrameStore is the append-only list of blocks captured in a session.
//
// Append is called from the audio callback and must never block, so the
// store has exactly one writer and publishes each new length through an
// atomic pointer. Readers take a snapshot and only ever look at blocks
// inside it.
type FrameStore struct {
	list atomic.Pointer[blockList]
}

// NewFrameStore creates an empty store
func NewFrameStore() *FrameStore {
	fs := &FrameStore{}
	fs.list.Store(&blockList{})
	return fs
}

// Append adds a block. It must only be called by the single writer.
func (fs *FrameStore) Append(b Block) {
	cur := fs.list.Load()
	fs.list.Store(&blockList{blocks: append(cur.blocks, b)})
}

// Len returns the number of blocks stored so far
func (fs *FrameStore) Len() int {
	return len(fs.list.Load().blocks)
}

// Snapshot returns the blocks stored so far. The returned slice must not be modified.
func (fs *FrameStore) Snapshot() []Block {
	return fs.list.Load().blocks
}

// Range returns a contiguous copy of the samples in blocks [from, to)
func (fs *FrameStore) Range(from, to int) []int16 {
	blocks := fs.Snapshot()
	if to > len(blocks) {
		to = len(blocks)
	}
	if from < 0 {
		from = 0
	}
	if from >= to {
		return nil
	}
	return Concat(blocks[from:to])
}

// SampleCount returns the total number of samples in blocks [from, to)
func (fs *FrameStore) SampleCount(from, to int) int {
	blocks := fs.Snapshot()
	if to > len(blocks) {
		to = len(blocks)
	}
	n := 0
	for i := from; i < to; i++ {
		n += len(blocks[i].Samples)
	}
	return n
}

// Reset drops all blocks. Only safe once the writer has stopped.
func (fs *FrameStore) Reset() {
	fs.list.Store(&blockList{})
}
