package clock

import "sync/atomic"

// Sequence is a monotonic logical counter used to order canonical session
// snapshots. Wall-clock time is never used for ordering commits.
//
// Thread-safety: Sequence is safe for concurrent use and lock-free, so the
// audio path may call Next.
type Sequence struct {
	seq atomic.Uint64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence starting at a specific value.
// Used when restoring a controller from a journal.
func NewSequenceAt(start uint64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next increments the sequence and returns the new value.
// Each call returns a unique, increasing value.
func (s *Sequence) Next() uint64 {
	return s.seq.Add(1)
}

// Current returns the current value without incrementing.
func (s *Sequence) Current() uint64 {
	return s.seq.Load()
}
