package testutil

import "sync/atomic"

// ManualTicks is a tick source that only moves when told to.
//
// It implements clock.TickSource so tests can drive a controller's clock
// deterministically. Unlike the host source, ManualTicks can be reset for
// test reuse.
//
// Thread-safety: all methods are safe for concurrent use (atomic operations),
// so it can back a clock read from a simulated audio goroutine.
type ManualTicks struct {
	ticks atomic.Uint64
}

// NewManualTicks creates a tick source starting at start.
func NewManualTicks(start uint64) *ManualTicks {
	m := &ManualTicks{}
	m.ticks.Store(start)
	return m
}

// Ticks returns the current tick count.
func (m *ManualTicks) Ticks() uint64 {
	return m.ticks.Load()
}

// Set moves the counter to an absolute value.
func (m *ManualTicks) Set(ticks uint64) {
	m.ticks.Store(ticks)
}

// Advance moves the counter forward by n ticks and returns the new value.
func (m *ManualTicks) Advance(n uint64) uint64 {
	return m.ticks.Add(n)
}

// Reset moves the counter back to 0.
func (m *ManualTicks) Reset() {
	m.ticks.Store(0)
}
