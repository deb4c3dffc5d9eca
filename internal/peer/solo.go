package peer

import "sync"

// Solo is an engine that is always alone in its session.
type Solo struct {
	mu      sync.Mutex
	started bool
}

// NewSolo returns a stopped Solo engine.
func NewSolo() *Solo {
	return &Solo{}
}

// Start marks the engine started. It reports zero peers.
func (s *Solo) Start(l Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	s.started = true
	l.PeersChanged(0)
	return nil
}

// Publish is a no-op: nobody else is listening.
func (s *Solo) Publish(Proposal) {}

// Stop marks the engine stopped.
func (s *Solo) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}
