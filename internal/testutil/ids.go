package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates predictable commit IDs.
//
// This enables deterministic journal contents and golden trace comparison:
// the same scenario produces byte-identical output on every run.
//
// IDs have the form "<prefix>-0001", "<prefix>-0002", ... If prefix is
// empty, "test-commit" is used.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator with the given prefix.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test-commit"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements store.IDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
