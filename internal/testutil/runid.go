package testutil

import (
	"fmt"
	"sync"
)

// FixedRunID returns the same run ID every time, so golden output that
// embeds run IDs stays byte-identical.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID string

// Generate returns the fixed ID, or "test-run-default" when empty.
func (id FixedRunID) Generate() string {
	if id == "" {
		return "test-run-default"
	}
	return string(id)
}

// SequentialRunIDs hands out "run-0001", "run-0002", ... in order.
//
// Unlike FixedRunID it distinguishes runs, which history tests need.
// Reset restarts the sequence for test reuse.
type SequentialRunIDs struct {
	mu  sync.Mutex
	seq int
}

// Generate increments the counter and formats it.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("run-%04d", g.seq)
}

// Reset makes the next Generate return "run-0001".
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
