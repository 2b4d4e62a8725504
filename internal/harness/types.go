package harness

import (
	"github.com/roach88/typeshape/internal/typegraph"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every document met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Generations are read back from the run's store, in pass order.
	Generations []GenerationSummary `json:"generations"`

	Documents []DocumentResult `json:"documents"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the graph documents were decoded with.
	Final *typegraph.Graph `json:"-"`
}

// GenerationSummary describes one stored generation.
type GenerationSummary struct {
	Pass        string `json:"pass"`
	Hash        string `json:"hash"`
	Types       int    `json:"types"`
	Diagnostics int    `json:"diagnostics"`
}

// DocumentResult is the outcome of one document.
type DocumentResult struct {
	TopLevel string `json:"top_level"`
	Expect   string `json:"expect"`
	Decoded  bool   `json:"decoded"`
	// Encoded is the re-encoded document when decoding succeeded.
	Encoded string `json:"encoded,omitempty"`
	// Error is the decode error, if any.
	Error string `json:"error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Generations: []GenerationSummary{},
		Documents:   []DocumentResult{},
		Errors:      []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
