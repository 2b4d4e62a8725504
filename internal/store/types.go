package store

import (
	"fmt"

	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/snapshot"
	"github.com/roach88/typeshape/internal/typegraph"
)

// Run is one pipeline invocation.
type Run struct {
	ID     string
	Seq    int64
	Source string
	// Config is the canonical JSON of the pipeline configuration.
	Config string
}

// Generation is one stored graph generation.
type Generation struct {
	RunID     string
	Seq       int
	Pass      string
	Hash      string
	TypeCount int
	// Snapshot is canonical JSON. Empty when read through FindByHash.
	Snapshot    []byte
	Trace       []Reconstitution
	Diagnostics []Diagnostic
}

// Reconstitution is a stored trace entry. References are rendered with
// TypeRef.String since they are meaningless outside their generation.
type Reconstitution struct {
	Old      string
	New      string
	Kind     string
	Replaced bool
}

// Diagnostic mirrors typegraph.Diagnostic.
type Diagnostic struct {
	Pass     string
	Code     string
	Severity string
	Message  string
}

// NewGeneration snapshots g as generation seq of run runID.
func NewGeneration(runID string, seq int, g *typegraph.Graph, trace []rewrite.Reconstitution, diags []typegraph.Diagnostic) (Generation, error) {
	snap, err := snapshot.JSON(g)
	if err != nil {
		return Generation{}, fmt.Errorf("snapshot generation %d: %w", seq, err)
	}
	hash, err := snapshot.Hash(g)
	if err != nil {
		return Generation{}, fmt.Errorf("hash generation %d: %w", seq, err)
	}

	gen := Generation{
		RunID:       runID,
		Seq:         seq,
		Pass:        g.Pass(),
		Hash:        hash,
		TypeCount:   g.Len(),
		Snapshot:    snap,
		Trace:       make([]Reconstitution, len(trace)),
		Diagnostics: make([]Diagnostic, len(diags)),
	}
	for i, r := range trace {
		gen.Trace[i] = Reconstitution{Old: r.Old.String(), New: r.New.String(), Kind: r.Kind.String(), Replaced: r.Replaced}
	}
	for i, d := range diags {
		gen.Diagnostics[i] = Diagnostic{Pass: d.Pass, Code: d.Code, Severity: string(d.Severity), Message: d.Message}
	}
	return gen, nil
}
