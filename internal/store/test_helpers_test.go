package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/typegraph"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestGeneration snapshots a one-class graph with a diagnostic and a
// single trace entry.
func createTestGeneration(t *testing.T, runID string, seq int) Generation {
	t.Helper()
	b := typegraph.NewBuilder("test-pass")
	i := b.Add(typegraph.Primitive{K: typegraph.KindInteger}, typegraph.EmptyAttributes)
	c := b.Add(typegraph.Class{Properties: []typegraph.Property{{Name: "n", Type: i}}}, typegraph.EmptyAttributes)
	b.AddTopLevel("Thing", c)
	b.AddDiagnostic(typegraph.Diagnostic{Pass: "test-pass", Code: typegraph.CodeLostTypeAttributes, Message: "dropped"})
	g := b.Finish()

	trace := []rewrite.Reconstitution{{Old: c, New: c, Kind: typegraph.KindClass, Replaced: true}}
	gen, err := NewGeneration(runID, seq, g, trace, g.Diagnostics())
	require.NoError(t, err)
	return gen
}
