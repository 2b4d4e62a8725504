package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRuns_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestListRuns_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// ids sort opposite to creation order
	for _, id := range []string{"run-c", "run-b", "run-a"} {
		_, err := s.CreateRun(ctx, id, "samples", nil)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-a", runs[2].ID)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadGenerations_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.CreateRun(ctx, "run-1", "samples", nil)
	require.NoError(t, err)

	want := []Generation{createTestGeneration(t, "run-1", 1), createTestGeneration(t, "run-1", 0)}
	for _, g := range want {
		require.NoError(t, s.WriteGeneration(ctx, g))
	}

	got, err := s.ReadGenerations(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Seq)
	assert.Equal(t, want[1], got[0])
	assert.Equal(t, "test-pass", got[0].Pass)
	require.Len(t, got[0].Diagnostics, 1)
	assert.Equal(t, "info", got[0].Diagnostics[0].Severity)
	require.Len(t, got[0].Trace, 1)
	assert.True(t, got[0].Trace[0].Replaced)
}

func TestReadGenerations_UnknownRunIsEmpty(t *testing.T) {
	s := createTestStore(t)

	gens, err := s.ReadGenerations(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, gens)
}

func TestReadSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.CreateRun(ctx, "run-1", "samples", nil)
	require.NoError(t, err)
	gen := createTestGeneration(t, "run-1", 0)
	require.NoError(t, s.WriteGeneration(ctx, gen))

	snap, err := s.ReadSnapshot(ctx, "run-1", 0)
	require.NoError(t, err)
	assert.JSONEq(t, string(gen.Snapshot), string(snap))

	_, err = s.ReadSnapshot(ctx, "run-1", 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByHash_AcrossRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-2", "run-1"} {
		_, err := s.CreateRun(ctx, id, "samples", nil)
		require.NoError(t, err)
		require.NoError(t, s.WriteGeneration(ctx, createTestGeneration(t, id, 0)))
	}

	hash := createTestGeneration(t, "x", 0).Hash
	found, err := s.FindByHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "run-2", found[0].RunID)
	assert.Empty(t, found[0].Snapshot)

	none, err := s.FindByHash(ctx, "sha256:0")
	require.NoError(t, err)
	assert.Empty(t, none)
}
