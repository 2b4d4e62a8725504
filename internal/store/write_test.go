package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRun_AssignsSequentialSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, "run-b", "samples", map[string]any{"conflate_numbers": true})
	require.NoError(t, err)
	second, err := s.CreateRun(ctx, "run-a", "schema", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, `{"conflate_numbers":true}`, first.Config)
	assert.Equal(t, `{}`, second.Config)
}

func TestCreateRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, "run-1", "samples", nil)
	require.NoError(t, err)
	again, err := s.CreateRun(ctx, "run-1", "other", map[string]any{"x": 1})
	require.NoError(t, err)

	assert.Equal(t, first, again)
}

func TestWriteGeneration_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteGeneration(context.Background(), createTestGeneration(t, "missing", 0))
	assert.Error(t, err)
}

func TestWriteGeneration_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.CreateRun(ctx, "run-1", "samples", nil)
	require.NoError(t, err)

	gen := createTestGeneration(t, "run-1", 0)
	require.NoError(t, s.WriteGeneration(ctx, gen))
	require.NoError(t, s.WriteGeneration(ctx, gen))

	var traces, diags int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM reconstitutions").Scan(&traces))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM diagnostics").Scan(&diags))
	assert.Equal(t, 1, traces)
	assert.Equal(t, 1, diags)
}
