package snapshot

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/typeshape/internal/typegraph"
)

// AssertGolden compares the canonical snapshot of g with
// testdata/golden/{name}.golden in the calling package.
//
// To regenerate golden files, run:
//
//	go test ./internal/... -update
func AssertGolden(t *testing.T, name string, g *typegraph.Graph) {
	t.Helper()

	data, err := JSON(g)
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}
	gd := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	gd.Assert(t, name, data)
}
