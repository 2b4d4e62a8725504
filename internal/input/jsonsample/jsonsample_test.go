package jsonsample

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typeshape/internal/input"
	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/typegraph"
)

func infer(t *testing.T, opts Options, samples ...Sample) *typegraph.Graph {
	t.Helper()
	opts.Logger = rewrite.DiscardLogger()
	g, err := Infer(samples, opts)
	require.NoError(t, err)
	return g
}

func property(t *testing.T, g *typegraph.Graph, ref typegraph.TypeRef, name string) typegraph.Property {
	t.Helper()
	class, ok := g.Type(ref).(typegraph.Class)
	require.True(t, ok, "%s is a %s", ref, g.Kind(ref))
	p, ok := typegraph.LookupProperty(class.Properties, name)
	require.True(t, ok, "missing property %s", name)
	return p
}

func TestInferUnifiesSamplesOfOneName(t *testing.T) {
	g := infer(t, Options{ConflateNumbers: true},
		Sample{Name: "Person", Source: "a.json", Data: []byte(`{"name":"a","age":3,"at":"2024-01-02T03:04:05Z"}`)},
		Sample{Name: "Person", Source: "b.json", Data: []byte(`{"name":"b","age":4.5,"tags":["x"]}`)},
	)

	require.Len(t, g.TopLevels(), 1)
	person, ok := g.TopLevel("Person")
	require.True(t, ok)

	assert.Equal(t, typegraph.KindString, g.Kind(property(t, g, person, "name").Type))
	assert.False(t, property(t, g, person, "name").Optional)
	assert.Equal(t, typegraph.KindDouble, g.Kind(property(t, g, person, "age").Type))

	at := property(t, g, person, "at")
	assert.True(t, at.Optional)
	assert.Equal(t, typegraph.KindDateTime, g.Kind(at.Type))

	tags := property(t, g, person, "tags")
	assert.True(t, tags.Optional)
	require.IsType(t, typegraph.Array{}, g.Type(tags.Type))
	assert.Equal(t, typegraph.KindString, g.Kind(g.Type(tags.Type).(typegraph.Array).Items))

	sources, ok := typegraph.Provenance.Get(g.Attributes(person))
	require.True(t, ok)
	assert.Equal(t, []string{"a.json", "b.json"}, sources)
	names, _ := typegraph.Names.Get(g.Attributes(person))
	assert.Equal(t, []string{"Person"}, names)
}

func TestInferKeepsNumbersApartWithoutConflation(t *testing.T) {
	g := infer(t, Options{},
		Sample{Name: "N", Source: "1", Data: []byte(`1`)},
		Sample{Name: "N", Source: "2", Data: []byte(`1.5`)},
	)
	n, _ := g.TopLevel("N")
	u, ok := g.Type(n).(typegraph.Union)
	require.True(t, ok)
	assert.Len(t, u.Members, 2)
}

func TestInferDetectsStringKinds(t *testing.T) {
	tests := []struct {
		in   string
		want typegraph.Kind
	}{
		{`"2024-01-02T03:04:05Z"`, typegraph.KindDateTime},
		{`"2024-01-02"`, typegraph.KindDate},
		{`"03:04:05"`, typegraph.KindTime},
		{`"6ba7b810-9dad-11d1-80b4-00c04fd430c8"`, typegraph.KindUUID},
		{`"https://example.com/x"`, typegraph.KindURI},
		{`"note:1"`, typegraph.KindString},
		{`"42"`, typegraph.KindIntegerString},
		{`"true"`, typegraph.KindBoolString},
		{`"hello"`, typegraph.KindString},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			g := infer(t, Options{}, Sample{Name: "S", Source: "s", Data: []byte(tt.in)})
			s, _ := g.TopLevel("S")
			assert.Equal(t, tt.want, g.Kind(s))
		})
	}
}

func TestInferDetectsOnlyActiveKinds(t *testing.T) {
	mapping, err := typegraph.StringTypeMappingFor(typegraph.KindDateTime)
	require.NoError(t, err)

	g := infer(t, Options{Mapping: mapping},
		Sample{Name: "Count", Source: "c", Data: []byte(`"42"`)},
		Sample{Name: "When", Source: "w", Data: []byte(`"2024-01-02T03:04:05Z"`)},
		Sample{Name: "Both", Source: "b", Data: []byte(`["42","2024-01-02T03:04:05Z"]`)},
	)

	count, _ := g.TopLevel("Count")
	assert.Equal(t, typegraph.KindString, g.Kind(count), "integer-string is not active")

	when, _ := g.TopLevel("When")
	assert.Equal(t, typegraph.KindDateTime, g.Kind(when))

	// The plain string absorbs the date-time.
	both, _ := g.TopLevel("Both")
	items := g.Type(both).(typegraph.Array).Items
	assert.Equal(t, typegraph.KindString, g.Kind(items))
}

func TestInferArrays(t *testing.T) {
	g := infer(t, Options{},
		Sample{Name: "Empty", Source: "e", Data: []byte(`[]`)},
		Sample{Name: "Mixed", Source: "m", Data: []byte(`[1,"x",null]`)},
	)

	empty, _ := g.TopLevel("Empty")
	assert.Equal(t, typegraph.KindAny, g.Kind(g.Type(empty).(typegraph.Array).Items))

	mixed, _ := g.TopLevel("Mixed")
	u, ok := g.Type(g.Type(mixed).(typegraph.Array).Items).(typegraph.Union)
	require.True(t, ok)
	assert.Len(t, u.Members, 3)

	assert.Equal(t, []string{"Empty", "Mixed"}, []string{g.TopLevels()[0].Name, g.TopLevels()[1].Name})
}

func TestInferRejectsInvalidJSON(t *testing.T) {
	_, err := Infer([]Sample{{Name: "X", Source: "broken.json", Data: []byte(`{"a":`)}}, Options{Logger: rewrite.DiscardLogger()})
	require.Error(t, err)
	var ie *input.Error
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "broken.json", ie.Source)
	assert.NotNil(t, errors.Unwrap(err))
}
