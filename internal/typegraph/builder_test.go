package typegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireConsistencyPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a consistency panic")
		_, ok := r.(*ConsistencyError)
		assert.True(t, ok, "expected *ConsistencyError, got %T: %v", r, r)
	}()
	f()
}

// TestBuilderRecursiveClassThroughForwardRef builds a linked-list node.
func TestBuilderRecursiveClassThroughForwardRef(t *testing.T) {
	b := NewBuilder("test")
	node := b.AddForwardRef()
	value := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	b.Resolve(node, Class{Properties: []Property{
		{Name: "value", Type: value},
		{Name: "next", Type: node, Optional: true},
	}}, EmptyAttributes)
	b.AddTopLevel("Node", node)

	g := b.Finish()
	ref, ok := g.TopLevel("Node")
	require.True(t, ok)

	class, ok := g.Type(ref).(Class)
	require.True(t, ok)
	require.Len(t, class.Properties, 2)
	assert.Equal(t, "value", class.Properties[0].Name)
	assert.Equal(t, KindInteger, g.Kind(class.Properties[0].Type))
	assert.Equal(t, ref, class.Properties[1].Type)
	assert.True(t, class.Properties[1].Optional)
}

// TestBuilderResolveTwicePanics checks forward refs are resolved exactly once.
func TestBuilderResolveTwicePanics(t *testing.T) {
	b := NewBuilder("test")
	ref := b.AddForwardRef()
	b.Resolve(ref, Primitive{K: KindString}, EmptyAttributes)

	requireConsistencyPanic(t, func() {
		b.Resolve(ref, Primitive{K: KindBool}, EmptyAttributes)
	})
}

// TestBuilderUnresolvedForwardRefPanics checks Finish rejects reserved but unfilled refs.
func TestBuilderUnresolvedForwardRefPanics(t *testing.T) {
	b := NewBuilder("test")
	_ = b.AddForwardRef()

	requireConsistencyPanic(t, func() { b.Finish() })
}

// TestBuilderDeduplicatesStructurallyIdenticalTypes checks hash-consing.
func TestBuilderDeduplicatesStructurallyIdenticalTypes(t *testing.T) {
	b := NewBuilder("test")
	i1 := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	i2 := b.Add(Primitive{K: KindInteger}, Description.Make([]string{"count"}))
	assert.Equal(t, i1, i2)
	assert.Equal(t, "count", DescriptionText(b.Attributes(i1)))

	c1 := b.Add(Class{Properties: []Property{{Name: "x", Type: i1}}}, EmptyAttributes)
	c2 := b.Add(Class{Properties: []Property{{Name: "x", Type: i1}}}, EmptyAttributes)
	assert.Equal(t, c1, c2)

	f1 := b.Add(Class{Properties: []Property{{Name: "x", Type: i1}}, Fixed: true}, EmptyAttributes)
	f2 := b.Add(Class{Properties: []Property{{Name: "x", Type: i1}}, Fixed: true}, EmptyAttributes)
	assert.NotEqual(t, f1, f2)
	assert.NotEqual(t, c1, f1)
}

// TestBuilderIdentityAttributesSeparateTypes checks constraints take part in identity.
func TestBuilderIdentityAttributesSeparateTypes(t *testing.T) {
	b := NewBuilder("test")
	plain := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	bounded := b.Add(Primitive{K: KindInteger}, NumberRange.Make(Bounds(Float(0), Float(10))))

	assert.NotEqual(t, plain, bounded)
}

// TestBuilderUnionNormalization covers flattening, dedup and collapse.
func TestBuilderUnionNormalization(t *testing.T) {
	b := NewBuilder("test")
	i := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	s := b.Add(Primitive{K: KindString}, EmptyAttributes)
	n := b.Add(Primitive{K: KindNull}, EmptyAttributes)

	single := b.Add(Union{Members: []TypeRef{i, i}}, EmptyAttributes)
	assert.Equal(t, i, single)

	inner := b.Add(Union{Members: []TypeRef{s, n}}, EmptyAttributes)
	outer := b.Add(Union{Members: []TypeRef{i, inner}}, EmptyAttributes)
	u, ok := b.Type(outer).(Union)
	require.True(t, ok)
	assert.Equal(t, []TypeRef{i, s, n}, u.Members)

	empty := b.Add(Union{}, EmptyAttributes)
	assert.Equal(t, KindNone, b.Type(empty).Kind())
}

// TestBuilderUnionInvariant checks two members of one structural kind are rejected.
func TestBuilderUnionInvariant(t *testing.T) {
	b := NewBuilder("test")
	i := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	d := b.Add(Primitive{K: KindDouble}, EmptyAttributes)
	class := b.Add(Class{Properties: []Property{{Name: "a", Type: i}}}, EmptyAttributes)
	m := b.Add(Map{Values: i}, EmptyAttributes)

	ok := b.Add(Union{Members: []TypeRef{i, d}}, EmptyAttributes)
	assert.Equal(t, KindUnion, b.Type(ok).Kind())

	requireConsistencyPanic(t, func() {
		b.Add(Union{Members: []TypeRef{class, m}}, EmptyAttributes)
	})
}

// TestBuilderDuplicatePropertyPanics checks property names are unique.
func TestBuilderDuplicatePropertyPanics(t *testing.T) {
	b := NewBuilder("test")
	i := b.Add(Primitive{K: KindInteger}, EmptyAttributes)

	requireConsistencyPanic(t, func() {
		b.Add(Class{Properties: []Property{{Name: "a", Type: i}, {Name: "a", Type: i}}}, EmptyAttributes)
	})
}

// TestBuilderResolveAsAliasesExistingType checks forward refs collapse into identical types.
func TestBuilderResolveAsAliasesExistingType(t *testing.T) {
	b := NewBuilder("test")
	s := b.Add(Primitive{K: KindString}, EmptyAttributes)
	arr := b.Add(Array{Items: s}, EmptyAttributes)

	fwd := b.AddForwardRef()
	got := b.ResolveAs(fwd, Array{Items: s}, EmptyAttributes)
	assert.Equal(t, arr, got)
	assert.Equal(t, arr, b.Canonical(fwd))

	holder := b.Add(Map{Values: fwd}, EmptyAttributes)
	b.AddTopLevel("M", holder)
	g, remap := b.FinishWithRemap()

	m, ok := g.Type(remap(holder)).(Map)
	require.True(t, ok)
	assert.Equal(t, remap(arr), m.Values)
	assert.Equal(t, remap(fwd), remap(arr))
	assert.Equal(t, 3, g.Len())
}

// TestGraphRejectsForeignGeneration checks refs from another generation panic.
func TestGraphRejectsForeignGeneration(t *testing.T) {
	b1 := NewBuilder("one")
	r1 := b1.Add(Primitive{K: KindString}, EmptyAttributes)
	b1.AddTopLevel("S", r1)
	g1 := b1.Finish()

	b2 := NewBuilder("two")
	r2 := b2.Add(Primitive{K: KindString}, EmptyAttributes)
	b2.AddTopLevel("S", r2)
	g2 := b2.Finish()

	ref1, _ := g1.TopLevel("S")
	assert.Equal(t, KindString, g1.Kind(ref1))
	assert.NotEqual(t, g1.Generation(), g2.Generation())
	requireConsistencyPanic(t, func() { g2.Type(ref1) })
	requireConsistencyPanic(t, func() { g1.Type(r1) })
}

// TestFinishReachableDropsUnreachable checks front-end garbage is discarded.
func TestFinishReachableDropsUnreachable(t *testing.T) {
	b := NewBuilder("test")
	_ = b.Add(Primitive{K: KindBool}, EmptyAttributes)
	s := b.Add(Primitive{K: KindString}, EmptyAttributes)
	arr := b.Add(Array{Items: s}, EmptyAttributes)
	b.AddTopLevel("Strings", arr)

	g := b.FinishReachable()
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, map[Kind]int{KindArray: 1, KindString: 1}, g.CountKinds())
}

// TestFinishFlattensAliasedUnionMembers checks a member that resolves to a union is flattened.
func TestFinishFlattensAliasedUnionMembers(t *testing.T) {
	b := NewBuilder("test")
	i := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	s := b.Add(Primitive{K: KindString}, EmptyAttributes)
	n := b.Add(Primitive{K: KindNull}, EmptyAttributes)

	fwd := b.AddForwardRef()
	outer := b.Add(Union{Members: []TypeRef{n, fwd}}, EmptyAttributes)
	b.Resolve(fwd, Union{Members: []TypeRef{i, s}}, EmptyAttributes)
	b.AddTopLevel("U", outer)

	g := b.FinishReachable()
	ref, _ := g.TopLevel("U")
	u, ok := g.Type(ref).(Union)
	require.True(t, ok)
	assert.Len(t, u.Members, 3)
}

// TestFinishCollapsesUnionOfAliasesToOneType checks that a union whose
// forward-ref members alias the same type becomes that type.
func TestFinishCollapsesUnionOfAliasesToOneType(t *testing.T) {
	b := NewBuilder("test")
	a1 := b.AddForwardRef()
	a2 := b.AddForwardRef()
	u := b.Add(Union{Members: []TypeRef{a1, a2}}, Description.Make([]string{"either"}))
	i := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	b.Alias(a1, i)
	b.Alias(a2, i)
	b.AddTopLevel("U", u)
	b.AddTopLevel("I", i)

	g := b.Finish()
	assert.Equal(t, 1, g.Len())
	ref, _ := g.TopLevel("U")
	intRef, _ := g.TopLevel("I")
	assert.Equal(t, intRef, ref)
	assert.Equal(t, KindInteger, g.Kind(ref))
	assert.Equal(t, "either", DescriptionText(g.Attributes(ref)))
}

// TestNullableFromUnion checks the two-member nullable wrapper detection.
func TestNullableFromUnion(t *testing.T) {
	b := NewBuilder("test")
	i := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	s := b.Add(Primitive{K: KindString}, EmptyAttributes)
	n := b.Add(Primitive{K: KindNull}, EmptyAttributes)

	inner, ok := NullableFromUnion(b, Union{Members: []TypeRef{i, n}})
	assert.True(t, ok)
	assert.Equal(t, i, inner)

	_, ok = NullableFromUnion(b, Union{Members: []TypeRef{i, s}})
	assert.False(t, ok)

	_, ok = NullableFromUnion(b, Union{Members: []TypeRef{i, s, n}})
	assert.False(t, ok)
}

// TestBuilderLookup checks lookups find identical types without adding any.
func TestBuilderLookup(t *testing.T) {
	b := NewBuilder("test")
	i := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	s := b.Add(Primitive{K: KindString}, EmptyAttributes)
	d := b.Add(Primitive{K: KindDouble}, EmptyAttributes)
	u := b.Add(Union{Members: []TypeRef{s, i}}, EmptyAttributes)
	before := b.Len()

	got, ok := b.Lookup(Union{Members: []TypeRef{i, s}})
	assert.True(t, ok)
	assert.Equal(t, u, got)

	_, ok = b.Lookup(Union{Members: []TypeRef{i, d}})
	assert.False(t, ok)

	_, ok = b.Lookup(Union{Members: []TypeRef{i, i}})
	assert.True(t, ok)

	assert.Equal(t, before, b.Len())
}
