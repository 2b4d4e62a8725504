package typegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refsKind holds type references so reconstitution can be observed.
var refsKind = NewAttributeKind("test-refs", AttributeKindConfig[[]TypeRef]{
	Combine: func(a, b []TypeRef) []TypeRef { return SortedUniqueRefs(append(append([]TypeRef{}, a...), b...)) },
	Reconstitute: func(v []TypeRef, f func(TypeRef) TypeRef) []TypeRef {
		out := make([]TypeRef, len(v))
		for i, r := range v {
			out[i] = f(r)
		}
		return out
	},
})

func TestCombineAttributesIsCommutative(t *testing.T) {
	a := CombineAttributes(
		Description.Make([]string{"first"}),
		NumberRange.Make(Bounds(Float(0), Float(5))),
	)
	b := CombineAttributes(
		Description.Make([]string{"second"}),
		NumberRange.Make(Bounds(Float(-1), Float(3))),
		Names.Make([]string{"Count"}),
	)

	ab := CombineAttributes(a, b)
	ba := CombineAttributes(b, a)

	assert.Equal(t, ab.Names(), ba.Names())
	assert.Equal(t, []string{"description", "names", "number-range"}, ab.Names())

	d1, _ := Description.Get(ab)
	d2, _ := Description.Get(ba)
	assert.Equal(t, []string{"first", "second"}, d1)
	assert.Equal(t, d1, d2)

	r1, _ := NumberRange.Get(ab)
	r2, _ := NumberRange.Get(ba)
	assert.Equal(t, "[-1,5]", r1.String())
	assert.Equal(t, r1.String(), r2.String())
}

func TestCombineRangesWidenToUnbounded(t *testing.T) {
	tests := []struct {
		name string
		a, b MinMax
		want string
	}{
		{"both bounded", Bounds(Float(1), Float(2)), Bounds(Float(3), Float(4)), "[1,4]"},
		{"open min", Bounds(nil, Float(2)), Bounds(Float(3), Float(4)), "[*,4]"},
		{"open max", Bounds(Float(1), Float(2)), Bounds(Float(0), nil), "[0,*]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NumberRange.Get(CombineAttributes(NumberRange.Make(tt.a), NumberRange.Make(tt.b)))
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestMinMaxContains(t *testing.T) {
	r := Bounds(Float(0), Float(10))
	assert.True(t, r.Contains(0))
	assert.True(t, r.Contains(10))
	assert.False(t, r.Contains(-0.5))
	assert.False(t, r.Contains(10.5))
	assert.True(t, MinMax{}.Contains(1e300))
	assert.True(t, MinMax{}.IsUnbounded())
}

func TestAttributeKindSetAndRemove(t *testing.T) {
	a := Description.Make([]string{"x"})
	b := Description.Set(a, []string{"y"})
	c := Description.Remove(b)

	got, _ := Description.Get(a)
	assert.Equal(t, []string{"x"}, got, "Set must not mutate the original bag")
	got, _ = Description.Get(b)
	assert.Equal(t, []string{"y"}, got)
	assert.True(t, c.IsEmpty())
}

func TestAttributesReconstituteAndRefs(t *testing.T) {
	b := NewBuilder("test")
	s := b.Add(Primitive{K: KindString}, EmptyAttributes)
	i := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	holder := b.Add(Primitive{K: KindAny}, refsKind.Make([]TypeRef{i, s}))
	b.AddTopLevel("Holder", holder)

	g, remap := b.FinishWithRemap()
	ref := remap(holder)

	refs := g.Attributes(ref).Refs()
	assert.Equal(t, []TypeRef{remap(i), remap(s)}, refs)
	for _, r := range refs {
		assert.Equal(t, g.Generation(), r.Generation())
	}
}

func TestFinishReachableFollowsAttributeRefs(t *testing.T) {
	b := NewBuilder("test")
	target := b.Add(Primitive{K: KindInteger}, EmptyAttributes)
	holder := b.Add(Primitive{K: KindAny}, refsKind.Make([]TypeRef{target}))
	b.AddTopLevel("Holder", holder)

	g := b.FinishReachable()
	assert.Equal(t, 2, g.Len())
}

func TestNewAttributeKindRequiresCombine(t *testing.T) {
	assert.Panics(t, func() {
		NewAttributeKind("broken", AttributeKindConfig[int]{})
	})
}
