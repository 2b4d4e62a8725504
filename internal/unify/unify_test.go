package unify

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typeshape/internal/typegraph"
)

// shape renders a type structurally with sorted properties, so results can
// be compared across groupings that only differ in property order.
func shape(r typegraph.Reader, ref typegraph.TypeRef) string {
	seen := map[typegraph.TypeRef]int{}
	var render func(typegraph.TypeRef) string
	render = func(ref typegraph.TypeRef) string {
		if n, ok := seen[ref]; ok {
			return fmt.Sprintf("#%d", n)
		}
		seen[ref] = len(seen)
		switch t := r.Type(ref).(type) {
		case typegraph.Primitive:
			return t.K.String()
		case typegraph.Array:
			return "[" + render(t.Items) + "]"
		case typegraph.Map:
			return "{*:" + render(t.Values) + "}"
		case typegraph.Class:
			s := "class{" + renderProps(t.Properties, render) + "}"
			if t.Fixed {
				s += "!"
			}
			return s
		case typegraph.Object:
			s := "object{" + renderProps(t.Properties, render)
			if t.HasAdditional() {
				s += ";*:" + render(t.Additional)
			}
			return s + "}"
		case typegraph.Enum:
			cases := append([]string{}, t.Cases...)
			sort.Strings(cases)
			return "enum(" + strings.Join(cases, "|") + ")"
		case typegraph.Union:
			var parts []string
			for _, m := range t.Members {
				parts = append(parts, render(m))
			}
			sort.Strings(parts)
			return "union(" + strings.Join(parts, ",") + ")"
		}
		return "?"
	}
	return render(ref)
}

func renderProps(props []typegraph.Property, render func(typegraph.TypeRef) string) string {
	var parts []string
	for _, p := range props {
		opt := ""
		if p.Optional {
			opt = "?"
		}
		parts = append(parts, p.Name+opt+":"+render(p.Type))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

type fixture struct {
	b *typegraph.Builder
}

func newFixture() *fixture { return &fixture{b: typegraph.NewBuilder("test")} }

func (f *fixture) prim(k typegraph.Kind) typegraph.TypeRef {
	return f.b.Add(typegraph.Primitive{K: k}, typegraph.EmptyAttributes)
}

func (f *fixture) class(fixed bool, props ...typegraph.Property) typegraph.TypeRef {
	return f.b.Add(typegraph.Class{Properties: props, Fixed: fixed}, typegraph.EmptyAttributes)
}

func prop(name string, t typegraph.TypeRef) typegraph.Property {
	return typegraph.Property{Name: name, Type: t}
}

func TestUnifyPrimitives(t *testing.T) {
	tests := []struct {
		name     string
		conflate bool
		kinds    []typegraph.Kind
		want     string
	}{
		{"equal kinds", true, []typegraph.Kind{typegraph.KindString, typegraph.KindString}, "string"},
		{"conflated numbers", true, []typegraph.Kind{typegraph.KindInteger, typegraph.KindDouble}, "double"},
		{"separate numbers", false, []typegraph.Kind{typegraph.KindInteger, typegraph.KindDouble}, "union(double,integer)"},
		{"incompatible", true, []typegraph.Kind{typegraph.KindBool, typegraph.KindString}, "union(bool,string)"},
		{"any absorbs", true, []typegraph.Kind{typegraph.KindAny, typegraph.KindString, typegraph.KindNull}, "any"},
		{"none is dropped", true, []typegraph.Kind{typegraph.KindNone, typegraph.KindBool}, "bool"},
		{"only none", true, []typegraph.Kind{typegraph.KindNone}, "none"},
		{"string absorbs transformed", true, []typegraph.Kind{typegraph.KindString, typegraph.KindUUID, typegraph.KindDateTime}, "string"},
		{"transformed kinds stay apart", true, []typegraph.Kind{typegraph.KindUUID, typegraph.KindDateTime}, "union(date-time,uuid)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			var refs []typegraph.TypeRef
			for _, k := range tt.kinds {
				refs = append(refs, f.prim(k))
			}
			got := InBuilder(f.b, Options{ConflateNumbers: tt.conflate}).Unify(refs, typegraph.EmptyAttributes)
			assert.Equal(t, tt.want, shape(f.b, got))
		})
	}
}

func TestUnifyClassesMakesMissingPropertiesOptional(t *testing.T) {
	f := newFixture()
	i, s, b := f.prim(typegraph.KindInteger), f.prim(typegraph.KindString), f.prim(typegraph.KindBool)
	first := f.class(false, prop("a", i), prop("b", s))
	second := f.class(false, prop("a", i), prop("c", b))

	got := InBuilder(f.b, Options{}).Unify([]typegraph.TypeRef{second, first}, typegraph.EmptyAttributes)

	class, ok := f.b.Type(got).(typegraph.Class)
	require.True(t, ok)
	require.Len(t, class.Properties, 3)
	assert.Equal(t, typegraph.Property{Name: "a", Type: i}, class.Properties[0])
	assert.Equal(t, typegraph.Property{Name: "b", Type: s, Optional: true}, class.Properties[1])
	assert.Equal(t, typegraph.Property{Name: "c", Type: b, Optional: true}, class.Properties[2])
	assert.False(t, class.Fixed)
}

func TestUnifyFixedPropagates(t *testing.T) {
	f := newFixture()
	i := f.prim(typegraph.KindInteger)
	fixed := f.class(true, prop("a", i))
	open := f.class(false, prop("a", i))

	u := InBuilder(f.b, Options{})
	got := u.Unify([]typegraph.TypeRef{fixed, open}, typegraph.EmptyAttributes)
	assert.Equal(t, "class{a:integer}!", shape(f.b, got))
	assert.NotEqual(t, fixed, got)

	single := u.Unify([]typegraph.TypeRef{fixed, fixed}, typegraph.EmptyAttributes)
	assert.Equal(t, fixed, single, "a fixed class merged with itself is kept as is")
}

func TestUnifyCollections(t *testing.T) {
	f := newFixture()
	i, d, s := f.prim(typegraph.KindInteger), f.prim(typegraph.KindDouble), f.prim(typegraph.KindString)
	u := InBuilder(f.b, Options{ConflateNumbers: true})

	arrays := u.Unify([]typegraph.TypeRef{
		f.b.Add(typegraph.Array{Items: i}, typegraph.EmptyAttributes),
		f.b.Add(typegraph.Array{Items: s}, typegraph.EmptyAttributes),
	}, typegraph.EmptyAttributes)
	assert.Equal(t, "[union(integer,string)]", shape(f.b, arrays))

	maps := u.Unify([]typegraph.TypeRef{
		f.b.Add(typegraph.Map{Values: i}, typegraph.EmptyAttributes),
		f.b.Add(typegraph.Map{Values: d}, typegraph.EmptyAttributes),
	}, typegraph.EmptyAttributes)
	assert.Equal(t, "{*:double}", shape(f.b, maps))

	classAndMap := u.Unify([]typegraph.TypeRef{
		f.b.Add(typegraph.Map{Values: i}, typegraph.EmptyAttributes),
		f.class(false, prop("name", s)),
	}, typegraph.EmptyAttributes)
	assert.Equal(t, "{*:union(integer,string)}", shape(f.b, classAndMap))

	withObject := u.Unify([]typegraph.TypeRef{
		f.b.Add(typegraph.Object{Properties: []typegraph.Property{prop("id", i)}, Additional: s}, typegraph.EmptyAttributes),
		f.class(false, prop("id", d)),
	}, typegraph.EmptyAttributes)
	assert.Equal(t, "object{id:double;*:string}", shape(f.b, withObject))
}

func TestUnifyEnums(t *testing.T) {
	f := newFixture()
	e1 := f.b.Add(typegraph.Enum{Cases: []string{"red", "green"}}, typegraph.EmptyAttributes)
	e2 := f.b.Add(typegraph.Enum{Cases: []string{"green", "blue"}}, typegraph.EmptyAttributes)
	u := InBuilder(f.b, Options{})

	merged := u.Unify([]typegraph.TypeRef{e1, e2}, typegraph.EmptyAttributes)
	enum, ok := f.b.Type(merged).(typegraph.Enum)
	require.True(t, ok)
	assert.Equal(t, []string{"red", "green", "blue"}, enum.Cases)

	withString := u.Unify([]typegraph.TypeRef{e1, f.prim(typegraph.KindString)}, typegraph.EmptyAttributes)
	assert.Equal(t, "string", shape(f.b, withString))

	withDate := u.Unify([]typegraph.TypeRef{e1, f.prim(typegraph.KindDateTime)}, typegraph.EmptyAttributes)
	assert.Equal(t, "union(date-time,enum(green|red))", shape(f.b, withDate))
}

func TestUnifyCombinesAttributes(t *testing.T) {
	f := newFixture()
	low := f.b.Add(typegraph.Primitive{K: typegraph.KindInteger}, typegraph.NumberRange.Make(typegraph.Bounds(typegraph.Float(0), typegraph.Float(5))))
	high := f.b.Add(typegraph.Primitive{K: typegraph.KindInteger}, typegraph.NumberRange.Make(typegraph.Bounds(typegraph.Float(3), typegraph.Float(10))))
	require.NotEqual(t, low, high)

	got := InBuilder(f.b, Options{}).Unify([]typegraph.TypeRef{low, high}, typegraph.Description.Make([]string{"count"}))

	r, ok := typegraph.NumberRange.Get(f.b.Attributes(got))
	require.True(t, ok)
	assert.Equal(t, "[0,10]", r.String())
	assert.Equal(t, "count", typegraph.DescriptionText(f.b.Attributes(got)))
}

func TestUnifyIsCommutative(t *testing.T) {
	f := newFixture()
	i, s := f.prim(typegraph.KindInteger), f.prim(typegraph.KindString)
	a := f.class(false, prop("x", i), prop("y", s))
	b := f.class(false, prop("y", i), prop("z", s))
	c := f.b.Add(typegraph.Map{Values: s}, typegraph.EmptyAttributes)

	orders := [][]typegraph.TypeRef{{a, b, c}, {c, b, a}, {b, c, a}}
	var results []typegraph.TypeRef
	for _, order := range orders {
		// Fresh unifiers share no memo, so equality comes from hash-consing alone.
		results = append(results, InBuilder(f.b, Options{}).Unify(order, typegraph.EmptyAttributes))
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func TestUnifyIsAssociativeUpToPropertyOrder(t *testing.T) {
	f := newFixture()
	i, d, s, bo := f.prim(typegraph.KindInteger), f.prim(typegraph.KindDouble), f.prim(typegraph.KindString), f.prim(typegraph.KindBool)
	a := f.class(false, prop("x", i), prop("y", s))
	b := f.class(false, prop("x", d), prop("z", bo))
	c := f.class(false, prop("y", s), prop("w", f.b.Add(typegraph.Array{Items: i}, typegraph.EmptyAttributes)))

	u := InBuilder(f.b, Options{ConflateNumbers: true})
	left := u.Unify([]typegraph.TypeRef{u.Unify([]typegraph.TypeRef{a, b}, typegraph.EmptyAttributes), c}, typegraph.EmptyAttributes)
	right := u.Unify([]typegraph.TypeRef{a, u.Unify([]typegraph.TypeRef{b, c}, typegraph.EmptyAttributes)}, typegraph.EmptyAttributes)
	flat := u.Unify([]typegraph.TypeRef{a, b, c}, typegraph.EmptyAttributes)

	want := "class{w?:[integer],x?:double,y?:string,z?:bool}"
	assert.Equal(t, want, shape(f.b, left))
	assert.Equal(t, want, shape(f.b, right))
	assert.Equal(t, want, shape(f.b, flat))
}

func TestUnifyKeepsUnionInvariant(t *testing.T) {
	f := newFixture()
	i, s := f.prim(typegraph.KindInteger), f.prim(typegraph.KindString)
	inputs := []typegraph.TypeRef{
		f.prim(typegraph.KindNull),
		i,
		s,
		f.class(false, prop("a", i)),
		f.b.Add(typegraph.Map{Values: s}, typegraph.EmptyAttributes),
		f.b.Add(typegraph.Array{Items: i}, typegraph.EmptyAttributes),
		f.b.Add(typegraph.Union{Members: []typegraph.TypeRef{i, s}}, typegraph.EmptyAttributes),
	}
	got := InBuilder(f.b, Options{}).Unify(inputs, typegraph.EmptyAttributes)
	f.b.AddTopLevel("Top", got)

	g, remap := f.b.FinishWithRemap()
	u, ok := g.Type(remap(got)).(typegraph.Union)
	require.True(t, ok)
	seen := map[typegraph.StructuralKind]bool{}
	for _, m := range u.Members {
		sk := g.Kind(m).Structural()
		assert.False(t, seen[sk], "two members of structural kind %s", sk)
		seen[sk] = true
	}
	assert.Len(t, u.Members, 5)
}

func TestUnifyRecursiveClasses(t *testing.T) {
	f := newFixture()
	i := f.prim(typegraph.KindInteger)
	s := f.prim(typegraph.KindString)

	a := f.b.AddForwardRef()
	f.b.Resolve(a, typegraph.Class{Properties: []typegraph.Property{prop("v", i), {Name: "next", Type: a, Optional: true}}}, typegraph.EmptyAttributes)
	b := f.b.AddForwardRef()
	f.b.Resolve(b, typegraph.Class{Properties: []typegraph.Property{prop("v", s), {Name: "next", Type: b, Optional: true}}}, typegraph.EmptyAttributes)

	got := InBuilder(f.b, Options{}).Unify([]typegraph.TypeRef{a, b}, typegraph.EmptyAttributes)
	f.b.AddTopLevel("Node", got)

	g, remap := f.b.FinishWithRemap()
	node := remap(got)
	class, ok := g.Type(node).(typegraph.Class)
	require.True(t, ok)
	next, ok := typegraph.LookupProperty(class.Properties, "next")
	require.True(t, ok)
	assert.Equal(t, node, next.Type)
	assert.True(t, next.Optional)
	v, _ := typegraph.LookupProperty(class.Properties, "v")
	assert.Equal(t, "union(integer,string)", shape(g, v.Type))
}

func TestCanUnifyWithForwardRefs(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *fixture, pending typegraph.TypeRef) []typegraph.TypeRef
		want  bool
	}{
		{
			name: "resolved inputs",
			build: func(f *fixture, _ typegraph.TypeRef) []typegraph.TypeRef {
				return []typegraph.TypeRef{f.prim(typegraph.KindInteger), f.prim(typegraph.KindString)}
			},
			want: true,
		},
		{
			name: "lone forward ref",
			build: func(_ *fixture, pending typegraph.TypeRef) []typegraph.TypeRef {
				return []typegraph.TypeRef{pending}
			},
			want: true,
		},
		{
			name: "forward ref beside another input",
			build: func(f *fixture, pending typegraph.TypeRef) []typegraph.TypeRef {
				return []typegraph.TypeRef{pending, f.prim(typegraph.KindString)}
			},
			want: false,
		},
		{
			name: "forward ref in a property only one class has",
			build: func(f *fixture, pending typegraph.TypeRef) []typegraph.TypeRef {
				return []typegraph.TypeRef{
					f.class(false, prop("next", pending)),
					f.class(false, prop("leaf", f.prim(typegraph.KindInteger))),
				}
			},
			want: true,
		},
		{
			name: "forward ref in a shared property",
			build: func(f *fixture, pending typegraph.TypeRef) []typegraph.TypeRef {
				return []typegraph.TypeRef{
					f.class(false, prop("next", pending)),
					f.class(false, prop("next", f.prim(typegraph.KindInteger))),
				}
			},
			want: false,
		},
		{
			name: "any short-circuits",
			build: func(f *fixture, pending typegraph.TypeRef) []typegraph.TypeRef {
				return []typegraph.TypeRef{
					f.prim(typegraph.KindAny),
					f.b.Add(typegraph.Array{Items: pending}, typegraph.EmptyAttributes),
					f.b.Add(typegraph.Array{Items: f.prim(typegraph.KindBool)}, typegraph.EmptyAttributes),
				}
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			pending := f.b.AddForwardRef()
			u := InBuilder(f.b, Options{})
			assert.Equal(t, tt.want, u.CanUnify(tt.build(f, pending)))
		})
	}
}

func TestUnifyPassesLoneForwardRefThrough(t *testing.T) {
	f := newFixture()
	pending := f.b.AddForwardRef()
	a := f.class(false, prop("next", pending))
	b := f.class(false, prop("leaf", f.prim(typegraph.KindInteger)))

	got := InBuilder(f.b, Options{}).Unify([]typegraph.TypeRef{a, b}, typegraph.EmptyAttributes)
	f.b.Alias(pending, got)
	f.b.AddTopLevel("Node", got)

	g, remap := f.b.FinishWithRemap()
	node := remap(got)
	class, ok := g.Type(node).(typegraph.Class)
	require.True(t, ok)
	next, ok := typegraph.LookupProperty(class.Properties, "next")
	require.True(t, ok)
	assert.Equal(t, node, next.Type)
	assert.True(t, next.Optional)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		conflate bool
		a, b     typegraph.Kind
		wantErr  bool
		want     string
	}{
		{"same kind", false, typegraph.KindBool, typegraph.KindBool, false, "bool"},
		{"numbers conflated", true, typegraph.KindInteger, typegraph.KindDouble, false, "double"},
		{"numbers kept apart", false, typegraph.KindInteger, typegraph.KindDouble, true, ""},
		{"string and uuid", false, typegraph.KindString, typegraph.KindUUID, false, "string"},
		{"uuid and uri", false, typegraph.KindUUID, typegraph.KindURI, true, ""},
		{"bool and null", false, typegraph.KindBool, typegraph.KindNull, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			u := InBuilder(f.b, Options{ConflateNumbers: tt.conflate})
			got, err := u.Merge(f.prim(tt.a), f.prim(tt.b))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrIncompatible))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, shape(f.b, got))
		})
	}
}

func TestMergeRejectsUnions(t *testing.T) {
	f := newFixture()
	un := f.b.Add(typegraph.Union{Members: []typegraph.TypeRef{f.prim(typegraph.KindInteger), f.prim(typegraph.KindNull)}}, typegraph.EmptyAttributes)

	_, err := InBuilder(f.b, Options{}).Merge(un, f.prim(typegraph.KindInteger))
	assert.ErrorIs(t, err, ErrIncompatible)
}
