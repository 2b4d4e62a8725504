package transform

import (
	"github.com/roach88/typeshape/internal/raw"
	"github.com/roach88/typeshape/internal/typegraph"
)

// Transformation says how the type carrying it is decoded into a value of
// TargetType and encoded back.
type Transformation struct {
	TargetType  typegraph.TypeRef
	Transformer Transformer
}

// SourceType is the type of the raw value the decode tree starts from.
func (xf Transformation) SourceType() typegraph.TypeRef {
	return xf.Transformer.SourceType()
}

// Reverse returns the encode side: it consumes a value of TargetType and
// produces a raw value of SourceType.
func (xf Transformation) Reverse() Transformation {
	return Transformation{
		TargetType:  xf.SourceType(),
		Transformer: Reverse(xf.Transformer, xf.TargetType, nil),
	}
}

func (xf Transformation) describe(id func(typegraph.TypeRef) any) map[string]any {
	return map[string]any{
		"target":      id(xf.TargetType),
		"transformer": Describe(xf.Transformer, id),
	}
}

func (xf Transformation) identity() string {
	return string(raw.MustMarshalCanonical(xf.describe(func(r typegraph.TypeRef) any { return r.String() })))
}

// TransformationAttribute attaches a Transformation to a type. It takes
// part in type identity, so a type with a Transformation is never merged
// with the same type without one.
var TransformationAttribute = typegraph.NewAttributeKind("transformation", typegraph.AttributeKindConfig[Transformation]{
	Combine: func(a, b Transformation) Transformation {
		typegraph.Assert(a.identity() == b.identity(), "transform.Combine", "a type cannot carry two different transformations")
		return a
	},
	Identity: Transformation.identity,
	Reconstitute: func(xf Transformation, f func(typegraph.TypeRef) typegraph.TypeRef) Transformation {
		return Transformation{TargetType: f(xf.TargetType), Transformer: MapRefs(xf.Transformer, f)}
	},
	Snapshot: func(xf Transformation, ref func(typegraph.TypeRef) any) any {
		return xf.describe(ref)
	},
})

// ForType returns the Transformation of the type at ref. Without one the
// type is decoded and encoded by its structure alone.
func ForType(r typegraph.Reader, ref typegraph.TypeRef) (Transformation, bool) {
	return TransformationAttribute.Get(r.Attributes(ref))
}

// FollowTargetType follows Transformations from ref to the type a decoded
// value finally has.
func FollowTargetType(r typegraph.Reader, ref typegraph.TypeRef) typegraph.TypeRef {
	seen := make(map[typegraph.TypeRef]bool)
	for {
		xf, ok := ForType(r, ref)
		if !ok {
			return ref
		}
		typegraph.Assert(!seen[ref], "transform.FollowTargetType", "transformation cycle through %s", ref)
		seen[ref] = true
		ref = xf.TargetType
	}
}
