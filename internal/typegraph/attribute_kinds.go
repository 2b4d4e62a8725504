package typegraph

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Description holds documentation strings gathered from schemas.
var Description = NewAttributeKind("description", stringSetKind())

// Names holds naming hints for renderers, such as the property or
// definition a type was found under.
var Names = NewAttributeKind("names", stringSetKind())

// ForbiddenNames holds identifiers a renderer must not pick for the type.
var ForbiddenNames = NewAttributeKind("forbidden-names", stringSetKind())

// Provenance records where a type came from (sample index, schema path).
var Provenance = NewAttributeKind("provenance", stringSetKind())

// NumberRange constrains integer and double values.
var NumberRange = NewAttributeKind("number-range", rangeKind())

// LengthRange constrains the length of string values, in runes.
var LengthRange = NewAttributeKind("length-range", rangeKind())

func stringSetKind() AttributeKindConfig[[]string] {
	return AttributeKindConfig[[]string]{
		Combine: func(a, b []string) []string {
			out := append(slices.Clone(a), b...)
			slices.Sort(out)
			return slices.Compact(out)
		},
		Snapshot: func(v []string, _ func(TypeRef) any) any {
			out := slices.Clone(v)
			slices.Sort(out)
			return slices.Compact(out)
		},
	}
}

// MinMax is an inclusive range. A nil bound is unbounded.
type MinMax struct {
	Min *float64
	Max *float64
}

// Bounds builds a MinMax from optional bounds.
func Bounds(lo, hi *float64) MinMax { return MinMax{Min: lo, Max: hi} }

// Float returns a pointer to f, for building bounds.
func Float(f float64) *float64 { return &f }

// Contains reports whether x lies within the range.
func (m MinMax) Contains(x float64) bool {
	if m.Min != nil && x < *m.Min {
		return false
	}
	if m.Max != nil && x > *m.Max {
		return false
	}
	return true
}

// IsUnbounded reports whether neither bound is set.
func (m MinMax) IsUnbounded() bool { return m.Min == nil && m.Max == nil }

func (m MinMax) String() string {
	return fmt.Sprintf("[%s,%s]", formatBound(m.Min), formatBound(m.Max))
}

func formatBound(b *float64) string {
	if b == nil {
		return "*"
	}
	return strconv.FormatFloat(*b, 'g', -1, 64)
}

// widen returns the smallest range containing both a and b.
func widen(a, b MinMax) MinMax {
	var out MinMax
	if a.Min != nil && b.Min != nil {
		out.Min = Float(min(*a.Min, *b.Min))
	}
	if a.Max != nil && b.Max != nil {
		out.Max = Float(max(*a.Max, *b.Max))
	}
	return out
}

func rangeKind() AttributeKindConfig[MinMax] {
	return AttributeKindConfig[MinMax]{
		Combine:  widen,
		Identity: MinMax.String,
		Snapshot: func(v MinMax, _ func(TypeRef) any) any {
			out := map[string]any{}
			if v.Min != nil {
				out["min"] = *v.Min
			}
			if v.Max != nil {
				out["max"] = *v.Max
			}
			return out
		},
	}
}

// DescriptionText joins a type's descriptions into one paragraph.
func DescriptionText(a Attributes) string {
	d, _ := Description.Get(a)
	return strings.Join(d, "\n")
}
