package typegraph

import (
	"cmp"
	"fmt"
	"slices"
	"sync/atomic"
)

// Generation stamps every TypeRef with the graph build that issued it.
type Generation uint32

var lastGeneration atomic.Uint32

func nextGeneration() Generation {
	return Generation(lastGeneration.Add(1))
}

// TypeRef is an opaque, totally ordered handle to a type in one generation.
// The zero value is not a valid reference.
type TypeRef struct {
	gen   Generation
	index uint32
}

// NoRef is the invalid reference, used where a reference is optional.
var NoRef TypeRef

// IsValid reports whether r was issued by some builder.
func (r TypeRef) IsValid() bool { return r.gen != 0 }

// Generation returns the generation that issued r.
func (r TypeRef) Generation() Generation { return r.gen }

// Index returns r's position in its generation.
func (r TypeRef) Index() int { return int(r.index) }

// Compare orders references by generation, then index.
func (r TypeRef) Compare(o TypeRef) int {
	if c := cmp.Compare(r.gen, o.gen); c != 0 {
		return c
	}
	return cmp.Compare(r.index, o.index)
}

func (r TypeRef) String() string {
	if !r.IsValid() {
		return "t?"
	}
	return fmt.Sprintf("t%d@g%d", r.index, r.gen)
}

// SortRefs sorts refs in place by Compare.
func SortRefs(refs []TypeRef) {
	slices.SortFunc(refs, TypeRef.Compare)
}

// SortedUniqueRefs returns a sorted copy of refs without duplicates.
func SortedUniqueRefs(refs []TypeRef) []TypeRef {
	out := slices.Clone(refs)
	SortRefs(out)
	return slices.Compact(out)
}
