package typegraph

import "slices"

// Reader resolves references. Finished graphs and in-progress builders
// both implement it, so the unifier can read from either.
type Reader interface {
	Type(ref TypeRef) Type
	Attributes(ref TypeRef) Attributes
}

// TopLevel is a named entry point into a graph.
type TopLevel struct {
	Name string
	Type TypeRef
}

// Graph is one immutable generation of types. Every reference it hands out
// carries its generation; passing a reference from another generation is a
// consistency violation.
type Graph struct {
	gen         Generation
	types       []Type
	attrs       []Attributes
	topLevels   []TopLevel
	diagnostics []Diagnostic
	pass        string
}

// Generation returns the graph's generation stamp.
func (g *Graph) Generation() Generation { return g.gen }

// Pass names the construction step or rewrite pass that produced the graph.
func (g *Graph) Pass() string { return g.pass }

// Len returns the number of types.
func (g *Graph) Len() int { return len(g.types) }

// Ref returns the reference of the i-th type.
func (g *Graph) Ref(i int) TypeRef {
	Assert(i >= 0 && i < len(g.types), "Graph.Ref", "index %d out of range [0,%d)", i, len(g.types))
	return TypeRef{gen: g.gen, index: uint32(i)}
}

func (g *Graph) check(op string, ref TypeRef) int {
	Assert(ref.gen == g.gen, op, "reference %s does not belong to generation %d", ref, g.gen)
	Assert(int(ref.index) < len(g.types), op, "reference %s out of range", ref)
	return int(ref.index)
}

// Type resolves ref.
func (g *Graph) Type(ref TypeRef) Type {
	return g.types[g.check("Graph.Type", ref)]
}

// Kind returns the kind of the type at ref.
func (g *Graph) Kind(ref TypeRef) Kind {
	return g.Type(ref).Kind()
}

// Attributes returns the attribute bag of the type at ref.
func (g *Graph) Attributes(ref TypeRef) Attributes {
	return g.attrs[g.check("Graph.Attributes", ref)]
}

// AllTypesUnordered returns every type in the generation. Callers must not
// rely on the order.
func (g *Graph) AllTypesUnordered() []TypeRef {
	refs := make([]TypeRef, len(g.types))
	for i := range g.types {
		refs[i] = TypeRef{gen: g.gen, index: uint32(i)}
	}
	return refs
}

// TopLevels returns the named entry points in insertion order.
func (g *Graph) TopLevels() []TopLevel { return slices.Clone(g.topLevels) }

// TopLevel looks up an entry point by name.
func (g *Graph) TopLevel(name string) (TypeRef, bool) {
	for _, tl := range g.topLevels {
		if tl.Name == name {
			return tl.Type, true
		}
	}
	return NoRef, false
}

// Diagnostics returns every diagnostic recorded by the passes that led to
// this generation, oldest first.
func (g *Graph) Diagnostics() []Diagnostic { return slices.Clone(g.diagnostics) }

// Reachable returns the types reachable from the top levels, following
// children and references held by attributes, in depth-first order.
func (g *Graph) Reachable() []TypeRef {
	roots := make([]TypeRef, len(g.topLevels))
	for i, tl := range g.topLevels {
		roots[i] = tl.Type
	}
	return Walk(g, roots)
}

// Walk returns the types reachable from roots in depth-first preorder.
// Union members are visited in TypeRef order.
func Walk(r Reader, roots []TypeRef) []TypeRef {
	seen := make(map[TypeRef]bool)
	var order []TypeRef
	var visit func(TypeRef)
	visit = func(ref TypeRef) {
		if seen[ref] {
			return
		}
		seen[ref] = true
		order = append(order, ref)
		for _, c := range r.Type(ref).Children() {
			visit(c)
		}
		for _, c := range r.Attributes(ref).Refs() {
			visit(c)
		}
	}
	for _, root := range roots {
		visit(root)
	}
	return order
}

// CountKinds tallies the types of g by kind.
func (g *Graph) CountKinds() map[Kind]int {
	counts := make(map[Kind]int)
	for _, t := range g.types {
		counts[t.Kind()]++
	}
	return counts
}

// NullableFromUnion returns the non-null member of a two-member union whose
// other member is null. Such a union is a nullable wrapper, not a tagged union.
func NullableFromUnion(r Reader, u Union) (TypeRef, bool) {
	if len(u.Members) != 2 {
		return NoRef, false
	}
	a, b := u.Members[0], u.Members[1]
	switch {
	case r.Type(a).Kind() == KindNull:
		return b, true
	case r.Type(b).Kind() == KindNull:
		return a, true
	}
	return NoRef, false
}

// FindMember returns the member of u with kind k.
func FindMember(r Reader, u Union, k Kind) (TypeRef, bool) {
	for _, m := range u.Members {
		if r.Type(m).Kind() == k {
			return m, true
		}
	}
	return NoRef, false
}
