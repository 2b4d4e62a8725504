package typegraph

import (
	"slices"
)

type slot struct {
	t      Type // nil while a forward reference is unresolved
	attrs  Attributes
	alias  TypeRef // set when the slot was resolved to another type
	unique bool
}

// Builder constructs one generation. Non-unique types are hash-consed: adding
// a type structurally identical to an existing one (including identity
// attributes) returns the existing reference and merges the attributes.
//
// A Builder is used by one goroutine and is spent after Finish.
type Builder struct {
	gen         Generation
	slots       []slot
	identity    map[string]TypeRef
	topLevels   []TopLevel
	diagnostics []Diagnostic
	pass        string
	finished    bool
}

// NewBuilder returns an empty builder for a fresh generation.
func NewBuilder(pass string) *Builder {
	return &Builder{
		gen:      nextGeneration(),
		identity: make(map[string]TypeRef),
		pass:     pass,
	}
}

// Generation returns the generation of references issued by b.
func (b *Builder) Generation() Generation { return b.gen }

// Len returns the number of slots allocated so far, aliases included.
func (b *Builder) Len() int { return len(b.slots) }

func (b *Builder) check(op string, ref TypeRef) int {
	Assert(!b.finished, op, "builder already finished")
	Assert(ref.gen == b.gen, op, "reference %s does not belong to generation %d", ref, b.gen)
	Assert(int(ref.index) < len(b.slots), op, "reference %s out of range", ref)
	return int(ref.index)
}

// AddForwardRef reserves a reference whose type is supplied later by
// Resolve, ResolveAs or Alias.
func (b *Builder) AddForwardRef() TypeRef {
	Assert(!b.finished, "AddForwardRef", "builder already finished")
	ref := TypeRef{gen: b.gen, index: uint32(len(b.slots))}
	b.slots = append(b.slots, slot{})
	return ref
}

// Canonical follows aliases from ref to the slot that holds a type or is
// still unresolved.
func (b *Builder) Canonical(ref TypeRef) TypeRef {
	for steps := 0; ; steps++ {
		i := b.check("Canonical", ref)
		Assert(steps <= len(b.slots), "Canonical", "alias cycle through %s", ref)
		if !b.slots[i].alias.IsValid() {
			return ref
		}
		ref = b.slots[i].alias
	}
}

// IsResolved reports whether ref (after aliases) has a type.
func (b *Builder) IsResolved(ref TypeRef) bool {
	return b.slots[b.check("IsResolved", b.Canonical(ref))].t != nil
}

// Type returns the type at ref, or nil while ref is an unresolved forward
// reference.
func (b *Builder) Type(ref TypeRef) Type {
	return b.slots[b.check("Builder.Type", b.Canonical(ref))].t
}

// Attributes returns the attributes at ref.
func (b *Builder) Attributes(ref TypeRef) Attributes {
	return b.slots[b.check("Builder.Attributes", b.Canonical(ref))].attrs
}

// Add returns a reference to t, reusing an identical existing type unless
// t is a fixed class.
func (b *Builder) Add(t Type, attrs Attributes) TypeRef {
	t, collapsed := b.normalize("Add", t)
	if collapsed.IsValid() {
		b.AddAttributes(collapsed, attrs)
		return collapsed
	}
	if !isUnique(t) {
		key := structuralKey(t) + attrs.identityKey()
		if ref, ok := b.identity[key]; ok {
			b.AddAttributes(ref, attrs)
			return ref
		}
		ref := b.AddForwardRef()
		b.slots[ref.index] = slot{t: t, attrs: attrs}
		b.identity[key] = ref
		return ref
	}
	ref := b.AddForwardRef()
	b.slots[ref.index] = slot{t: t, attrs: attrs, unique: true}
	return ref
}

// AddUnique adds t without deduplication: the result is distinct from every
// other reference even if structurally identical.
func (b *Builder) AddUnique(t Type, attrs Attributes) TypeRef {
	t, collapsed := b.normalize("AddUnique", t)
	if collapsed.IsValid() {
		b.AddAttributes(collapsed, attrs)
		return collapsed
	}
	ref := b.AddForwardRef()
	b.slots[ref.index] = slot{t: t, attrs: attrs, unique: true}
	return ref
}

// Resolve fills a forward reference with t. Resolving a reference twice is
// a consistency violation. The slot keeps its own identity even if an
// identical type exists.
func (b *Builder) Resolve(ref TypeRef, t Type, attrs Attributes) {
	i := b.check("Resolve", ref)
	s := b.slots[i]
	Assert(s.t == nil && !s.alias.IsValid(), "Resolve", "forward reference %s already resolved", ref)

	t, collapsed := b.normalize("Resolve", t)
	if collapsed.IsValid() {
		b.Alias(ref, collapsed)
		b.AddAttributes(collapsed, attrs)
		return
	}
	unique := isUnique(t)
	b.slots[i] = slot{t: t, attrs: attrs, unique: unique}
	if !unique {
		key := structuralKey(t) + attrs.identityKey()
		if _, ok := b.identity[key]; !ok {
			b.identity[key] = ref
		}
	}
}

// ResolveAs fills a forward reference like Resolve, but when an identical
// non-unique type already exists the forward reference becomes an alias of
// it. It returns the reference that now holds the type.
func (b *Builder) ResolveAs(ref TypeRef, t Type, attrs Attributes) TypeRef {
	i := b.check("ResolveAs", ref)
	s := b.slots[i]
	Assert(s.t == nil && !s.alias.IsValid(), "ResolveAs", "forward reference %s already resolved", ref)

	t, collapsed := b.normalize("ResolveAs", t)
	if collapsed.IsValid() {
		b.Alias(ref, collapsed)
		b.AddAttributes(collapsed, attrs)
		return b.Canonical(collapsed)
	}
	if !isUnique(t) {
		key := structuralKey(t) + attrs.identityKey()
		if existing, ok := b.identity[key]; ok && b.Canonical(existing) != ref {
			b.Alias(ref, existing)
			b.AddAttributes(existing, attrs)
			return b.Canonical(existing)
		}
		b.slots[i] = slot{t: t, attrs: attrs}
		b.identity[key] = ref
		return ref
	}
	b.slots[i] = slot{t: t, attrs: attrs, unique: true}
	return ref
}

// Lookup returns an existing non-unique type identical to t that carries no
// identity attributes. It never adds a type.
func (b *Builder) Lookup(t Type) (TypeRef, bool) {
	if u, ok := t.(Union); ok {
		members := b.flattenMembers(u.Members)
		seen := make(map[StructuralKind]bool, len(members))
		for _, m := range members {
			mt := b.Type(m)
			if mt == nil {
				return NoRef, false
			}
			if seen[mt.Kind().Structural()] {
				return NoRef, false
			}
			seen[mt.Kind().Structural()] = true
		}
	}
	t, collapsed := b.normalize("Lookup", t)
	if collapsed.IsValid() {
		return b.Canonical(collapsed), true
	}
	if isUnique(t) {
		return NoRef, false
	}
	ref, ok := b.identity[structuralKey(t)]
	if !ok {
		return NoRef, false
	}
	return b.Canonical(ref), true
}

// Alias resolves a forward reference to an existing reference.
func (b *Builder) Alias(ref, target TypeRef) {
	i := b.check("Alias", ref)
	s := b.slots[i]
	Assert(s.t == nil && !s.alias.IsValid(), "Alias", "forward reference %s already resolved", ref)
	Assert(b.Canonical(target) != ref, "Alias", "aliasing %s to itself", ref)
	b.slots[i].alias = target
}

// AddAttributes merges attrs into the type at ref.
func (b *Builder) AddAttributes(ref TypeRef, attrs Attributes) {
	if attrs.IsEmpty() {
		return
	}
	i := b.check("AddAttributes", b.Canonical(ref))
	b.slots[i].attrs = CombineAttributes(b.slots[i].attrs, attrs)
}

// AddTopLevel names an entry point. Names are unique.
func (b *Builder) AddTopLevel(name string, ref TypeRef) {
	b.check("AddTopLevel", ref)
	for _, tl := range b.topLevels {
		Assert(tl.Name != name, "AddTopLevel", "duplicate top level %q", name)
	}
	b.topLevels = append(b.topLevels, TopLevel{Name: name, Type: ref})
}

// TopLevels returns the entry points added so far.
func (b *Builder) TopLevels() []TopLevel { return slices.Clone(b.topLevels) }

// AddDiagnostic records a non-fatal note on the generation being built.
func (b *Builder) AddDiagnostic(d Diagnostic) {
	if d.Pass == "" {
		d.Pass = b.pass
	}
	if d.Severity == "" {
		d.Severity = SeverityInfo
	}
	b.diagnostics = append(b.diagnostics, d)
}

// CarryDiagnostics prepends diagnostics from earlier generations.
func (b *Builder) CarryDiagnostics(diags []Diagnostic) {
	b.diagnostics = append(slices.Clone(diags), b.diagnostics...)
}

func isUnique(t Type) bool {
	c, ok := t.(Class)
	return ok && c.Fixed
}

// normalize canonicalizes child references and enforces per-variant
// invariants. For a union that reduces to one member it returns that member
// as collapsed.
func (b *Builder) normalize(op string, t Type) (Type, TypeRef) {
	Assert(t != nil, op, "nil type")
	t = MapChildren(t, func(r TypeRef) TypeRef {
		Assert(r.IsValid(), op, "invalid child reference")
		return b.Canonical(r)
	})
	switch tt := t.(type) {
	case Class:
		checkPropertyNames(op, tt.Properties)
	case Object:
		checkPropertyNames(op, tt.Properties)
	case Enum:
		seen := make(map[string]bool, len(tt.Cases))
		cases := make([]string, 0, len(tt.Cases))
		for _, c := range tt.Cases {
			if !seen[c] {
				seen[c] = true
				cases = append(cases, c)
			}
		}
		return Enum{Cases: cases}, NoRef
	case Union:
		members := b.flattenMembers(tt.Members)
		switch len(members) {
		case 0:
			return Primitive{K: KindNone}, NoRef
		case 1:
			return nil, members[0]
		}
		b.checkUnionKinds(op, members)
		return Union{Members: members}, NoRef
	}
	return t, NoRef
}

func (b *Builder) flattenMembers(members []TypeRef) []TypeRef {
	var out []TypeRef
	for _, m := range members {
		if u, ok := b.Type(m).(Union); ok {
			out = append(out, b.flattenMembers(u.Members)...)
			continue
		}
		out = append(out, m)
	}
	return SortedUniqueRefs(out)
}

func (b *Builder) checkUnionKinds(op string, members []TypeRef) {
	seen := make(map[StructuralKind]TypeRef)
	for _, m := range members {
		t := b.Type(m)
		if t == nil {
			continue
		}
		sk := t.Kind().Structural()
		if prev, ok := seen[sk]; ok {
			Fail(op, "union members %s and %s share structural kind %s", prev, m, sk)
		}
		seen[sk] = m
	}
}

func checkPropertyNames(op string, props []Property) {
	seen := make(map[string]bool, len(props))
	for _, p := range props {
		Assert(!seen[p.Name], op, "duplicate property %q", p.Name)
		seen[p.Name] = true
	}
}

// Finish seals the builder into a Graph holding every type.
func (b *Builder) Finish() *Graph {
	g, _ := b.finish(false)
	return g
}

// FinishReachable seals the builder, dropping types unreachable from the
// top levels. Front ends use it to discard intermediate unification inputs.
func (b *Builder) FinishReachable() *Graph {
	g, _ := b.finish(true)
	return g
}

// FinishWithRemap seals the builder and returns the mapping from builder
// references to graph references.
func (b *Builder) FinishWithRemap() (*Graph, func(TypeRef) TypeRef) {
	return b.finish(false)
}

func (b *Builder) finish(reachableOnly bool) (*Graph, func(TypeRef) TypeRef) {
	Assert(!b.finished, "Finish", "builder already finished")
	for i, s := range b.slots {
		Assert(s.t != nil || s.alias.IsValid(), "Finish", "forward reference %s never resolved", TypeRef{gen: b.gen, index: uint32(i)})
	}
	b.collapseSingletonUnions()

	keep := make([]bool, len(b.slots))
	if reachableOnly {
		roots := make([]TypeRef, len(b.topLevels))
		for i, tl := range b.topLevels {
			roots[i] = b.Canonical(tl.Type)
		}
		for _, r := range Walk(builderReader{b}, roots) {
			keep[r.index] = true
		}
	} else {
		for i, s := range b.slots {
			keep[i] = !s.alias.IsValid()
		}
	}

	gen := nextGeneration()
	newIndex := make([]int, len(b.slots))
	n := 0
	for i := range b.slots {
		newIndex[i] = -1
		if keep[i] {
			newIndex[i] = n
			n++
		}
	}
	canon := make([]uint32, len(b.slots))
	for i := range b.slots {
		canon[i] = b.Canonical(TypeRef{gen: b.gen, index: uint32(i)}).index
	}
	builderGen := b.gen
	remap := func(r TypeRef) TypeRef {
		Assert(r.gen == builderGen, "Finish", "reference %s does not belong to generation %d", r, builderGen)
		idx := newIndex[canon[r.index]]
		Assert(idx >= 0, "Finish", "reference %s was dropped as unreachable", r)
		return TypeRef{gen: gen, index: uint32(idx)}
	}

	g := &Graph{
		gen:         gen,
		types:       make([]Type, 0, n),
		attrs:       make([]Attributes, 0, n),
		diagnostics: slices.Clone(b.diagnostics),
		pass:        b.pass,
	}
	for i, s := range b.slots {
		if !keep[i] {
			continue
		}
		g.types = append(g.types, MapChildren(s.t, remap))
		g.attrs = append(g.attrs, s.attrs.Reconstitute(remap))
	}
	for _, tl := range b.topLevels {
		g.topLevels = append(g.topLevels, TopLevel{Name: tl.Name, Type: remap(tl.Type)})
	}
	for i, t := range g.types {
		if u, ok := t.(Union); ok {
			g.types[i] = finalizeUnion(g, u)
		}
	}
	b.finished = true
	return g, remap
}

// collapseSingletonUnions turns a union whose members, once aliases are
// followed, name a single type into an alias of that type. Its attributes
// move to the member.
func (b *Builder) collapseSingletonUnions() {
	for i, s := range b.slots {
		u, ok := s.t.(Union)
		if !ok {
			continue
		}
		self := TypeRef{gen: b.gen, index: uint32(i)}
		members := b.resolvedMembers(self, u.Members)
		Assert(len(members) > 0, "Finish", "union %s has no members", self)
		if len(members) > 1 {
			continue
		}
		target := members[0]
		b.slots[target.index].attrs = CombineAttributes(b.slots[target.index].attrs, s.attrs)
		b.slots[i] = slot{alias: target}
	}
}

// resolvedMembers flattens the members of union self through aliases and
// nested unions into distinct canonical references.
func (b *Builder) resolvedMembers(self TypeRef, members []TypeRef) []TypeRef {
	visited := map[TypeRef]bool{self: true}
	var out []TypeRef
	var walk func([]TypeRef)
	walk = func(refs []TypeRef) {
		for _, m := range refs {
			c := b.Canonical(m)
			if visited[c] {
				continue
			}
			visited[c] = true
			if inner, ok := b.slots[c.index].t.(Union); ok {
				walk(inner.Members)
				continue
			}
			out = append(out, c)
		}
	}
	walk(members)
	return out
}

// finalizeUnion re-sorts members after renumbering, flattens members that
// turned out to be unions once aliases were resolved, and checks the
// structural-kind invariant.
func finalizeUnion(g *Graph, u Union) Union {
	var members []TypeRef
	var flatten func([]TypeRef)
	flatten = func(refs []TypeRef) {
		for _, m := range refs {
			if inner, ok := g.types[m.index].(Union); ok {
				flatten(inner.Members)
				continue
			}
			members = append(members, m)
		}
	}
	flatten(u.Members)
	members = SortedUniqueRefs(members)
	Assert(len(members) >= 2, "Finish", "union has %d member(s) after aliases were resolved", len(members))

	seen := make(map[StructuralKind]bool)
	for _, m := range members {
		sk := g.types[m.index].Kind().Structural()
		Assert(!seen[sk], "Finish", "union has two members of structural kind %s", sk)
		seen[sk] = true
	}
	return Union{Members: members}
}

// builderReader reads through aliases for Walk during Finish.
type builderReader struct{ b *Builder }

func (r builderReader) Type(ref TypeRef) Type {
	c := r.b.Canonical(ref)
	return MapChildren(r.b.slots[c.index].t, r.b.Canonical)
}

func (r builderReader) Attributes(ref TypeRef) Attributes {
	c := r.b.Canonical(ref)
	return r.b.slots[c.index].attrs.Reconstitute(r.b.Canonical)
}
