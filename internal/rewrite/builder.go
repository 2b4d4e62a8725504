package rewrite

import (
	"github.com/roach88/typeshape/internal/typegraph"
)

// Builder is the new-generation builder a Replacer works with. It embeds
// the typegraph builder for constructing types and adds the operations
// that read the old generation.
type Builder struct {
	*typegraph.Builder

	old         *typegraph.Graph
	mapping     typegraph.StringTypeMapping
	memo        map[typegraph.TypeRef]typegraph.TypeRef
	group       map[typegraph.TypeRef]int
	forwarding  []typegraph.TypeRef
	trace       []Reconstitution
	diagnostics []typegraph.Diagnostic
	pass        string
	opts        options
}

// Old returns the generation being rewritten.
func (b *Builder) Old() *typegraph.Graph { return b.old }

// Mapping returns the string type mapping of the pass, possibly nil.
func (b *Builder) Mapping() typegraph.StringTypeMapping { return b.mapping }

// ReconstituteTypeRef returns the new reference for an old one, building
// it on first use. References into a replacement group resolve to the
// group's forwarding reference.
func (b *Builder) ReconstituteTypeRef(old typegraph.TypeRef) typegraph.TypeRef {
	if r, ok := b.memo[old]; ok {
		return r
	}
	f := b.AddForwardRef()
	b.memo[old] = f

	t := b.ReconstituteType(b.old.Type(old))
	attrs := b.ReconstituteAttributes(b.old.Attributes(old))
	result := b.ResolveAs(f, t, attrs)
	b.memo[old] = result
	b.record(old, result, false)
	return result
}

// ReconstituteType maps the children of an old type into the new
// generation. Transformed string kinds go through the pass's mapping.
func (b *Builder) ReconstituteType(t typegraph.Type) typegraph.Type {
	if p, ok := t.(typegraph.Primitive); ok && b.mapping != nil {
		return typegraph.Primitive{K: b.mapping.Resolve(p.K)}
	}
	return typegraph.MapChildren(t, b.ReconstituteTypeRef)
}

// ReconstituteAttributes maps references held by old attributes.
func (b *Builder) ReconstituteAttributes(a typegraph.Attributes) typegraph.Attributes {
	return a.Reconstitute(b.ReconstituteTypeRef)
}

// LookupTypeRefs returns an existing new-generation type equal to the
// union of the given old types, if all of them are already reconstituted
// and that union exists verbatim.
func (b *Builder) LookupTypeRefs(old []typegraph.TypeRef) (typegraph.TypeRef, bool) {
	members := make([]typegraph.TypeRef, 0, len(old))
	for _, o := range old {
		n, ok := b.memo[o]
		if !ok || !b.IsResolved(n) {
			return typegraph.NoRef, false
		}
		members = append(members, n)
	}
	return b.Lookup(typegraph.Union{Members: members})
}

// UnionOf adds a union of new-generation references.
func (b *Builder) UnionOf(members []typegraph.TypeRef, attrs typegraph.Attributes) typegraph.TypeRef {
	return b.Add(typegraph.Union{Members: members}, attrs)
}

// SetLostTypeAttributes records that the pass dropped meaning it could not
// represent. The pass still succeeds.
func (b *Builder) SetLostTypeAttributes(message string) {
	d := typegraph.Diagnostic{
		Pass:     b.pass,
		Code:     typegraph.CodeLostTypeAttributes,
		Severity: typegraph.SeverityInfo,
		Message:  message,
	}
	b.AddDiagnostic(d)
	b.diagnostics = append(b.diagnostics, d)
	b.opts.logger.Info("type attributes lost", "pass", b.pass, "message", message)
}
