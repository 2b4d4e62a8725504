package passes

import (
	"fmt"
	"strings"

	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/typegraph"
)

// ReplaceObjectType eliminates every Object, the shape with named
// properties plus optional additional properties. Each object is its own
// group:
//
//	additional absent           -> fixed class with the properties
//	no properties               -> map of the additional type
//	additional is any           -> fixed class, lost-type-attributes diagnostic
//	additional of another kind  -> map of union(property types, additional)
//
// With LeaveFullObjects only degenerate objects (no properties, or no
// additional properties) are replaced.
func ReplaceObjectType(g *typegraph.Graph, opts Options) *rewrite.Result {
	var groups [][]typegraph.TypeRef
	for _, ref := range g.AllTypesUnordered() {
		o, ok := g.Type(ref).(typegraph.Object)
		if !ok {
			continue
		}
		if opts.LeaveFullObjects && len(o.Properties) > 0 && o.HasAdditional() {
			continue
		}
		groups = append(groups, []typegraph.TypeRef{ref})
	}

	replace := func(group []typegraph.TypeRef, b *rewrite.Builder, f typegraph.TypeRef) typegraph.TypeRef {
		return replaceObject(opts, group[0], b, f)
	}
	return rewrite.Rewrite(g, PassReplaceObjectType, opts.Mapping, groups, replace, opts.rewriteOptions()...)
}

func replaceObject(opts Options, ref typegraph.TypeRef, b *rewrite.Builder, f typegraph.TypeRef) typegraph.TypeRef {
	old := b.Old()
	o := old.Type(ref).(typegraph.Object)
	attrs := b.ReconstituteAttributes(old.Attributes(ref))

	makeClass := func() typegraph.TypeRef {
		b.Resolve(f, typegraph.Class{Properties: reconstituteProperties(b, o.Properties), Fixed: true}, attrs)
		return f
	}

	if !o.HasAdditional() {
		return makeClass()
	}
	if len(o.Properties) == 0 {
		return b.ResolveAs(f, typegraph.Map{Values: b.ReconstituteTypeRef(o.Additional)}, attrs)
	}
	if old.Kind(o.Additional) == typegraph.KindAny {
		b.SetLostTypeAttributes(fmt.Sprintf("object {%s}: additional properties of any type dropped, %d properties kept as a class", propertyNames(o.Properties), len(o.Properties)))
		return makeClass()
	}

	members := make([]typegraph.TypeRef, 0, len(o.Properties)+1)
	for _, p := range o.Properties {
		members = append(members, p.Type)
	}
	members = append(members, o.Additional)

	union, ok := b.LookupTypeRefs(members)
	if !ok {
		if distinctStructuralKinds(old, opts.Mapping, members) {
			reconstituted := make([]typegraph.TypeRef, len(members))
			for i, m := range members {
				reconstituted[i] = b.ReconstituteTypeRef(m)
			}
			union = b.UnionOf(reconstituted, typegraph.EmptyAttributes)
		} else {
			// Two values share a structural kind, so a plain union would
			// break the union invariant. Merge them instead.
			union = opts.unifier(b).Unify(members, typegraph.EmptyAttributes)
		}
	}
	return b.ResolveAs(f, typegraph.Map{Values: union}, attrs)
}

// propertyNames lists props by name. TypeRef strings carry the build
// generation and must not reach diagnostics.
func propertyNames(props []typegraph.Property) string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// distinctStructuralKinds reports whether the old types refs, with unions
// flattened and string kinds mapped, have pairwise different structural
// kinds. Identical references count once.
func distinctStructuralKinds(g *typegraph.Graph, mapping typegraph.StringTypeMapping, refs []typegraph.TypeRef) bool {
	seen := make(map[typegraph.StructuralKind]typegraph.TypeRef)
	var ok = true
	var visit func(typegraph.TypeRef)
	visit = func(r typegraph.TypeRef) {
		t := g.Type(r)
		if u, isUnion := t.(typegraph.Union); isUnion {
			for _, m := range u.Members {
				visit(m)
			}
			return
		}
		k := t.Kind()
		if mapping != nil {
			k = mapping.Resolve(k)
		}
		sk := k.Structural()
		if prev, dup := seen[sk]; dup && prev != r {
			ok = false
		}
		seen[sk] = r
	}
	for _, r := range refs {
		visit(r)
	}
	return ok
}
