package passes

import (
	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/typegraph"
)

// MapStringTypes applies opts.Mapping to every transformed string kind:
// inactive kinds become plain strings and folded kinds (date, time) become
// their target. Unions whose primitive members would collide on one kind
// are rebuilt with those members merged.
func MapStringTypes(g *typegraph.Graph, opts Options) *rewrite.Result {
	mapping := opts.Mapping
	if mapping == nil {
		mapping = typegraph.AllStringTypes()
	}

	var groups [][]typegraph.TypeRef
	for _, ref := range g.AllTypesUnordered() {
		u, ok := g.Type(ref).(typegraph.Union)
		if ok && collides(g, mapping, u) {
			groups = append(groups, []typegraph.TypeRef{ref})
		}
	}

	rebuild := func(group []typegraph.TypeRef, b *rewrite.Builder, f typegraph.TypeRef) typegraph.TypeRef {
		old := b.Old()
		u := old.Type(group[0]).(typegraph.Union)

		var members []typegraph.TypeRef
		merged := make(map[typegraph.Kind][]typegraph.Attributes)
		var kinds []typegraph.Kind
		for _, m := range u.Members {
			p, isPrim := old.Type(m).(typegraph.Primitive)
			if !isPrim {
				members = append(members, b.ReconstituteTypeRef(m))
				continue
			}
			k := mapping.Resolve(p.K)
			if _, seen := merged[k]; !seen {
				kinds = append(kinds, k)
			}
			merged[k] = append(merged[k], b.ReconstituteAttributes(old.Attributes(m)))
		}
		for _, k := range kinds {
			members = append(members, b.Add(typegraph.Primitive{K: k}, typegraph.CombineAttributes(merged[k]...)))
		}
		return b.ResolveAs(f, typegraph.Union{Members: members}, b.ReconstituteAttributes(old.Attributes(group[0])))
	}
	return rewrite.Rewrite(g, PassMapStringTypes, mapping, groups, rebuild, opts.rewriteOptions()...)
}

func collides(g *typegraph.Graph, mapping typegraph.StringTypeMapping, u typegraph.Union) bool {
	seen := make(map[typegraph.Kind]bool)
	for _, m := range u.Members {
		p, ok := g.Type(m).(typegraph.Primitive)
		if !ok {
			continue
		}
		k := mapping.Resolve(p.K)
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}
