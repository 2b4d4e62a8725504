package passes

import (
	"slices"
	"strings"

	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/typegraph"
)

// CombineClasses merges non-fixed classes that have exactly the same set of
// property names. Each such set with two or more classes is one group,
// replaced by the unification of its members.
func CombineClasses(g *typegraph.Graph, opts Options) *rewrite.Result {
	byShape := make(map[string][]typegraph.TypeRef)
	var order []string
	for _, ref := range g.AllTypesUnordered() {
		c, ok := g.Type(ref).(typegraph.Class)
		if !ok || c.Fixed {
			continue
		}
		key := propertyNameKey(c.Properties)
		if _, seen := byShape[key]; !seen {
			order = append(order, key)
		}
		byShape[key] = append(byShape[key], ref)
	}

	var groups [][]typegraph.TypeRef
	for _, key := range order {
		if refs := byShape[key]; len(refs) > 1 {
			groups = append(groups, refs)
		}
	}

	combine := func(group []typegraph.TypeRef, b *rewrite.Builder, _ typegraph.TypeRef) typegraph.TypeRef {
		return opts.unifier(b).Unify(group, typegraph.EmptyAttributes)
	}
	return rewrite.Rewrite(g, PassCombineClasses, opts.Mapping, groups, combine, opts.rewriteOptions()...)
}

func propertyNameKey(props []typegraph.Property) string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	slices.Sort(names)
	return strings.Join(names, "\x00")
}
