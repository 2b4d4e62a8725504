// Package snapshot renders a type graph generation as canonical JSON.
//
// Types are renumbered in depth-first order from the top levels sorted by
// name, with union members visited in kind order, so the rendering does
// not depend on the TypeRefs a generation happened to hand out. Two
// generations that are structurally identical render to the same bytes,
// which makes snapshots usable for golden files, idempotence checks and
// content hashes.
package snapshot

import (
	"cmp"
	"slices"

	"github.com/roach88/typeshape/internal/raw"
	"github.com/roach88/typeshape/internal/typegraph"
)

// Of builds the snapshot of g as a plain map.
func Of(g *typegraph.Graph) map[string]any {
	tops := g.TopLevels()
	slices.SortFunc(tops, func(a, b typegraph.TopLevel) int { return cmp.Compare(a.Name, b.Name) })

	ids := make(map[typegraph.TypeRef]int)
	var order []typegraph.TypeRef
	var visit func(typegraph.TypeRef)
	visit = func(ref typegraph.TypeRef) {
		if _, ok := ids[ref]; ok {
			return
		}
		ids[ref] = len(order)
		order = append(order, ref)
		for _, c := range children(g, g.Type(ref)) {
			visit(c)
		}
		for _, c := range g.Attributes(ref).Refs() {
			visit(c)
		}
	}
	for _, tl := range tops {
		visit(tl.Type)
	}
	id := func(r typegraph.TypeRef) any { return ids[r] }

	types := make([]any, len(order))
	for i, ref := range order {
		types[i] = entry(g, ref, id)
	}
	topLevels := make([]any, len(tops))
	for i, tl := range tops {
		topLevels[i] = map[string]any{"name": tl.Name, "type": ids[tl.Type]}
	}
	var diags []any
	for _, d := range g.Diagnostics() {
		diags = append(diags, map[string]any{
			"pass":     d.Pass,
			"code":     d.Code,
			"severity": string(d.Severity),
			"message":  d.Message,
		})
	}

	out := map[string]any{
		"top_levels": topLevels,
		"types":      types,
	}
	if len(diags) > 0 {
		out["diagnostics"] = diags
	}
	return out
}

// children returns t's references in snapshot order: union members sorted
// by kind, everything else in declaration order.
func children(g *typegraph.Graph, t typegraph.Type) []typegraph.TypeRef {
	u, ok := t.(typegraph.Union)
	if !ok {
		return t.Children()
	}
	members := slices.Clone(u.Members)
	slices.SortFunc(members, func(a, b typegraph.TypeRef) int { return cmp.Compare(g.Kind(a), g.Kind(b)) })
	return members
}

func entry(g *typegraph.Graph, ref typegraph.TypeRef, id func(typegraph.TypeRef) any) map[string]any {
	t := g.Type(ref)
	e := map[string]any{"kind": t.Kind().String()}
	switch tt := t.(type) {
	case typegraph.Array:
		e["items"] = id(tt.Items)
	case typegraph.Map:
		e["values"] = id(tt.Values)
	case typegraph.Class:
		e["properties"] = properties(tt.Properties, id)
		if tt.Fixed {
			e["fixed"] = true
		}
	case typegraph.Object:
		e["properties"] = properties(tt.Properties, id)
		if tt.HasAdditional() {
			e["additional"] = id(tt.Additional)
		}
	case typegraph.Enum:
		e["cases"] = slices.Clone(tt.Cases)
	case typegraph.Union:
		var members []any
		for _, m := range children(g, tt) {
			members = append(members, id(m))
		}
		e["members"] = members
	}
	if attrs := g.Attributes(ref); !attrs.IsEmpty() {
		e["attributes"] = attrs.Snapshot(id)
	}
	return e
}

func properties(props []typegraph.Property, id func(typegraph.TypeRef) any) []any {
	out := make([]any, len(props))
	for i, p := range props {
		m := map[string]any{"name": p.Name, "type": id(p.Type)}
		if p.Optional {
			m["optional"] = true
		}
		out[i] = m
	}
	return out
}

// JSON renders g as canonical JSON.
func JSON(g *typegraph.Graph) ([]byte, error) {
	return raw.MarshalCanonical(Of(g))
}

// MustJSON is JSON for graphs known to be serializable. Panics on error.
func MustJSON(g *typegraph.Graph) []byte {
	return raw.MustMarshalCanonical(Of(g))
}

// Hash returns the content hash of g's snapshot.
func Hash(g *typegraph.Graph) (string, error) {
	b, err := JSON(g)
	if err != nil {
		return "", err
	}
	return raw.GenerationHash(b), nil
}
