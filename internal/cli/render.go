package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xlab/treeprint"

	"github.com/roach88/typeshape/internal/transform"
	"github.com/roach88/typeshape/internal/typegraph"
)

// renderGraph draws the types reachable from g's top levels as a tree.
// A type reached a second time is printed once more as a leaf marked
// "(see above)", which also cuts cycles.
func renderGraph(g *typegraph.Graph) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("%s (%d types)", g.Pass(), g.Len()))
	r := &graphRenderer{g: g, seen: make(map[typegraph.TypeRef]bool)}
	for _, tl := range g.TopLevels() {
		r.add(tree, tl.Name, tl.Type)
	}
	return tree.String()
}

type graphRenderer struct {
	g    *typegraph.Graph
	seen map[typegraph.TypeRef]bool
}

func refLabel(ref typegraph.TypeRef) string {
	return fmt.Sprintf("t%d", ref.Index())
}

func (r *graphRenderer) label(ref typegraph.TypeRef) string {
	var sb strings.Builder
	sb.WriteString(refLabel(ref))
	sb.WriteByte(' ')
	switch t := r.g.Type(ref).(type) {
	case typegraph.Class:
		sb.WriteString("class")
		if t.Fixed {
			sb.WriteString(" (fixed)")
		}
	case typegraph.Enum:
		fmt.Fprintf(&sb, "enum [%s]", strings.Join(t.Cases, " "))
	default:
		sb.WriteString(r.g.Kind(ref).String())
	}
	if desc := typegraph.DescriptionText(r.g.Attributes(ref)); desc != "" {
		fmt.Fprintf(&sb, " // %s", desc)
	}
	return sb.String()
}

func (r *graphRenderer) add(parent treeprint.Tree, name string, ref typegraph.TypeRef) {
	text := fmt.Sprintf("%s: %s", name, r.label(ref))
	xf, hasXf := transform.ForType(r.g, ref)
	if len(r.g.Type(ref).Children()) == 0 && !hasXf {
		parent.AddNode(text)
		return
	}
	if r.seen[ref] {
		parent.AddNode(text + " (see above)")
		return
	}
	r.seen[ref] = true

	branch := parent.AddBranch(text)
	switch t := r.g.Type(ref).(type) {
	case typegraph.Class:
		r.properties(branch, t.Properties)
	case typegraph.Object:
		r.properties(branch, t.Properties)
		if t.HasAdditional() {
			r.add(branch, "[additional]", t.Additional)
		}
	case typegraph.Array:
		r.add(branch, "[items]", t.Items)
	case typegraph.Map:
		r.add(branch, "[values]", t.Values)
	case typegraph.Union:
		for _, m := range t.Members {
			r.add(branch, "|", m)
		}
	}
	if hasXf {
		xb := branch.AddBranch(fmt.Sprintf("transformation -> %s", r.label(xf.TargetType)))
		renderTransformer(xb, transform.Describe(xf.Transformer, func(ref typegraph.TypeRef) any {
			return r.g.Kind(ref).String()
		}))
	}
}

func (r *graphRenderer) properties(branch treeprint.Tree, props []typegraph.Property) {
	for _, p := range props {
		name := p.Name
		if p.Optional {
			name += "?"
		}
		r.add(branch, name, p.Type)
	}
}

// renderTransformer draws a described transformer: its kind and scalar
// fields on one line, nested transformers as branches.
func renderTransformer(parent treeprint.Tree, node map[string]any) {
	keys := make([]string, 0, len(node))
	for k := range node {
		if k != "kind" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var fields []string
	var nested []string
	for _, k := range keys {
		switch node[k].(type) {
		case map[string]any, []any:
			nested = append(nested, k)
		default:
			fields = append(fields, fmt.Sprintf("%s=%v", k, node[k]))
		}
	}

	text := fmt.Sprint(node["kind"])
	if len(fields) > 0 {
		text += " " + strings.Join(fields, " ")
	}
	if len(nested) == 0 {
		parent.AddNode(text)
		return
	}
	branch := parent.AddBranch(text)
	for _, k := range nested {
		switch v := node[k].(type) {
		case map[string]any:
			renderTransformer(branch.AddBranch(k), v)
		case []any:
			kb := branch.AddBranch(k)
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					renderTransformer(kb, m)
				}
			}
		}
	}
}
