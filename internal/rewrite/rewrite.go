// Package rewrite builds the next type graph generation from the previous
// one.
//
// A pass hands Rewrite a partition of some old types into groups and a
// Replacer. Every group gets a forwarding reference before anything is
// built, so replacement types may refer to themselves. Every type outside
// the groups is reconstituted lazily: children first mapped through the
// memo, then the type re-added to the new builder, where hash-consing
// collapses duplicates.
//
// INVARIANTS:
//   - every old type maps to exactly one new type (Result.Forward is total)
//   - the memo lives for one Rewrite call and is never shared
//   - no new type references the old generation
package rewrite

import (
	"io"
	"log/slog"

	"github.com/roach88/typeshape/internal/typegraph"
)

// Replacer builds the replacement for one group. It must return the
// forwarding reference, or a reference the forwarding reference can be
// aliased to when the replacer left it unresolved.
type Replacer func(group []typegraph.TypeRef, b *Builder, forwardingRef typegraph.TypeRef) typegraph.TypeRef

// Option configures a Rewrite call.
type Option func(*options)

type options struct {
	logger *slog.Logger
	trace  bool
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDebugTrace records and logs, for every old type, the new type it was
// reconstituted into.
func WithDebugTrace(on bool) Option {
	return func(o *options) {
		o.trace = on
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Reconstitution is one trace entry.
type Reconstitution struct {
	Old      typegraph.TypeRef
	New      typegraph.TypeRef
	Kind     typegraph.Kind
	Replaced bool
}

// Result is the outcome of one pass.
type Result struct {
	// Graph is the new generation.
	Graph *typegraph.Graph
	// Trace is empty unless WithDebugTrace was set.
	Trace []Reconstitution
	// Diagnostics holds what this pass recorded. Graph.Diagnostics also
	// carries those of earlier generations.
	Diagnostics []typegraph.Diagnostic

	from    typegraph.Generation
	forward []typegraph.TypeRef
}

// Forward maps a reference of the old generation to its new reference.
func (r *Result) Forward(old typegraph.TypeRef) typegraph.TypeRef {
	typegraph.Assert(old.Generation() == r.from, "Forward", "reference %s is not from generation %d", old, r.from)
	return r.forward[old.Index()]
}

// Rewrite runs one pass over g. mapping, when non-nil, re-maps transformed
// string kinds as types are reconstituted.
func Rewrite(
	g *typegraph.Graph,
	pass string,
	mapping typegraph.StringTypeMapping,
	groups [][]typegraph.TypeRef,
	replacer Replacer,
	opts ...Option,
) *Result {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Builder{
		Builder: typegraph.NewBuilder(pass),
		old:     g,
		mapping: mapping,
		memo:    make(map[typegraph.TypeRef]typegraph.TypeRef),
		group:   make(map[typegraph.TypeRef]int),
		pass:    pass,
		opts:    o,
	}

	for gi, group := range groups {
		typegraph.Assert(len(group) > 0, pass, "replacement group %d is empty", gi)
		f := b.AddForwardRef()
		for _, m := range group {
			prev, dup := b.group[m]
			typegraph.Assert(!dup, pass, "type %s is in groups %d and %d", m, prev, gi)
			b.group[m] = gi
			b.memo[m] = f
		}
		b.forwarding = append(b.forwarding, f)
	}

	for _, tl := range g.TopLevels() {
		b.AddTopLevel(tl.Name, b.ReconstituteTypeRef(tl.Type))
	}
	for gi, group := range groups {
		b.replace(gi, group, replacer)
	}
	for _, r := range g.AllTypesUnordered() {
		b.ReconstituteTypeRef(r)
	}

	b.CarryDiagnostics(g.Diagnostics())
	graph, remap := b.FinishWithRemap()

	res := &Result{
		Graph:       graph,
		Diagnostics: b.diagnostics,
		from:        g.Generation(),
		forward:     make([]typegraph.TypeRef, g.Len()),
	}
	for _, old := range g.AllTypesUnordered() {
		res.forward[old.Index()] = remap(b.memo[old])
	}
	for _, e := range b.trace {
		e.New = remap(e.New)
		res.Trace = append(res.Trace, e)
	}

	o.logger.Info("rewrite pass finished",
		"pass", pass,
		"groups", len(groups),
		"types_in", g.Len(),
		"types_out", graph.Len(),
		"diagnostics", len(res.Diagnostics),
	)
	return res
}

func (b *Builder) replace(gi int, group []typegraph.TypeRef, replacer Replacer) {
	f := b.forwarding[gi]
	result := replacer(group, b, f)
	typegraph.Assert(result.IsValid(), b.pass, "replacer returned no type for group %d", gi)
	switch {
	case b.Canonical(result) == b.Canonical(f):
	case !b.IsResolved(f):
		b.Alias(f, result)
	default:
		typegraph.Fail(b.pass, "replacer resolved forwarding ref %s but returned %s", f, result)
	}
	for _, m := range group {
		b.record(m, f, true)
	}
}

func (b *Builder) record(old, to typegraph.TypeRef, replaced bool) {
	if !b.opts.trace {
		return
	}
	kind := b.old.Kind(old)
	b.trace = append(b.trace, Reconstitution{Old: old, New: to, Kind: kind, Replaced: replaced})
	b.opts.logger.Debug("reconstituted",
		"pass", b.pass,
		"old", old.String(),
		"new", to.String(),
		"kind", kind.String(),
		"replaced", replaced,
	)
}
