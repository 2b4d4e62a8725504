// Package passes holds the rewrite passes that normalize a type graph
// between the front end and transformer derivation.
//
// Every pass is a single rewrite.Rewrite call: it chooses groups of old
// types and builds each group's replacement. Passes never mutate their
// input generation.
package passes

import (
	"log/slog"

	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/typegraph"
	"github.com/roach88/typeshape/internal/unify"
)

// Pass names, recorded on generations, diagnostics and traces.
const (
	PassMapStringTypes    = "map-string-types"
	PassReplaceObjectType = "replace-object-type"
	PassCombineClasses    = "combine-classes"
)

// Options are shared by all passes.
type Options struct {
	// Mapping re-maps transformed string kinds while types are
	// reconstituted. Nil leaves kinds alone.
	Mapping typegraph.StringTypeMapping

	// ConflateNumbers is handed to the unifier when a pass merges types.
	ConflateNumbers bool

	// LeaveFullObjects restricts object normalization to degenerate objects:
	// no properties, or no additional properties.
	LeaveFullObjects bool

	// DebugTrace records every reconstitution on the rewrite result.
	DebugTrace bool

	Logger *slog.Logger
}

func (o Options) rewriteOptions() []rewrite.Option {
	return []rewrite.Option{rewrite.WithLogger(o.Logger), rewrite.WithDebugTrace(o.DebugTrace)}
}

func (o Options) unifier(b *rewrite.Builder) *unify.Unifier {
	return unify.New(b.Old(), b.Builder, b.ReconstituteTypeRef, unify.Options{ConflateNumbers: o.ConflateNumbers})
}

// reconstituteProperties maps property types into the new generation,
// keeping names, order and optionality.
func reconstituteProperties(b *rewrite.Builder, props []typegraph.Property) []typegraph.Property {
	out := make([]typegraph.Property, len(props))
	for i, p := range props {
		out[i] = typegraph.Property{Name: p.Name, Type: b.ReconstituteTypeRef(p.Type), Optional: p.Optional}
	}
	return out
}
