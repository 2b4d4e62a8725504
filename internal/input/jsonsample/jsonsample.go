// Package jsonsample infers a type graph from example JSON documents.
//
// Every sample of one name is converted into types and the results are
// unified into that name's top-level type. Strings that follow the
// convention of an active transformed string kind are typed as that kind.
package jsonsample

import (
	"log/slog"
	"slices"

	"github.com/roach88/typeshape/internal/codec"
	"github.com/roach88/typeshape/internal/input"
	"github.com/roach88/typeshape/internal/raw"
	"github.com/roach88/typeshape/internal/typegraph"
	"github.com/roach88/typeshape/internal/unify"
)

// Pass is the pass name recorded on the generation Infer builds.
const Pass = "json-samples"

// Sample is one JSON document.
type Sample struct {
	// Name is the top-level type the document is an instance of.
	Name string
	// Source labels the document in errors and provenance.
	Source string
	Data   []byte
}

// Options configure inference.
type Options struct {
	// Mapping selects which transformed string kinds are detected. Nil
	// detects all of them.
	Mapping         typegraph.StringTypeMapping
	ConflateNumbers bool
	Logger          *slog.Logger
}

// Infer builds the first generation from samples. Top levels appear in
// the order their names are first seen.
func Infer(samples []Sample, opts Options) (*typegraph.Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mapping := opts.Mapping
	if mapping == nil {
		mapping = typegraph.AllStringTypes()
	}

	b := typegraph.NewBuilder(Pass)
	u := unify.InBuilder(b, unify.Options{ConflateNumbers: opts.ConflateNumbers})
	inf := &inferrer{b: b, u: u, mapping: mapping}

	var names []string
	byName := make(map[string][]typegraph.TypeRef)
	sources := make(map[string][]string)
	for _, s := range samples {
		v, err := raw.Unmarshal(s.Data)
		if err != nil {
			return nil, &input.Error{Source: s.Source, Message: "invalid JSON", Err: err}
		}
		if _, seen := byName[s.Name]; !seen {
			names = append(names, s.Name)
		}
		byName[s.Name] = append(byName[s.Name], inf.typeOf(v))
		sources[s.Name] = append(sources[s.Name], s.Source)
	}

	for _, name := range names {
		attrs := typegraph.CombineAttributes(
			typegraph.Names.Make([]string{name}),
			typegraph.Provenance.Make(slices.Clone(sources[name])),
		)
		b.AddTopLevel(name, u.Unify(byName[name], attrs))
	}

	g := b.FinishReachable()
	logger.Info("samples inferred",
		"samples", len(samples),
		"top_levels", len(names),
		"types", g.Len(),
	)
	return g, nil
}

type inferrer struct {
	b       *typegraph.Builder
	u       *unify.Unifier
	mapping typegraph.StringTypeMapping
}

func (inf *inferrer) prim(k typegraph.Kind) typegraph.TypeRef {
	return inf.b.Add(typegraph.Primitive{K: k}, typegraph.EmptyAttributes)
}

func (inf *inferrer) typeOf(v raw.Value) typegraph.TypeRef {
	switch x := v.(type) {
	case raw.Null:
		return inf.prim(typegraph.KindNull)
	case raw.Bool:
		return inf.prim(typegraph.KindBool)
	case raw.Int:
		return inf.prim(typegraph.KindInteger)
	case raw.Float:
		return inf.prim(typegraph.KindDouble)
	case raw.String:
		return inf.prim(inf.stringKind(string(x)))
	case raw.Array:
		if len(x) == 0 {
			return inf.b.Add(typegraph.Array{Items: inf.prim(typegraph.KindAny)}, typegraph.EmptyAttributes)
		}
		items := make([]typegraph.TypeRef, len(x))
		for i, item := range x {
			items[i] = inf.typeOf(item)
		}
		return inf.b.Add(typegraph.Array{Items: inf.u.Unify(items, typegraph.EmptyAttributes)}, typegraph.EmptyAttributes)
	case raw.Object:
		props := make([]typegraph.Property, len(x))
		for i, m := range x {
			props[i] = typegraph.Property{Name: m.Key, Type: inf.typeOf(m.Value)}
		}
		return inf.b.Add(typegraph.Class{Properties: props}, typegraph.EmptyAttributes)
	}
	typegraph.Fail("jsonsample.typeOf", "unexpected raw value %T", v)
	return typegraph.NoRef
}

// stringKind returns the first active transformed kind whose convention
// s follows, or plain string.
func (inf *inferrer) stringKind(s string) typegraph.Kind {
	for _, k := range typegraph.TransformedStringKinds {
		if !inf.mapping.Active(k) {
			continue
		}
		v, ok := codec.ParseString(k, s)
		if !ok {
			continue
		}
		if k == typegraph.KindURI && !hasHost(v) {
			continue
		}
		return k
	}
	return typegraph.KindString
}
