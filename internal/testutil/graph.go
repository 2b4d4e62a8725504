// Package testutil holds deterministic fixtures shared by tests: run ID
// generators, a discarding logger and terse graph construction helpers.
package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/typeshape/internal/typegraph"
)

// DiscardLogger drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Prim adds a primitive of kind k.
func Prim(b *typegraph.Builder, k typegraph.Kind) typegraph.TypeRef {
	return b.Add(typegraph.Primitive{K: k}, typegraph.EmptyAttributes)
}

// Prop is a required property.
func Prop(name string, t typegraph.TypeRef) typegraph.Property {
	return typegraph.Property{Name: name, Type: t}
}

// Opt is an optional property.
func Opt(name string, t typegraph.TypeRef) typegraph.Property {
	return typegraph.Property{Name: name, Type: t, Optional: true}
}

// Object adds an object. A zero additional means no additional properties.
func Object(b *typegraph.Builder, additional typegraph.TypeRef, props ...typegraph.Property) typegraph.TypeRef {
	return b.Add(typegraph.Object{Properties: props, Additional: additional}, typegraph.EmptyAttributes)
}

// Class adds a non-fixed class.
func Class(b *typegraph.Builder, props ...typegraph.Property) typegraph.TypeRef {
	return b.Add(typegraph.Class{Properties: props}, typegraph.EmptyAttributes)
}

// Union adds a union of members.
func Union(b *typegraph.Builder, members ...typegraph.TypeRef) typegraph.TypeRef {
	return b.Add(typegraph.Union{Members: members}, typegraph.EmptyAttributes)
}

// Enum adds an enum with the given cases.
func Enum(b *typegraph.Builder, cases ...string) typegraph.TypeRef {
	return b.Add(typegraph.Enum{Cases: cases}, typegraph.EmptyAttributes)
}
