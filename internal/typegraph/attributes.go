package typegraph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// attributeKind is the type-erased view of an AttributeKind[T] that an
// Attributes bag stores next to each value.
type attributeKind interface {
	kindName() string
	combineAny(a, b any) any
	identityAny(v any) (string, bool)
	reconstituteAny(v any, f func(TypeRef) TypeRef) any
	snapshotAny(v any, ref func(TypeRef) any) any
}

// AttributeKindConfig describes how values of one attribute kind behave.
type AttributeKindConfig[T any] struct {
	// Combine merges two values of the kind. It must be commutative and
	// associative so rewrites can combine bags in any order. Required.
	Combine func(a, b T) T

	// Identity renders the value into a type's identity key. Types whose
	// attribute differs are then never deduplicated into one. Nil keeps the
	// kind out of type identity.
	Identity func(v T) string

	// Reconstitute maps TypeRefs held by the value into a new generation.
	// Nil means the kind holds no references.
	Reconstitute func(v T, f func(TypeRef) TypeRef) T

	// Snapshot renders the value for canonical dumps; ref renumbers any
	// TypeRef the value holds. Nil uses fmt.Sprint.
	Snapshot func(v T, ref func(TypeRef) any) any
}

// AttributeKind is a typed key into an Attributes bag.
// Kind names must be unique in a process.
type AttributeKind[T any] struct {
	name string
	cfg  AttributeKindConfig[T]
}

// NewAttributeKind declares an attribute kind. It panics without a Combine func.
func NewAttributeKind[T any](name string, cfg AttributeKindConfig[T]) *AttributeKind[T] {
	if cfg.Combine == nil {
		panic(fmt.Sprintf("typegraph: attribute kind %q has no Combine func", name))
	}
	return &AttributeKind[T]{name: name, cfg: cfg}
}

// Name returns the kind's name.
func (k *AttributeKind[T]) Name() string { return k.name }

func (k *AttributeKind[T]) kindName() string { return k.name }

func (k *AttributeKind[T]) combineAny(a, b any) any {
	return k.cfg.Combine(a.(T), b.(T))
}

func (k *AttributeKind[T]) identityAny(v any) (string, bool) {
	if k.cfg.Identity == nil {
		return "", false
	}
	return k.cfg.Identity(v.(T)), true
}

func (k *AttributeKind[T]) reconstituteAny(v any, f func(TypeRef) TypeRef) any {
	if k.cfg.Reconstitute == nil {
		return v
	}
	return k.cfg.Reconstitute(v.(T), f)
}

func (k *AttributeKind[T]) snapshotAny(v any, ref func(TypeRef) any) any {
	if k.cfg.Snapshot == nil {
		return fmt.Sprint(v)
	}
	return k.cfg.Snapshot(v.(T), ref)
}

// Get returns the kind's value in a, if present.
func (k *AttributeKind[T]) Get(a Attributes) (T, bool) {
	e, ok := a.entries[k.name]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value.(T), true
}

// Make returns a bag holding only v.
func (k *AttributeKind[T]) Make(v T) Attributes {
	return Attributes{entries: map[string]attributeEntry{k.name: {kind: k, value: v}}}
}

// Set returns a copy of a with the kind's value replaced by v.
func (k *AttributeKind[T]) Set(a Attributes, v T) Attributes {
	out := a.clone()
	out.entries[k.name] = attributeEntry{kind: k, value: v}
	return out
}

// Add returns a copy of a with v combined into the kind's current value.
func (k *AttributeKind[T]) Add(a Attributes, v T) Attributes {
	return CombineAttributes(a, k.Make(v))
}

// Remove returns a copy of a without the kind.
func (k *AttributeKind[T]) Remove(a Attributes) Attributes {
	if _, ok := a.entries[k.name]; !ok {
		return a
	}
	out := a.clone()
	delete(out.entries, k.name)
	return out
}

type attributeEntry struct {
	kind  attributeKind
	value any
}

// Attributes is an immutable bag of typed metadata records, at most one
// per kind. The zero value is the empty bag.
type Attributes struct {
	entries map[string]attributeEntry
}

// EmptyAttributes is the empty bag.
var EmptyAttributes = Attributes{}

// IsEmpty reports whether the bag holds nothing.
func (a Attributes) IsEmpty() bool { return len(a.entries) == 0 }

// Len returns the number of kinds present.
func (a Attributes) Len() int { return len(a.entries) }

// Names returns the kind names present, sorted.
func (a Attributes) Names() []string {
	return slices.Sorted(maps.Keys(a.entries))
}

func (a Attributes) clone() Attributes {
	out := Attributes{entries: make(map[string]attributeEntry, len(a.entries)+1)}
	maps.Copy(out.entries, a.entries)
	return out
}

// CombineAttributes merges bags kind by kind using each kind's Combine.
// The result does not depend on argument order.
func CombineAttributes(bags ...Attributes) Attributes {
	var out Attributes
	for _, b := range bags {
		if b.IsEmpty() {
			continue
		}
		if out.IsEmpty() {
			out = b
			continue
		}
		merged := out.clone()
		for name, e := range b.entries {
			if cur, ok := merged.entries[name]; ok {
				merged.entries[name] = attributeEntry{kind: cur.kind, value: cur.kind.combineAny(cur.value, e.value)}
			} else {
				merged.entries[name] = e
			}
		}
		out = merged
	}
	return out
}

// Reconstitute maps every TypeRef held by an attribute value through f.
func (a Attributes) Reconstitute(f func(TypeRef) TypeRef) Attributes {
	if a.IsEmpty() {
		return a
	}
	out := Attributes{entries: make(map[string]attributeEntry, len(a.entries))}
	for name, e := range a.entries {
		out.entries[name] = attributeEntry{kind: e.kind, value: e.kind.reconstituteAny(e.value, f)}
	}
	return out
}

// Refs returns the TypeRefs held by attribute values, in kind-name order.
func (a Attributes) Refs() []TypeRef {
	var refs []TypeRef
	for _, name := range a.Names() {
		e := a.entries[name]
		e.kind.reconstituteAny(e.value, func(r TypeRef) TypeRef {
			refs = append(refs, r)
			return r
		})
	}
	return refs
}

// Snapshot renders the bag as a plain map for canonical dumps.
func (a Attributes) Snapshot(ref func(TypeRef) any) map[string]any {
	out := make(map[string]any, len(a.entries))
	for name, e := range a.entries {
		out[name] = e.kind.snapshotAny(e.value, ref)
	}
	return out
}

// identityKey renders the identity-relevant part of the bag.
func (a Attributes) identityKey() string {
	var sb strings.Builder
	for _, name := range a.Names() {
		e := a.entries[name]
		if id, ok := e.kind.identityAny(e.value); ok {
			sb.WriteString("|@" + name + "=" + id)
		}
	}
	return sb.String()
}
