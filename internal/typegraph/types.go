package typegraph

import (
	"slices"
	"strings"
)

// Type is a sealed interface over the type variants. Children are always
// TypeRefs resolved through the owning graph, never Go pointers, so
// recursive and mutually recursive types need no cycles in memory.
type Type interface {
	Kind() Kind
	// Children returns every reference the type holds, in a stable order.
	Children() []TypeRef
	typeNode()
}

// Primitive is any childless type: null, bool, integer, double, string,
// the transformed string subkinds, any and none.
type Primitive struct {
	K Kind
}

// Array is a homogeneous sequence.
type Array struct {
	Items TypeRef
}

// Map is an open keyed collection with a uniform value type.
type Map struct {
	Values TypeRef
}

// Property is one named field of a Class or Object.
type Property struct {
	Name     string
	Type     TypeRef
	Optional bool
}

// Class is a closed record. Fixed classes are never merged with siblings,
// even when structurally identical.
type Class struct {
	Properties []Property
	Fixed      bool
}

// Object is the pre-normalization shape: named properties plus an optional
// type for any other key. An invalid Additional means no other keys are
// allowed.
type Object struct {
	Properties []Property
	Additional TypeRef
}

// Enum is an ordered set of string literals.
type Enum struct {
	Cases []string
}

// Union is a set of alternatives, at most one per structural kind.
// Members are kept sorted by TypeRef.
type Union struct {
	Members []TypeRef
}

func (Primitive) typeNode() {}
func (Array) typeNode()     {}
func (Map) typeNode()       {}
func (Class) typeNode()     {}
func (Object) typeNode()    {}
func (Enum) typeNode()      {}
func (Union) typeNode()     {}

func (p Primitive) Kind() Kind { return p.K }
func (Array) Kind() Kind       { return KindArray }
func (Map) Kind() Kind         { return KindMap }
func (Class) Kind() Kind       { return KindClass }
func (Object) Kind() Kind      { return KindObject }
func (Enum) Kind() Kind        { return KindEnum }
func (Union) Kind() Kind       { return KindUnion }

func (Primitive) Children() []TypeRef { return nil }
func (a Array) Children() []TypeRef   { return []TypeRef{a.Items} }
func (m Map) Children() []TypeRef     { return []TypeRef{m.Values} }
func (Enum) Children() []TypeRef      { return nil }
func (u Union) Children() []TypeRef   { return slices.Clone(u.Members) }

func (c Class) Children() []TypeRef { return propertyRefs(c.Properties) }

func (o Object) Children() []TypeRef {
	refs := propertyRefs(o.Properties)
	if o.Additional.IsValid() {
		refs = append(refs, o.Additional)
	}
	return refs
}

// HasAdditional reports whether keys other than the named properties are allowed.
func (o Object) HasAdditional() bool { return o.Additional.IsValid() }

func propertyRefs(props []Property) []TypeRef {
	refs := make([]TypeRef, len(props))
	for i, p := range props {
		refs[i] = p.Type
	}
	return refs
}

// LookupProperty finds a property by name.
func LookupProperty(props []Property, name string) (Property, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// MapChildren returns a copy of t with every child reference replaced by f(child).
func MapChildren(t Type, f func(TypeRef) TypeRef) Type {
	switch t := t.(type) {
	case Primitive, Enum:
		return t
	case Array:
		return Array{Items: f(t.Items)}
	case Map:
		return Map{Values: f(t.Values)}
	case Class:
		return Class{Properties: mapProperties(t.Properties, f), Fixed: t.Fixed}
	case Object:
		add := t.Additional
		if add.IsValid() {
			add = f(add)
		}
		return Object{Properties: mapProperties(t.Properties, f), Additional: add}
	case Union:
		members := make([]TypeRef, len(t.Members))
		for i, m := range t.Members {
			members[i] = f(m)
		}
		return Union{Members: members}
	}
	panic(consistencyf("MapChildren", "unknown type variant %T", t))
}

func mapProperties(props []Property, f func(TypeRef) TypeRef) []Property {
	out := make([]Property, len(props))
	for i, p := range props {
		out[i] = Property{Name: p.Name, Type: f(p.Type), Optional: p.Optional}
	}
	return out
}

// structuralKey is the identity of a type without attributes. Two
// non-unique types with the same key in one builder are the same type.
func structuralKey(t Type) string {
	var sb strings.Builder
	sb.WriteString(t.Kind().String())
	switch t := t.(type) {
	case Array:
		sb.WriteString("|" + t.Items.String())
	case Map:
		sb.WriteString("|" + t.Values.String())
	case Class:
		writeProperties(&sb, t.Properties)
	case Object:
		writeProperties(&sb, t.Properties)
		sb.WriteString("|+" + t.Additional.String())
	case Enum:
		for _, c := range t.Cases {
			sb.WriteString("|" + quoteKey(c))
		}
	case Union:
		for _, m := range t.Members {
			sb.WriteString("|" + m.String())
		}
	}
	return sb.String()
}

func writeProperties(sb *strings.Builder, props []Property) {
	for _, p := range props {
		sb.WriteString("|" + quoteKey(p.Name) + ":" + p.Type.String())
		if p.Optional {
			sb.WriteByte('?')
		}
	}
}

func quoteKey(s string) string {
	return strings.NewReplacer(`\`, `\\`, `|`, `\|`, `:`, `\:`).Replace(s)
}
