package typegraph

import "fmt"

// Kind identifies the variant of a type, and for primitives which primitive.
type Kind int

const (
	KindNone Kind = iota
	KindAny
	KindNull
	KindBool
	KindInteger
	KindDouble
	KindString

	// Transformed string subkinds: serialized as a string token, decoded
	// into a richer value.
	KindDate
	KindTime
	KindDateTime
	KindUUID
	KindURI
	KindIntegerString
	KindBoolString

	KindArray
	KindMap
	KindClass
	KindObject
	KindEnum
	KindUnion
)

var kindNames = map[Kind]string{
	KindNone:          "none",
	KindAny:           "any",
	KindNull:          "null",
	KindBool:          "bool",
	KindInteger:       "integer",
	KindDouble:        "double",
	KindString:        "string",
	KindDate:          "date",
	KindTime:          "time",
	KindDateTime:      "date-time",
	KindUUID:          "uuid",
	KindURI:           "uri",
	KindIntegerString: "integer-string",
	KindBoolString:    "bool-string",
	KindArray:         "array",
	KindMap:           "map",
	KindClass:         "class",
	KindObject:        "object",
	KindEnum:          "enum",
	KindUnion:         "union",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("unknown type kind %q", name)
}

// TransformedStringKinds lists every transformed string subkind.
var TransformedStringKinds = []Kind{
	KindDate, KindTime, KindDateTime, KindUUID, KindURI, KindIntegerString, KindBoolString,
}

// IsPrimitive reports whether types of this kind have no children.
func (k Kind) IsPrimitive() bool {
	return k >= KindNone && k <= KindBoolString
}

// IsTransformedString reports whether k is serialized as a string but
// decoded into something richer.
func (k Kind) IsTransformedString() bool {
	return k >= KindDate && k <= KindBoolString
}

// IsStringLike reports whether values of this kind are read from a string
// token: plain strings, transformed strings and enums.
func (k Kind) IsStringLike() bool {
	return k == KindString || k.IsTransformedString() || k == KindEnum
}

// IsObjectLike reports whether values of this kind are read from an
// object-start token.
func (k Kind) IsObjectLike() bool {
	return k == KindClass || k == KindMap || k == KindObject
}

// StructuralKind is the partition a union enforces: no two members of a
// union share a structural kind. Class, map and object share one because
// all three start with the same token.
type StructuralKind string

// Structural returns the structural kind of k.
func (k Kind) Structural() StructuralKind {
	switch {
	case k.IsObjectLike():
		return "object"
	default:
		return StructuralKind(k.String())
	}
}
