package raw

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over raw serialized token values.
// Only Null, String, Int, Float, Bool, Array and Object implement it.
//
// Unlike a decoded host value, a Value remembers which token kind it was
// read from: 3 and 3.0 are distinct (Int and Float).
type Value interface {
	rawValue()
}

// Null is the JSON null token.
type Null struct{}

func (Null) rawValue() {}

// String is a string token.
type String string

func (String) rawValue() {}

// Int is an integer number token (no fraction, no exponent).
type Int int64

func (Int) rawValue() {}

// Float is a number token written with a fraction or exponent.
type Float float64

func (Float) rawValue() {}

// Bool is a boolean token.
type Bool bool

func (Bool) rawValue() {}

// Array is a sequence of values.
type Array []Value

func (Array) rawValue() {}

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is an ordered list of members. Keys are unique; the order is the
// order in which they appeared in the source document.
type Object []Member

func (Object) rawValue() {}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Keys returns the member keys in document order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for astral runes.
func (o Object) SortedKeys() []string {
	keys := o.Keys()
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// M is shorthand for building an Object member.
//
//	raw.Object{raw.M("id", raw.Int(1)), raw.M("name", raw.String("cart"))}
func M(key string, v Value) Member {
	return Member{Key: key, Value: v}
}

// compareKeysRFC8785 compares strings by UTF-16 code units as RFC 8785 requires.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// TokenKind classifies the first token of a serialized value. A decoding
// choice dispatches on it.
type TokenKind int

const (
	TokenNull TokenKind = iota
	TokenInteger
	TokenFloat
	TokenBool
	TokenString
	TokenStartObject
	TokenStartArray
)

// AllTokenKinds lists every token kind in dispatch order.
var AllTokenKinds = []TokenKind{
	TokenNull, TokenInteger, TokenFloat, TokenBool, TokenString, TokenStartObject, TokenStartArray,
}

func (k TokenKind) String() string {
	switch k {
	case TokenNull:
		return "null"
	case TokenInteger:
		return "integer"
	case TokenFloat:
		return "float"
	case TokenBool:
		return "bool"
	case TokenString:
		return "string"
	case TokenStartObject:
		return "start-object"
	case TokenStartArray:
		return "start-array"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// KindOf reports the token kind a value was read from.
func KindOf(v Value) TokenKind {
	switch v.(type) {
	case Null:
		return TokenNull
	case Int:
		return TokenInteger
	case Float:
		return TokenFloat
	case Bool:
		return TokenBool
	case String:
		return TokenString
	case Object:
		return TokenStartObject
	case Array:
		return TokenStartArray
	}
	panic(fmt.Sprintf("raw: unknown value type %T", v))
}

// Equal reports deep equality, including member order of objects.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String, Int, Float, Bool:
		return a == b
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y, ok := b.(Object)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i].Key != y[i].Key || !Equal(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
