package transform

import (
	"github.com/roach88/typeshape/internal/raw"
)

// Branch is one arm of a DecodingChoice.
type Branch struct {
	Token       raw.TokenKind
	Transformer Transformer
}

// Branches returns the present arms in token order: null, integer, double,
// bool, string, object, array.
func (x DecodingChoice) Branches() []Branch {
	arms := []Branch{
		{raw.TokenNull, x.Null},
		{raw.TokenInteger, x.Integer},
		{raw.TokenFloat, x.Double},
		{raw.TokenBool, x.Bool},
		{raw.TokenString, x.String},
		{raw.TokenStartObject, x.Object},
		{raw.TokenStartArray, x.Array},
	}
	out := arms[:0]
	for _, a := range arms {
		if a.Transformer != nil {
			out = append(out, a)
		}
	}
	return out
}

// Branch returns the arm that handles a raw token of kind k.
//
// An integer token falls back to the double arm when there is no integer
// arm, and a float token falls back to the integer arm when there is no
// double arm; the integer arm then only accepts floats with no fractional
// part. A token kind with no arm reports false: the value cannot be
// decoded as this type.
func (x DecodingChoice) Branch(k raw.TokenKind) (Transformer, bool) {
	var t Transformer
	switch k {
	case raw.TokenNull:
		t = x.Null
	case raw.TokenInteger:
		t = x.Integer
		if t == nil {
			t = x.Double
		}
	case raw.TokenFloat:
		t = x.Double
		if t == nil {
			t = x.Integer
		}
	case raw.TokenBool:
		t = x.Bool
	case raw.TokenString:
		t = x.String
	case raw.TokenStartObject:
		t = x.Object
	case raw.TokenStartArray:
		t = x.Array
	}
	return t, t != nil
}

// Coverage lists the token kinds some arm handles, in token order.
func (x DecodingChoice) Coverage() []raw.TokenKind {
	var out []raw.TokenKind
	for _, k := range raw.AllTokenKinds {
		if _, ok := x.Branch(k); ok {
			out = append(out, k)
		}
	}
	return out
}

// StringCases reports whether x is a choice among string literals: every
// member is a StringMatch and no case repeats. The map sends each case to
// its match's continuation, nil when the match finishes with the string.
// Consumers dispatch on the value once instead of trying each member.
func (x Choice) StringCases() (map[string]Transformer, bool) {
	if len(x.Transformers) == 0 {
		return nil, false
	}
	cases := make(map[string]Transformer, len(x.Transformers))
	for _, t := range x.Transformers {
		m, ok := t.(StringMatch)
		if !ok {
			return nil, false
		}
		if _, dup := cases[m.Case]; dup {
			return nil, false
		}
		cases[m.Case] = m.Transformer
	}
	return cases, true
}
