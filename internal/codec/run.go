package codec

import (
	"unicode/utf8"

	"github.com/roach88/typeshape/internal/raw"
	"github.com/roach88/typeshape/internal/transform"
	"github.com/roach88/typeshape/internal/typegraph"
)

// outcome of running a transformer on one value. An unmatched outcome is
// not an error: a surrounding Choice tries its next member.
type outcome struct {
	val     any
	matched bool
	err     error
}

func matched(v any) outcome { return outcome{val: v, matched: true} }

// run interprets a decode or encode tree. target is the type the tree
// produces when it ends without a consumer.
func (c *Codec) run(x transform.Transformer, v any, target typegraph.TypeRef, path string) (any, bool, error) {
	o := transform.Visit[outcome](x, step{c: c, val: v, target: target, path: path})
	return o.val, o.matched, o.err
}

type step struct {
	c      *Codec
	val    any
	target typegraph.TypeRef
	path   string
}

func (s step) on(v any) step {
	s.val = v
	return s
}

// then passes v to next, or finishes with v when there is no next.
func (s step) then(next transform.Transformer, v any) outcome {
	if next == nil {
		return matched(v)
	}
	return transform.Visit[outcome](next, s.on(v))
}

func (s step) raw(op string) raw.Value {
	rv, ok := s.val.(raw.Value)
	typegraph.Assert(ok, op, "expected a raw value, got %T", s.val)
	return rv
}

func (s step) Decoding(x transform.Decoding) outcome {
	rv := s.raw("codec.Decoding")
	if x.Consumer == nil {
		out, err := s.c.decode(s.target, rv, s.path)
		if err != nil {
			return outcome{err: err}
		}
		return matched(out)
	}
	out, err := s.c.decode(x.Source, rv, s.path)
	if err != nil {
		return outcome{err: err}
	}
	return s.then(x.Consumer, out)
}

func (s step) DecodingChoice(x transform.DecodingChoice) outcome {
	rv := s.raw("codec.DecodingChoice")
	arm, ok := x.Branch(raw.KindOf(rv))
	if !ok {
		return outcome{}
	}
	return transform.Visit[outcome](arm, s)
}

func (s step) ArrayDecoding(x transform.ArrayDecoding) outcome {
	arr, ok := s.raw("codec.ArrayDecoding").(raw.Array)
	if !ok {
		return outcome{}
	}
	out := make([]any, len(arr))
	for i, item := range arr {
		p := index(s.path, i)
		v, ok, err := s.c.run(x.ItemTransformer, item, x.ItemTargetType, p)
		if err != nil {
			return outcome{err: err}
		}
		if !ok {
			return outcome{err: s.c.decodeError(p, x.ItemTargetType, "no transformation accepts a %s token", raw.KindOf(item))}
		}
		out[i] = v
	}
	return matched(out)
}

func (s step) ArrayEncoding(x transform.ArrayEncoding) outcome {
	items, ok := s.val.([]any)
	if !ok {
		return outcome{}
	}
	out := make(raw.Array, len(items))
	for i, item := range items {
		p := index(s.path, i)
		v, ok, err := s.c.run(x.ItemTransformer, item, x.ItemTargetType, p)
		if err != nil {
			return outcome{err: err}
		}
		if !ok {
			return outcome{err: s.c.encodeError(p, x.Source, "no transformation accepts %T", item)}
		}
		out[i] = v.(raw.Value)
	}
	return matched(out)
}

// Choice returns the first member that matches. A failing member does not
// stop the search; its error is reported only if nothing matches. A choice
// among string literals looks the value up instead.
func (s step) Choice(x transform.Choice) outcome {
	if cases, ok := x.StringCases(); ok {
		str, isString := s.val.(string)
		if !isString {
			return outcome{}
		}
		next, found := cases[str]
		if !found {
			return outcome{}
		}
		return s.then(next, str)
	}

	var failed error
	for _, t := range x.Transformers {
		o := transform.Visit[outcome](t, s)
		if o.err != nil {
			if failed == nil {
				failed = o.err
			}
			continue
		}
		if o.matched {
			return o
		}
	}
	return outcome{err: failed}
}

func (s step) StringMatch(x transform.StringMatch) outcome {
	if str, ok := s.val.(string); ok && str == x.Case {
		return s.then(x.Transformer, str)
	}
	return outcome{}
}

func (s step) StringProducer(x transform.StringProducer) outcome {
	return s.then(x.Consumer, x.Result)
}

func (s step) UnionMemberMatch(x transform.UnionMemberMatch) outcome {
	if u, ok := s.c.g.Type(x.Source).(typegraph.Union); ok {
		if _, nullable := typegraph.NullableFromUnion(s.c.g, u); nullable {
			if (s.c.g.Kind(x.Member) == typegraph.KindNull) != (s.val == nil) {
				return outcome{}
			}
			return s.then(x.Transformer, s.val)
		}
	}
	uv, ok := s.val.(Union)
	if !ok || uv.Member != x.Member {
		return outcome{}
	}
	return s.then(x.Transformer, uv.Value)
}

func (s step) UnionInstantiation(x transform.UnionInstantiation) outcome {
	u, ok := s.c.g.Type(s.target).(typegraph.Union)
	typegraph.Assert(ok, "codec.UnionInstantiation", "target %s is a %s, not a union", s.target, s.c.g.Kind(s.target))
	if _, nullable := typegraph.NullableFromUnion(s.c.g, u); nullable {
		return matched(s.val)
	}
	return matched(Union{Member: x.Source, Value: s.val})
}

// produces is the type a string conversion works on: the consumer's
// source, or the tree's target at the end of the tree.
func (s step) produces(consumer transform.Transformer) typegraph.TypeRef {
	if consumer != nil {
		return consumer.SourceType()
	}
	return s.target
}

func (s step) ParseString(x transform.ParseString) outcome {
	str, ok := s.val.(string)
	if !ok {
		return outcome{}
	}
	v, ok := ParseString(s.c.g.Kind(s.produces(x.Consumer)), str)
	if !ok {
		return outcome{}
	}
	return s.then(x.Consumer, v)
}

func (s step) Stringify(x transform.Stringify) outcome {
	str, ok := Stringify(s.c.g.Kind(x.Source), s.val)
	if !ok {
		return outcome{}
	}
	return s.then(x.Consumer, str)
}

func (s step) MinMaxLengthCheck(x transform.MinMaxLengthCheck) outcome {
	str, ok := s.val.(string)
	if !ok || !x.Range.Contains(float64(utf8.RuneCountInString(str))) {
		return outcome{}
	}
	return s.then(x.Consumer, str)
}

func (s step) MinMaxValueCheck(x transform.MinMaxValueCheck) outcome {
	f, ok := asFloat(s.val)
	if !ok || !x.Range.Contains(f) {
		return outcome{}
	}
	return s.then(x.Consumer, s.val)
}

func (s step) Encoding(x transform.Encoding) outcome {
	out, err := s.c.encode(x.Source, s.val, s.path)
	if err != nil {
		return outcome{err: err}
	}
	return matched(out)
}
