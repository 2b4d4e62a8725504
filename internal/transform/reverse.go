package transform

import (
	"github.com/roach88/typeshape/internal/typegraph"
)

// Reverse turns a decode tree into the encode tree for the same
// Transformation. target is the type the decode tree produces; the result
// consumes it. continuation, when non-nil, receives what the reversed
// tree produces.
//
// Reversing Encoding, ArrayEncoding or UnionMemberMatch, or reversing a
// decoding variant with a continuation, is a consistency violation.
func Reverse(x Transformer, target typegraph.TypeRef, continuation Transformer) Transformer {
	return Visit[Transformer](x, reverser{target: target, cont: continuation})
}

type reverser struct {
	target typegraph.TypeRef
	cont   Transformer
}

// through reverses consumer so that its reversal feeds the transformer
// built by next. Without a consumer next is built on the target.
func (r reverser) through(consumer Transformer, next func(source typegraph.TypeRef, cont Transformer) Transformer) Transformer {
	if consumer == nil {
		return next(r.target, r.cont)
	}
	return Reverse(consumer, r.target, next(consumer.SourceType(), r.cont))
}

func (r reverser) Decoding(x Decoding) Transformer {
	typegraph.Assert(r.cont == nil, "transform.Reverse", "reversing decoding with a continuation")
	if x.Consumer == nil {
		return Encoding{Source: r.target}
	}
	return Reverse(x.Consumer, r.target, Encoding{Source: x.Consumer.SourceType()})
}

func (r reverser) DecodingChoice(x DecodingChoice) Transformer {
	var reversed []Transformer
	for _, b := range x.Branches() {
		reversed = append(reversed, Reverse(b.Transformer, r.target, r.cont))
	}
	return r.choice(reversed)
}

func (r reverser) ArrayDecoding(x ArrayDecoding) Transformer {
	typegraph.Assert(r.cont == nil, "transform.Reverse", "reversing array decoding with a continuation")
	return ArrayEncoding{
		Source:          r.target,
		ItemTargetType:  x.ItemTransformer.SourceType(),
		ItemTransformer: Reverse(x.ItemTransformer, x.ItemTargetType, nil),
	}
}

func (r reverser) ArrayEncoding(ArrayEncoding) Transformer {
	typegraph.Fail("transform.Reverse", "array encoding cannot be reversed")
	return nil
}

func (r reverser) Choice(x Choice) Transformer {
	reversed := make([]Transformer, len(x.Transformers))
	for i, t := range x.Transformers {
		reversed[i] = Reverse(t, r.target, r.cont)
	}
	return r.choice(reversed)
}

// choice combines reversed members. When all of them match the same union
// member, the match is hoisted out and the choice moves inside it.
func (r reverser) choice(reversed []Transformer) Transformer {
	typegraph.Assert(len(reversed) > 0, "transform.Reverse", "choice without members")
	if len(reversed) == 1 {
		return reversed[0]
	}
	first, ok := reversed[0].(UnionMemberMatch)
	if ok {
		inner := make([]Transformer, 0, len(reversed))
		for _, t := range reversed {
			m, isMatch := t.(UnionMemberMatch)
			if !isMatch || m.Member != first.Member {
				ok = false
				break
			}
			inner = append(inner, m.Transformer)
		}
		if ok {
			return UnionMemberMatch{
				Source:      r.target,
				Transformer: Choice{Source: inner[0].SourceType(), Transformers: inner},
				Member:      first.Member,
			}
		}
	}
	return Choice{Source: r.target, Transformers: reversed}
}

func (r reverser) StringMatch(x StringMatch) Transformer {
	var source typegraph.TypeRef
	if x.Transformer != nil {
		source = x.Transformer.SourceType()
	} else {
		source = x.Source
	}
	producer := StringProducer{Source: source, Consumer: r.cont, Result: x.Case}
	if x.Transformer == nil {
		return StringMatch{Source: r.target, Transformer: producer, Case: x.Case}
	}
	return Reverse(x.Transformer, r.target, producer)
}

func (r reverser) StringProducer(x StringProducer) Transformer {
	return r.through(x.Consumer, func(source typegraph.TypeRef, cont Transformer) Transformer {
		return StringMatch{Source: source, Transformer: cont, Case: x.Result}
	})
}

func (r reverser) UnionMemberMatch(UnionMemberMatch) Transformer {
	typegraph.Fail("transform.Reverse", "union member match cannot be reversed")
	return nil
}

func (r reverser) UnionInstantiation(x UnionInstantiation) Transformer {
	typegraph.Assert(r.cont != nil, "transform.Reverse", "reversing union instantiation without a continuation")
	return UnionMemberMatch{Source: r.target, Transformer: r.cont, Member: x.Source}
}

func (r reverser) ParseString(x ParseString) Transformer {
	return r.through(x.Consumer, func(source typegraph.TypeRef, cont Transformer) Transformer {
		return Stringify{Source: source, Consumer: cont}
	})
}

func (r reverser) Stringify(x Stringify) Transformer {
	return r.through(x.Consumer, func(source typegraph.TypeRef, cont Transformer) Transformer {
		return ParseString{Source: source, Consumer: cont}
	})
}

func (r reverser) MinMaxLengthCheck(x MinMaxLengthCheck) Transformer {
	return r.through(x.Consumer, func(source typegraph.TypeRef, cont Transformer) Transformer {
		return MinMaxLengthCheck{Source: source, Consumer: cont, Range: x.Range}
	})
}

func (r reverser) MinMaxValueCheck(x MinMaxValueCheck) Transformer {
	return r.through(x.Consumer, func(source typegraph.TypeRef, cont Transformer) Transformer {
		return MinMaxValueCheck{Source: source, Consumer: cont, Range: x.Range}
	})
}

func (r reverser) Encoding(Encoding) Transformer {
	typegraph.Fail("transform.Reverse", "encoding cannot be reversed")
	return nil
}
