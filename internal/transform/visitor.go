package transform

import (
	"fmt"

	"github.com/roach88/typeshape/internal/typegraph"
)

// Visitor has one method per transformer variant. A renderer implements
// it to translate trees; adding a variant breaks every implementation at
// compile time instead of reaching an unknown-variant failure at run time.
type Visitor[R any] interface {
	Decoding(Decoding) R
	DecodingChoice(DecodingChoice) R
	ArrayDecoding(ArrayDecoding) R
	ArrayEncoding(ArrayEncoding) R
	Choice(Choice) R
	StringMatch(StringMatch) R
	StringProducer(StringProducer) R
	UnionMemberMatch(UnionMemberMatch) R
	UnionInstantiation(UnionInstantiation) R
	ParseString(ParseString) R
	Stringify(Stringify) R
	MinMaxLengthCheck(MinMaxLengthCheck) R
	MinMaxValueCheck(MinMaxValueCheck) R
	Encoding(Encoding) R
}

// Visit dispatches x to the matching method of v.
func Visit[R any](x Transformer, v Visitor[R]) R {
	switch t := x.(type) {
	case Decoding:
		return v.Decoding(t)
	case DecodingChoice:
		return v.DecodingChoice(t)
	case ArrayDecoding:
		return v.ArrayDecoding(t)
	case ArrayEncoding:
		return v.ArrayEncoding(t)
	case Choice:
		return v.Choice(t)
	case StringMatch:
		return v.StringMatch(t)
	case StringProducer:
		return v.StringProducer(t)
	case UnionMemberMatch:
		return v.UnionMemberMatch(t)
	case UnionInstantiation:
		return v.UnionInstantiation(t)
	case ParseString:
		return v.ParseString(t)
	case Stringify:
		return v.Stringify(t)
	case MinMaxLengthCheck:
		return v.MinMaxLengthCheck(t)
	case MinMaxValueCheck:
		return v.MinMaxValueCheck(t)
	case Encoding:
		return v.Encoding(t)
	}
	panic(&typegraph.ConsistencyError{Op: "transform.Visit", Message: fmt.Sprintf("unknown transformer %T", x)})
}

// MapRefs returns x with every TypeRef replaced by f(ref).
func MapRefs(x Transformer, f func(typegraph.TypeRef) typegraph.TypeRef) Transformer {
	return Visit[Transformer](x, refMapper{f})
}

// Refs returns every TypeRef in x in preorder.
func Refs(x Transformer) []typegraph.TypeRef {
	var refs []typegraph.TypeRef
	MapRefs(x, func(r typegraph.TypeRef) typegraph.TypeRef {
		refs = append(refs, r)
		return r
	})
	return refs
}

type refMapper struct {
	f func(typegraph.TypeRef) typegraph.TypeRef
}

func (m refMapper) opt(x Transformer) Transformer {
	if x == nil {
		return nil
	}
	return Visit[Transformer](x, m)
}

func (m refMapper) Decoding(x Decoding) Transformer {
	return Decoding{Source: m.f(x.Source), Consumer: m.opt(x.Consumer)}
}

func (m refMapper) DecodingChoice(x DecodingChoice) Transformer {
	return DecodingChoice{
		Source:  m.f(x.Source),
		Null:    m.opt(x.Null),
		Integer: m.opt(x.Integer),
		Double:  m.opt(x.Double),
		Bool:    m.opt(x.Bool),
		String:  m.opt(x.String),
		Object:  m.opt(x.Object),
		Array:   m.opt(x.Array),
	}
}

func (m refMapper) ArrayDecoding(x ArrayDecoding) Transformer {
	return ArrayDecoding{Source: m.f(x.Source), ItemTargetType: m.f(x.ItemTargetType), ItemTransformer: m.opt(x.ItemTransformer)}
}

func (m refMapper) ArrayEncoding(x ArrayEncoding) Transformer {
	return ArrayEncoding{Source: m.f(x.Source), ItemTargetType: m.f(x.ItemTargetType), ItemTransformer: m.opt(x.ItemTransformer)}
}

func (m refMapper) Choice(x Choice) Transformer {
	out := Choice{Source: m.f(x.Source), Transformers: make([]Transformer, len(x.Transformers))}
	for i, t := range x.Transformers {
		out.Transformers[i] = m.opt(t)
	}
	return out
}

func (m refMapper) StringMatch(x StringMatch) Transformer {
	return StringMatch{Source: m.f(x.Source), Transformer: m.opt(x.Transformer), Case: x.Case}
}

func (m refMapper) StringProducer(x StringProducer) Transformer {
	return StringProducer{Source: m.f(x.Source), Consumer: m.opt(x.Consumer), Result: x.Result}
}

func (m refMapper) UnionMemberMatch(x UnionMemberMatch) Transformer {
	return UnionMemberMatch{Source: m.f(x.Source), Transformer: m.opt(x.Transformer), Member: m.f(x.Member)}
}

func (m refMapper) UnionInstantiation(x UnionInstantiation) Transformer {
	return UnionInstantiation{Source: m.f(x.Source)}
}

func (m refMapper) ParseString(x ParseString) Transformer {
	return ParseString{Source: m.f(x.Source), Consumer: m.opt(x.Consumer)}
}

func (m refMapper) Stringify(x Stringify) Transformer {
	return Stringify{Source: m.f(x.Source), Consumer: m.opt(x.Consumer)}
}

func (m refMapper) MinMaxLengthCheck(x MinMaxLengthCheck) Transformer {
	return MinMaxLengthCheck{Source: m.f(x.Source), Consumer: m.opt(x.Consumer), Range: x.Range}
}

func (m refMapper) MinMaxValueCheck(x MinMaxValueCheck) Transformer {
	return MinMaxValueCheck{Source: m.f(x.Source), Consumer: m.opt(x.Consumer), Range: x.Range}
}

func (m refMapper) Encoding(x Encoding) Transformer {
	return Encoding{Source: m.f(x.Source)}
}

// Describe renders x as a plain map for snapshots and identity keys; id
// renders each TypeRef.
func Describe(x Transformer, id func(typegraph.TypeRef) any) map[string]any {
	return Visit[map[string]any](x, describer{id})
}

type describer struct {
	id func(typegraph.TypeRef) any
}

func (d describer) node(x Transformer, fields map[string]any) map[string]any {
	fields["kind"] = x.Kind()
	fields["source"] = d.id(x.SourceType())
	return fields
}

func (d describer) put(fields map[string]any, key string, x Transformer) {
	if x != nil {
		fields[key] = Visit[map[string]any](x, d)
	}
}

func (d describer) consumer(x Transformer, consumer Transformer, fields map[string]any) map[string]any {
	d.put(fields, "consumer", consumer)
	return d.node(x, fields)
}

func (d describer) Decoding(x Decoding) map[string]any {
	return d.consumer(x, x.Consumer, map[string]any{})
}

func (d describer) DecodingChoice(x DecodingChoice) map[string]any {
	fields := map[string]any{}
	d.put(fields, "null", x.Null)
	d.put(fields, "integer", x.Integer)
	d.put(fields, "double", x.Double)
	d.put(fields, "bool", x.Bool)
	d.put(fields, "string", x.String)
	d.put(fields, "object", x.Object)
	d.put(fields, "array", x.Array)
	return d.node(x, fields)
}

func (d describer) ArrayDecoding(x ArrayDecoding) map[string]any {
	fields := map[string]any{"item_target": d.id(x.ItemTargetType)}
	d.put(fields, "item", x.ItemTransformer)
	return d.node(x, fields)
}

func (d describer) ArrayEncoding(x ArrayEncoding) map[string]any {
	fields := map[string]any{"item_target": d.id(x.ItemTargetType)}
	d.put(fields, "item", x.ItemTransformer)
	return d.node(x, fields)
}

func (d describer) Choice(x Choice) map[string]any {
	members := make([]any, len(x.Transformers))
	for i, t := range x.Transformers {
		members[i] = Visit[map[string]any](t, d)
	}
	return d.node(x, map[string]any{"transformers": members})
}

func (d describer) StringMatch(x StringMatch) map[string]any {
	fields := map[string]any{"case": x.Case}
	d.put(fields, "transformer", x.Transformer)
	return d.node(x, fields)
}

func (d describer) StringProducer(x StringProducer) map[string]any {
	return d.consumer(x, x.Consumer, map[string]any{"result": x.Result})
}

func (d describer) UnionMemberMatch(x UnionMemberMatch) map[string]any {
	fields := map[string]any{"member": d.id(x.Member)}
	d.put(fields, "transformer", x.Transformer)
	return d.node(x, fields)
}

func (d describer) UnionInstantiation(x UnionInstantiation) map[string]any {
	return d.node(x, map[string]any{})
}

func (d describer) ParseString(x ParseString) map[string]any {
	return d.consumer(x, x.Consumer, map[string]any{})
}

func (d describer) Stringify(x Stringify) map[string]any {
	return d.consumer(x, x.Consumer, map[string]any{})
}

func (d describer) MinMaxLengthCheck(x MinMaxLengthCheck) map[string]any {
	return d.consumer(x, x.Consumer, map[string]any{"range": x.Range.String()})
}

func (d describer) MinMaxValueCheck(x MinMaxValueCheck) map[string]any {
	return d.consumer(x, x.Consumer, map[string]any{"range": x.Range.String()})
}

func (d describer) Encoding(x Encoding) map[string]any {
	return d.node(x, map[string]any{})
}
