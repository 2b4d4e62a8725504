package transform

import (
	"log/slog"
	"slices"

	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/typegraph"
)

// PassMakeTransformations names the derivation pass.
const PassMakeTransformations = "make-transformations"

// Options configure MakeTransformations.
type Options struct {
	// Mapping decides which transformed string kinds exist. Nil keeps
	// every kind.
	Mapping typegraph.StringTypeMapping

	// CheckConstraints adds length and value checks for strings and
	// numbers carrying range attributes.
	CheckConstraints bool

	DebugTrace bool
	Logger     *slog.Logger
}

// MakeTransformations replaces every type that needs decode/encode logic
// beyond its structure with a type carrying a Transformation:
//
//	transformed string    -> string, Decoding(string, ParseString)
//	enum                  -> string, Decoding(string, Choice of StringMatch)
//	union, not nullable   -> any, DecodingChoice with one arm per token kind
//	array of the above    -> array of any, ArrayDecoding
//	ranged string, number -> same kind, Decoding with a min/max check
//
// The Transformation's target is the reconstituted original. Types that
// already carry a Transformation, or are part of one, are left alone, so
// running the pass twice adds nothing.
func MakeTransformations(g *typegraph.Graph, opts Options) *rewrite.Result {
	mapping := opts.Mapping
	if mapping == nil {
		mapping = typegraph.AllStringTypes()
	}
	d := &deriver{opts: opts, mapping: mapping}

	skip := make(map[typegraph.TypeRef]bool)
	for _, ref := range g.AllTypesUnordered() {
		if xf, ok := ForType(g, ref); ok {
			skip[ref] = true
			skip[xf.TargetType] = true
			for _, r := range Refs(xf.Transformer) {
				skip[r] = true
			}
		}
	}

	transformed := make(map[typegraph.TypeRef]bool)
	for _, ref := range g.AllTypesUnordered() {
		if !skip[ref] && d.needsTransformer(g, ref) {
			transformed[ref] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, ref := range g.AllTypesUnordered() {
			a, ok := g.Type(ref).(typegraph.Array)
			if ok && !skip[ref] && !transformed[ref] && transformed[a.Items] {
				transformed[ref] = true
				changed = true
			}
		}
	}

	var groups [][]typegraph.TypeRef
	for _, ref := range g.AllTypesUnordered() {
		if transformed[ref] {
			groups = append(groups, []typegraph.TypeRef{ref})
		}
	}
	replace := func(group []typegraph.TypeRef, b *rewrite.Builder, f typegraph.TypeRef) typegraph.TypeRef {
		return d.replace(group[0], b, f)
	}
	return rewrite.Rewrite(g, PassMakeTransformations, opts.Mapping, groups, replace,
		rewrite.WithLogger(opts.Logger), rewrite.WithDebugTrace(opts.DebugTrace))
}

type deriver struct {
	opts    Options
	mapping typegraph.StringTypeMapping
}

func (d *deriver) kind(g *typegraph.Graph, ref typegraph.TypeRef) typegraph.Kind {
	return d.mapping.Resolve(g.Kind(ref))
}

func (d *deriver) needsTransformer(g *typegraph.Graph, ref typegraph.TypeRef) bool {
	k := d.kind(g, ref)
	switch {
	case k.IsTransformedString(), k == typegraph.KindEnum:
		return true
	case k == typegraph.KindUnion:
		_, nullable := typegraph.NullableFromUnion(g, g.Type(ref).(typegraph.Union))
		return !nullable
	case k == typegraph.KindString:
		_, ok := typegraph.LengthRange.Get(g.Attributes(ref))
		return ok && d.opts.CheckConstraints
	case k == typegraph.KindInteger, k == typegraph.KindDouble:
		_, ok := typegraph.NumberRange.Get(g.Attributes(ref))
		return ok && d.opts.CheckConstraints
	}
	return false
}

// TargetKind is the kind a transformed string kind decodes into.
func TargetKind(k typegraph.Kind) typegraph.Kind {
	switch k {
	case typegraph.KindIntegerString:
		return typegraph.KindInteger
	case typegraph.KindBoolString:
		return typegraph.KindBool
	}
	return k
}

func plain(b *rewrite.Builder, k typegraph.Kind) typegraph.TypeRef {
	return b.Add(typegraph.Primitive{K: k}, typegraph.EmptyAttributes)
}

func attach(b *rewrite.Builder, f typegraph.TypeRef, t typegraph.Type, xf Transformation) typegraph.TypeRef {
	return b.ResolveAs(f, t, TransformationAttribute.Make(xf))
}

func (d *deriver) replace(ref typegraph.TypeRef, b *rewrite.Builder, f typegraph.TypeRef) typegraph.TypeRef {
	old := b.Old()
	attrs := b.ReconstituteAttributes(old.Attributes(ref))
	switch t := old.Type(ref).(type) {
	case typegraph.Union:
		return d.replaceUnion(t, attrs, b, f)
	case typegraph.Array:
		return d.replaceArray(t, attrs, b, f)
	case typegraph.Enum:
		str := plain(b, typegraph.KindString)
		target := b.Add(typegraph.Enum{Cases: t.Cases}, attrs)
		xf := Transformation{TargetType: target, Transformer: Decoding{Source: str, Consumer: enumChoice(str, t.Cases, nil)}}
		return attach(b, f, typegraph.Primitive{K: typegraph.KindString}, xf)
	case typegraph.Primitive:
		k := d.mapping.Resolve(t.K)
		switch {
		case k.IsTransformedString():
			str := plain(b, typegraph.KindString)
			target := b.Add(typegraph.Primitive{K: TargetKind(k)}, attrs)
			xf := Transformation{TargetType: target, Transformer: Decoding{Source: str, Consumer: ParseString{Source: str}}}
			return attach(b, f, typegraph.Primitive{K: typegraph.KindString}, xf)
		case k == typegraph.KindString:
			str := plain(b, k)
			rng, _ := typegraph.LengthRange.Get(attrs)
			target := b.Add(typegraph.Primitive{K: k}, attrs)
			xf := Transformation{TargetType: target, Transformer: Decoding{Source: str, Consumer: MinMaxLengthCheck{Source: str, Range: rng}}}
			return attach(b, f, typegraph.Primitive{K: k}, xf)
		case k == typegraph.KindInteger, k == typegraph.KindDouble:
			num := plain(b, k)
			rng, _ := typegraph.NumberRange.Get(attrs)
			target := b.Add(typegraph.Primitive{K: k}, attrs)
			xf := Transformation{TargetType: target, Transformer: Decoding{Source: num, Consumer: MinMaxValueCheck{Source: num, Range: rng}}}
			return attach(b, f, typegraph.Primitive{K: k}, xf)
		}
	}
	typegraph.Fail(PassMakeTransformations, "cannot make a transformation for %s %s", old.Kind(ref), ref)
	return typegraph.NoRef
}

func (d *deriver) replaceArray(a typegraph.Array, attrs typegraph.Attributes, b *rewrite.Builder, f typegraph.TypeRef) typegraph.TypeRef {
	anyType := plain(b, typegraph.KindAny)
	anyArray := b.Add(typegraph.Array{Items: anyType}, typegraph.EmptyAttributes)
	items := b.ReconstituteTypeRef(a.Items)
	target := b.Add(typegraph.Array{Items: items}, attrs)
	xf := Transformation{
		TargetType: target,
		Transformer: ArrayDecoding{
			Source:          anyArray,
			ItemTargetType:  items,
			ItemTransformer: Decoding{Source: anyType},
		},
	}
	return attach(b, f, typegraph.Array{Items: anyType}, xf)
}

// enumChoice matches each case, sorted, and produces it for consumer.
func enumChoice(str typegraph.TypeRef, cases []string, consumer Transformer) Transformer {
	sorted := slices.Clone(cases)
	slices.Sort(sorted)
	matches := make([]Transformer, len(sorted))
	for i, c := range sorted {
		matches[i] = StringMatch{
			Source:      str,
			Transformer: StringProducer{Source: str, Consumer: consumer, Result: c},
			Case:        c,
		}
	}
	return Choice{Source: str, Transformers: matches}
}

// replaceUnion builds the target union from the members' decoded forms and
// a DecodingChoice with one arm per token kind a member is read from.
func (d *deriver) replaceUnion(u typegraph.Union, attrs typegraph.Attributes, b *rewrite.Builder, f typegraph.TypeRef) typegraph.TypeRef {
	old := b.Old()

	byKind := make(map[typegraph.Kind]typegraph.TypeRef)
	var kinds []typegraph.Kind
	for _, m := range u.Members {
		k := d.kind(old, m)
		if _, dup := byKind[k]; !dup {
			kinds = append(kinds, k)
		}
		byKind[k] = m
	}
	slices.Sort(kinds)

	// Members in their decoded form. Transformed strings become their
	// target kind, reusing a member of that kind when the union has one.
	target := make(map[typegraph.Kind]typegraph.TypeRef, len(kinds))
	for _, k := range kinds {
		m := byKind[k]
		mattrs := b.ReconstituteAttributes(old.Attributes(m))
		switch t := old.Type(m).(type) {
		case typegraph.Primitive:
			if !k.IsTransformedString() {
				target[k] = b.Add(typegraph.Primitive{K: k}, mattrs)
			}
		case typegraph.Enum:
			target[k] = b.Add(typegraph.Enum{Cases: t.Cases}, mattrs)
		default:
			target[k] = b.ReconstituteTypeRef(m)
		}
	}
	for _, k := range kinds {
		if !k.IsTransformedString() {
			continue
		}
		mattrs := b.ReconstituteAttributes(old.Attributes(byKind[k]))
		if existing, ok := target[TargetKind(k)]; ok && !TargetKind(k).IsTransformedString() {
			b.AddAttributes(existing, mattrs)
			target[k] = existing
			continue
		}
		target[k] = b.Add(typegraph.Primitive{K: TargetKind(k)}, mattrs)
	}

	members := make([]typegraph.TypeRef, 0, len(kinds))
	for _, k := range kinds {
		members = append(members, target[k])
	}
	targetUnion := b.Add(typegraph.Union{Members: members}, attrs)
	_, isUnion := b.Type(targetUnion).(typegraph.Union)

	consumer := func(member typegraph.TypeRef) Transformer {
		if !isUnion {
			return nil
		}
		return UnionInstantiation{Source: member}
	}
	decode := func(k typegraph.Kind, source typegraph.TypeRef, next Transformer) Transformer {
		if _, ok := byKind[k]; !ok {
			return nil
		}
		return Decoding{Source: source, Consumer: next}
	}
	number := func(k typegraph.Kind) Transformer {
		m, ok := byKind[k]
		if !ok {
			return nil
		}
		num := plain(b, k)
		next := consumer(target[k])
		if rng, ranged := typegraph.NumberRange.Get(old.Attributes(m)); ranged && d.opts.CheckConstraints {
			next = MinMaxValueCheck{Source: num, Consumer: next, Range: rng}
		}
		return Decoding{Source: num, Consumer: next}
	}

	choice := DecodingChoice{
		Source:  plain(b, typegraph.KindAny),
		Null:    decode(typegraph.KindNull, plain(b, typegraph.KindNull), consumer(target[typegraph.KindNull])),
		Integer: number(typegraph.KindInteger),
		Double:  number(typegraph.KindDouble),
		Bool:    decode(typegraph.KindBool, plain(b, typegraph.KindBool), consumer(target[typegraph.KindBool])),
		String:  d.stringArm(kinds, byKind, target, consumer, b),
	}
	for _, k := range kinds {
		switch {
		case k.IsObjectLike():
			choice.Object = Decoding{Source: target[k], Consumer: consumer(target[k])}
		case k == typegraph.KindArray:
			choice.Array = Decoding{Source: target[k], Consumer: consumer(target[k])}
		}
	}

	xf := Transformation{TargetType: targetUnion, Transformer: choice}
	return attach(b, f, typegraph.Primitive{K: typegraph.KindAny}, xf)
}

// stringArm handles every member read from a string token: enums first,
// then transformed strings in kind order, plain string last as the
// fallback.
func (d *deriver) stringArm(
	kinds []typegraph.Kind,
	byKind map[typegraph.Kind]typegraph.TypeRef,
	target map[typegraph.Kind]typegraph.TypeRef,
	consumer func(typegraph.TypeRef) Transformer,
	b *rewrite.Builder,
) Transformer {
	old := b.Old()
	str := plain(b, typegraph.KindString)

	var entries []Transformer
	add := func(k typegraph.Kind) {
		m := byKind[k]
		switch {
		case k == typegraph.KindEnum:
			entries = append(entries, enumChoice(str, old.Type(m).(typegraph.Enum).Cases, consumer(target[k])))
		case k.IsTransformedString():
			entries = append(entries, ParseString{Source: str, Consumer: consumer(target[k])})
		case k == typegraph.KindString:
			next := consumer(target[k])
			if rng, ok := typegraph.LengthRange.Get(old.Attributes(m)); ok && d.opts.CheckConstraints {
				next = MinMaxLengthCheck{Source: str, Consumer: next, Range: rng}
			}
			entries = append(entries, next)
		}
	}
	if _, ok := byKind[typegraph.KindEnum]; ok {
		add(typegraph.KindEnum)
	}
	for _, k := range kinds {
		if k.IsTransformedString() {
			add(k)
		}
	}
	if _, ok := byKind[typegraph.KindString]; ok {
		add(typegraph.KindString)
	}

	switch len(entries) {
	case 0:
		return nil
	case 1:
		return Decoding{Source: str, Consumer: entries[0]}
	}
	for _, e := range entries {
		typegraph.Assert(e != nil, PassMakeTransformations, "string member without a transformer in a choice")
	}
	return Decoding{Source: str, Consumer: Choice{Source: str, Transformers: entries}}
}
