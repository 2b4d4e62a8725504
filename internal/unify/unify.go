// Package unify merges types that describe the same logical value seen in
// different examples.
//
// A Unifier reads types from one generation (or a builder in progress) and
// writes the merged result into a builder. Unify never fails: inputs that
// cannot be merged become members of a union, one member per structural
// kind. Merge is the strict pairwise form and reports ErrIncompatible
// instead of building a union.
//
// Results are deterministic. Inputs are flattened, deduplicated and sorted
// by TypeRef before anything is merged, so the order callers pass them in
// never matters.
package unify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/typeshape/internal/typegraph"
)

// ErrIncompatible is returned by Merge when two types have no merged form.
var ErrIncompatible = errors.New("incompatible types cannot be merged")

// Options control merge policy.
type Options struct {
	// ConflateNumbers merges integer and double into double. When false
	// they stay separate union members.
	ConflateNumbers bool
}

// Unifier merges types from src into dst.
type Unifier struct {
	src    typegraph.Reader
	dst    *typegraph.Builder
	mapRef func(typegraph.TypeRef) typegraph.TypeRef
	opts   Options
	memo   map[string]typegraph.TypeRef
}

// New returns a Unifier reading from src and writing into dst. mapRef
// carries a src reference that needs no merging into dst; nil means src and
// dst share references.
func New(src typegraph.Reader, dst *typegraph.Builder, mapRef func(typegraph.TypeRef) typegraph.TypeRef, opts Options) *Unifier {
	if mapRef == nil {
		mapRef = func(r typegraph.TypeRef) typegraph.TypeRef { return r }
	}
	return &Unifier{
		src:    src,
		dst:    dst,
		mapRef: mapRef,
		opts:   opts,
		memo:   make(map[string]typegraph.TypeRef),
	}
}

// InBuilder returns a Unifier that reads and writes the same builder, as
// front ends do while building the first generation.
func InBuilder(b *typegraph.Builder, opts Options) *Unifier {
	return New(b, b, nil, opts)
}

// Unify merges refs into one type and adds attrs to it. Unions among the
// inputs are flattened first.
func (u *Unifier) Unify(refs []typegraph.TypeRef, attrs typegraph.Attributes) typegraph.TypeRef {
	members := u.flatten(refs)
	switch len(members) {
	case 0:
		return u.dst.Add(typegraph.Primitive{K: typegraph.KindNone}, attrs)
	case 1:
		r := u.mapRef(members[0])
		u.dst.AddAttributes(r, attrs)
		return r
	}

	var bk buckets
	for _, m := range members {
		t := u.src.Type(m)
		typegraph.Assert(t != nil, "Unify", "unresolved reference %s among %d inputs", m, len(members))
		bk.add(t.Kind(), m)
	}
	if len(bk.any) > 0 {
		return u.dst.Add(typegraph.Primitive{K: typegraph.KindAny}, typegraph.CombineAttributes(u.attrsOf(members), attrs))
	}

	var results []typegraph.TypeRef
	if len(bk.null) > 0 {
		results = append(results, u.primitive(typegraph.KindNull, bk.null))
	}
	if len(bk.boolean) > 0 {
		results = append(results, u.primitive(typegraph.KindBool, bk.boolean))
	}
	if u.opts.ConflateNumbers && len(bk.integer) > 0 && len(bk.double) > 0 {
		results = append(results, u.primitive(typegraph.KindDouble, concat(bk.integer, bk.double)))
	} else {
		if len(bk.integer) > 0 {
			results = append(results, u.primitive(typegraph.KindInteger, bk.integer))
		}
		if len(bk.double) > 0 {
			results = append(results, u.primitive(typegraph.KindDouble, bk.double))
		}
	}
	if len(bk.str) > 0 {
		// A plain string absorbs every other string-like member.
		all := concat(bk.str, bk.enum)
		for _, k := range typegraph.TransformedStringKinds {
			all = append(all, bk.transformed[k]...)
		}
		results = append(results, u.primitive(typegraph.KindString, all))
	} else {
		if len(bk.enum) > 0 {
			results = append(results, u.enum(bk.enum))
		}
		for _, k := range typegraph.TransformedStringKinds {
			if refs := bk.transformed[k]; len(refs) > 0 {
				results = append(results, u.primitive(k, refs))
			}
		}
	}
	if len(bk.array) > 0 {
		results = append(results, u.array(bk.array))
	}
	if len(bk.object) > 0 {
		results = append(results, u.objectLike(bk.object))
	}

	if len(results) == 1 {
		u.dst.AddAttributes(results[0], attrs)
		return results[0]
	}
	return u.dst.Add(typegraph.Union{Members: results}, attrs)
}

// CanUnify reports whether Unify can merge refs without reading a forward
// reference that is still unresolved. An unresolved reference is only
// acceptable where Unify passes it through untouched, as the single input
// at some level of the merge.
func (u *Unifier) CanUnify(refs []typegraph.TypeRef) bool {
	return u.canUnify(refs, make(map[string]bool))
}

func (u *Unifier) canUnify(refs []typegraph.TypeRef, seen map[string]bool) bool {
	members := u.flatten(refs)
	if len(members) <= 1 {
		return true
	}
	key := memoKey("check", members)
	if seen[key] {
		return true
	}
	seen[key] = true

	var arrays, objects []typegraph.TypeRef
	for _, m := range members {
		t := u.src.Type(m)
		if t == nil {
			return false
		}
		switch t.Kind() {
		case typegraph.KindAny:
			return true
		case typegraph.KindArray:
			arrays = append(arrays, m)
		default:
			if t.Kind().IsObjectLike() {
				objects = append(objects, m)
			}
		}
	}

	if len(arrays) > 1 {
		items := make([]typegraph.TypeRef, len(arrays))
		for i, r := range arrays {
			items[i] = u.src.Type(r).(typegraph.Array).Items
		}
		if !u.canUnify(items, seen) {
			return false
		}
	}
	if len(objects) > 1 {
		for _, group := range objectGroups(u.src, objects) {
			if !u.canUnify(group, seen) {
				return false
			}
		}
	}
	return true
}

// objectGroups returns the sets of child types objectLike unifies together
// for refs.
func objectGroups(src typegraph.Reader, refs []typegraph.TypeRef) [][]typegraph.TypeRef {
	var hasObject, hasMap bool
	var additional []typegraph.TypeRef
	byName := make(map[string][]typegraph.TypeRef)
	var order []string
	for _, r := range refs {
		t := src.Type(r)
		switch tt := t.(type) {
		case typegraph.Object:
			hasObject = true
			if tt.HasAdditional() {
				additional = append(additional, tt.Additional)
			}
		case typegraph.Map:
			hasMap = true
			additional = append(additional, tt.Values)
		}
		for _, p := range properties(t) {
			if _, ok := byName[p.Name]; !ok {
				order = append(order, p.Name)
			}
			byName[p.Name] = append(byName[p.Name], p.Type)
		}
	}

	if hasMap && !hasObject {
		values := additional
		for _, name := range order {
			values = append(values, byName[name]...)
		}
		return [][]typegraph.TypeRef{values}
	}
	groups := make([][]typegraph.TypeRef, 0, len(order)+1)
	for _, name := range order {
		groups = append(groups, byName[name])
	}
	if len(additional) > 0 {
		groups = append(groups, additional)
	}
	return groups
}

// Merge merges exactly two types. It fails with ErrIncompatible when the
// result would have to be a union.
func (u *Unifier) Merge(a, b typegraph.TypeRef) (typegraph.TypeRef, error) {
	ka, kb := u.src.Type(a).Kind(), u.src.Type(b).Kind()
	if !u.compatible(ka, kb) {
		return typegraph.NoRef, fmt.Errorf("%w: %s and %s", ErrIncompatible, ka, kb)
	}
	return u.Unify([]typegraph.TypeRef{a, b}, typegraph.EmptyAttributes), nil
}

func (u *Unifier) compatible(a, b typegraph.Kind) bool {
	switch {
	case a == typegraph.KindUnion || b == typegraph.KindUnion:
		return false
	case a == b:
		return true
	case a == typegraph.KindAny || b == typegraph.KindAny:
		return true
	case a == typegraph.KindNone || b == typegraph.KindNone:
		return true
	case a.IsObjectLike() && b.IsObjectLike():
		return true
	case isNumber(a) && isNumber(b):
		return u.opts.ConflateNumbers
	case a == typegraph.KindString && b.IsStringLike(), b == typegraph.KindString && a.IsStringLike():
		return true
	}
	return false
}

func isNumber(k typegraph.Kind) bool {
	return k == typegraph.KindInteger || k == typegraph.KindDouble
}

func (u *Unifier) flatten(refs []typegraph.TypeRef) []typegraph.TypeRef {
	var out []typegraph.TypeRef
	var walk func(typegraph.TypeRef)
	walk = func(r typegraph.TypeRef) {
		t := u.src.Type(r)
		if t == nil {
			out = append(out, r)
			return
		}
		if un, ok := t.(typegraph.Union); ok {
			for _, m := range un.Members {
				walk(m)
			}
			return
		}
		if t.Kind() == typegraph.KindNone {
			return
		}
		out = append(out, r)
	}
	for _, r := range refs {
		walk(r)
	}
	return typegraph.SortedUniqueRefs(out)
}

// attrsOf combines the attributes of refs, carried into dst.
func (u *Unifier) attrsOf(refs []typegraph.TypeRef) typegraph.Attributes {
	bags := make([]typegraph.Attributes, len(refs))
	for i, r := range refs {
		bags[i] = u.src.Attributes(r).Reconstitute(u.mapRef)
	}
	return typegraph.CombineAttributes(bags...)
}

func (u *Unifier) primitive(k typegraph.Kind, refs []typegraph.TypeRef) typegraph.TypeRef {
	if len(refs) == 1 && u.src.Type(refs[0]).Kind() == k {
		return u.mapRef(refs[0])
	}
	return u.dst.Add(typegraph.Primitive{K: k}, u.attrsOf(refs))
}

func (u *Unifier) enum(refs []typegraph.TypeRef) typegraph.TypeRef {
	if len(refs) == 1 {
		return u.mapRef(refs[0])
	}
	var cases []string
	for _, r := range refs {
		cases = append(cases, u.src.Type(r).(typegraph.Enum).Cases...)
	}
	return u.dst.Add(typegraph.Enum{Cases: cases}, u.attrsOf(refs))
}

func (u *Unifier) array(refs []typegraph.TypeRef) typegraph.TypeRef {
	if len(refs) == 1 {
		return u.mapRef(refs[0])
	}
	key := memoKey("array", refs)
	if r, ok := u.memo[key]; ok {
		return r
	}
	fwd := u.dst.AddForwardRef()
	u.memo[key] = fwd

	items := make([]typegraph.TypeRef, len(refs))
	for i, r := range refs {
		items[i] = u.src.Type(r).(typegraph.Array).Items
	}
	return u.dst.ResolveAs(fwd, typegraph.Array{Items: u.Unify(items, typegraph.EmptyAttributes)}, u.attrsOf(refs))
}

// objectLike merges classes, maps and objects. Any object in the input
// makes the result an object; otherwise any map makes it a map; classes
// alone merge into a class.
func (u *Unifier) objectLike(refs []typegraph.TypeRef) typegraph.TypeRef {
	if len(refs) == 1 {
		return u.mapRef(refs[0])
	}
	key := memoKey("object", refs)
	if r, ok := u.memo[key]; ok {
		return r
	}
	fwd := u.dst.AddForwardRef()
	u.memo[key] = fwd

	var hasObject, hasMap, fixed bool
	var withProps, additional []typegraph.TypeRef
	for _, r := range refs {
		switch t := u.src.Type(r).(type) {
		case typegraph.Class:
			withProps = append(withProps, r)
			fixed = fixed || t.Fixed
		case typegraph.Object:
			hasObject = true
			withProps = append(withProps, r)
			if t.HasAdditional() {
				additional = append(additional, t.Additional)
			}
		case typegraph.Map:
			hasMap = true
			additional = append(additional, t.Values)
		}
	}
	attrs := u.attrsOf(refs)

	switch {
	case hasObject:
		obj := typegraph.Object{Properties: u.mergeProperties(withProps)}
		if len(additional) > 0 {
			obj.Additional = u.Unify(additional, typegraph.EmptyAttributes)
		}
		return u.dst.ResolveAs(fwd, obj, attrs)
	case hasMap:
		values := additional
		for _, r := range withProps {
			for _, p := range properties(u.src.Type(r)) {
				values = append(values, p.Type)
			}
		}
		return u.dst.ResolveAs(fwd, typegraph.Map{Values: u.Unify(values, typegraph.EmptyAttributes)}, attrs)
	default:
		return u.dst.ResolveAs(fwd, typegraph.Class{Properties: u.mergeProperties(withProps), Fixed: fixed}, attrs)
	}
}

// mergeProperties merges the property lists of refs. A property missing
// from any input is optional. Order is first-seen over refs.
func (u *Unifier) mergeProperties(refs []typegraph.TypeRef) []typegraph.Property {
	type acc struct {
		types    []typegraph.TypeRef
		optional bool
	}
	var order []string
	byName := make(map[string]*acc)
	for _, r := range refs {
		for _, p := range properties(u.src.Type(r)) {
			a, ok := byName[p.Name]
			if !ok {
				a = &acc{}
				byName[p.Name] = a
				order = append(order, p.Name)
			}
			a.types = append(a.types, p.Type)
			a.optional = a.optional || p.Optional
		}
	}

	props := make([]typegraph.Property, 0, len(order))
	for _, name := range order {
		a := byName[name]
		props = append(props, typegraph.Property{
			Name:     name,
			Type:     u.Unify(a.types, typegraph.EmptyAttributes),
			Optional: a.optional || len(a.types) < len(refs),
		})
	}
	return props
}

func properties(t typegraph.Type) []typegraph.Property {
	switch tt := t.(type) {
	case typegraph.Class:
		return tt.Properties
	case typegraph.Object:
		return tt.Properties
	}
	return nil
}

func memoKey(prefix string, refs []typegraph.TypeRef) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, r := range refs {
		sb.WriteByte(':')
		sb.WriteString(r.String())
	}
	return sb.String()
}

func concat(a, b []typegraph.TypeRef) []typegraph.TypeRef {
	out := make([]typegraph.TypeRef, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

type buckets struct {
	any, null, boolean, integer, double []typegraph.TypeRef
	str, enum, array, object            []typegraph.TypeRef
	transformed                         map[typegraph.Kind][]typegraph.TypeRef
}

func (b *buckets) add(k typegraph.Kind, r typegraph.TypeRef) {
	switch {
	case k == typegraph.KindAny:
		b.any = append(b.any, r)
	case k == typegraph.KindNull:
		b.null = append(b.null, r)
	case k == typegraph.KindBool:
		b.boolean = append(b.boolean, r)
	case k == typegraph.KindInteger:
		b.integer = append(b.integer, r)
	case k == typegraph.KindDouble:
		b.double = append(b.double, r)
	case k == typegraph.KindString:
		b.str = append(b.str, r)
	case k == typegraph.KindEnum:
		b.enum = append(b.enum, r)
	case k.IsTransformedString():
		if b.transformed == nil {
			b.transformed = make(map[typegraph.Kind][]typegraph.TypeRef)
		}
		b.transformed[k] = append(b.transformed[k], r)
	case k == typegraph.KindArray:
		b.array = append(b.array, r)
	case k.IsObjectLike():
		b.object = append(b.object, r)
	default:
		typegraph.Fail("Unify", "cannot bucket kind %s", k)
	}
}
