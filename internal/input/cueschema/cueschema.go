// Package cueschema reads CUE definitions into a type graph.
//
// Every definition at the package root becomes a top-level type named
// after it, without the leading #. The mapping:
//
//	closed struct                 object without additional properties
//	open struct, or ...           object with additional properties of any
//	[string]: T                   additional properties of T
//	[...T]                        array of T
//	"a" | "b"                     enum
//	A | B                         union
//	int, float, number            integer, double, double
//	>=, >, <=, < on numbers       number range
//	string @format(date-time)     the named transformed string kind
//	string @length(min=1, max=8)  length range
//	_                             any
//
// References to root definitions keep their identity, so recursive
// definitions become recursive types. Doc comments on definitions and on
// struct-valued fields become descriptions.
package cueschema

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/roach88/typeshape/internal/input"
	"github.com/roach88/typeshape/internal/typegraph"
	"github.com/roach88/typeshape/internal/unify"
)

// Pass is the pass name recorded on the generation the front end builds.
const Pass = "cue-schema"

const maxDepth = 64

// Options configure the front end.
type Options struct {
	ConflateNumbers bool
	Logger          *slog.Logger
}

// Load reads the CUE package in dir.
func Load(dir string, opts Options) (*typegraph.Graph, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &input.Error{Source: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &input.Error{Source: dir, Message: "loading CUE files", Err: inst.Err}
	}
	return FromValue(dir, ctx.BuildInstance(inst), opts)
}

// Compile reads a single CUE source.
func Compile(filename string, src []byte, opts Options) (*typegraph.Graph, error) {
	ctx := cuecontext.New()
	return FromValue(filename, ctx.CompileBytes(src, cue.Filename(filename)), opts)
}

// FromValue converts the root definitions of v. source labels v in
// provenance and errors.
func FromValue(source string, v cue.Value, opts Options) (*typegraph.Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := v.Err(); err != nil {
		return nil, cueError(source, err)
	}

	b := typegraph.NewBuilder(Pass)
	c := &converter{
		b:    b,
		u:    unify.InBuilder(b, unify.Options{ConflateNumbers: opts.ConflateNumbers}),
		defs: make(map[string]*definition),
	}

	iter, err := v.Fields(cue.Definitions(true))
	if err != nil {
		return nil, cueError(source, err)
	}
	var order []string
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsDefinition() {
			continue
		}
		label := sel.String()
		c.defs[label] = &definition{value: iter.Value()}
		order = append(order, label)
	}
	if len(order) == 0 {
		return nil, &input.Error{Source: source, Message: "no definitions found"}
	}

	for _, label := range order {
		ref, err := c.definition(label)
		if err != nil {
			return nil, err
		}
		name := strings.TrimPrefix(label, "#")
		b.AddAttributes(ref, typegraph.Provenance.Make([]string{source}))
		b.AddTopLevel(name, ref)
	}
	if err := c.resolveDeferred(); err != nil {
		return nil, err
	}

	g := b.FinishReachable()
	logger.Info("schema read",
		"source", source,
		"definitions", len(order),
		"types", g.Len(),
	)
	return g, nil
}

type definition struct {
	value cue.Value
	ref   typegraph.TypeRef
}

// deferredUnion is a merge that had to wait for the definitions its
// inputs refer to.
type deferredUnion struct {
	ref     typegraph.TypeRef
	members []typegraph.TypeRef
	at      cue.Value
}

type converter struct {
	b        *typegraph.Builder
	u        *unify.Unifier
	defs     map[string]*definition
	deferred []deferredUnion
}

// unify merges members now if it can, or reserves a forward reference that
// resolveDeferred fills once every definition is converted.
func (c *converter) unify(members []typegraph.TypeRef, at cue.Value) typegraph.TypeRef {
	if c.u.CanUnify(members) {
		return c.u.Unify(members, typegraph.EmptyAttributes)
	}
	ref := c.b.AddForwardRef()
	c.deferred = append(c.deferred, deferredUnion{ref: ref, members: members, at: at})
	return ref
}

// resolveDeferred merges the deferred unions, repeating while some merge
// still waits on another deferred union.
func (c *converter) resolveDeferred() error {
	pending := c.deferred
	c.deferred = nil
	for len(pending) > 0 {
		var next []deferredUnion
		for _, d := range pending {
			if !c.u.CanUnify(d.members) {
				next = append(next, d)
				continue
			}
			// Attributes added while d.ref was unresolved move to the result.
			ref := c.u.Unify(d.members, c.b.Attributes(d.ref))
			if c.b.Canonical(ref) == c.b.Canonical(d.ref) {
				return errorAt(d.at, "disjunction refers only to itself")
			}
			c.b.Alias(d.ref, ref)
		}
		if len(next) == len(pending) {
			return errorAt(next[0].at, "disjunction cannot be merged: its alternatives refer to each other")
		}
		pending = next
	}
	return nil
}

// definition converts a root definition once. A definition reached again
// while it is being converted resolves to its forward reference.
func (c *converter) definition(label string) (typegraph.TypeRef, error) {
	d := c.defs[label]
	if d.ref.IsValid() {
		return d.ref, nil
	}
	d.ref = c.b.AddForwardRef()

	f, err := fieldOf(d.value)
	if err != nil {
		return typegraph.NoRef, err
	}
	ref, err := c.convert(d.value, f, 0)
	if err != nil {
		return typegraph.NoRef, err
	}
	if c.b.Canonical(ref) == c.b.Canonical(d.ref) {
		return typegraph.NoRef, errorAt(d.value, "definition %s refers only to itself", label)
	}
	c.b.Alias(d.ref, ref)

	attrs := typegraph.Names.Make([]string{strings.TrimPrefix(label, "#")})
	if doc := docText(d.value); doc != "" {
		attrs = typegraph.CombineAttributes(attrs, typegraph.Description.Make([]string{doc}))
	}
	c.b.AddAttributes(d.ref, attrs)
	return d.ref, nil
}

// field carries what the field's attributes say about its value.
type field struct {
	format typegraph.Kind
	length *typegraph.MinMax
}

func fieldOf(v cue.Value) (field, error) {
	var f field
	if a := v.Attribute("format"); a.Err() == nil {
		name, err := a.String(0)
		if err != nil {
			return f, errorAt(v, "@format: %v", err)
		}
		k, err := typegraph.ParseKind(name)
		if err != nil || !k.IsTransformedString() {
			return f, errorAt(v, "@format(%s) is not a transformed string kind", name)
		}
		f.format = k
	}
	if a := v.Attribute("length"); a.Err() == nil {
		var m typegraph.MinMax
		for _, key := range []string{"min", "max"} {
			s, found, err := a.Lookup(0, key)
			if err != nil {
				return f, errorAt(v, "@length: %v", err)
			}
			if !found {
				continue
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return f, errorAt(v, "@length %s=%q is not a number", key, s)
			}
			if key == "min" {
				m.Min = typegraph.Float(n)
			} else {
				m.Max = typegraph.Float(n)
			}
		}
		f.length = &m
	}
	return f, nil
}

func (c *converter) prim(k typegraph.Kind, attrs typegraph.Attributes) typegraph.TypeRef {
	return c.b.Add(typegraph.Primitive{K: k}, attrs)
}

func (c *converter) convert(v cue.Value, f field, depth int) (typegraph.TypeRef, error) {
	if depth > maxDepth {
		return typegraph.NoRef, errorAt(v, "schema nests deeper than %d levels", maxDepth)
	}
	if ref, ok, err := c.reference(v); ok || err != nil {
		return ref, err
	}
	if op, alts := v.Expr(); op == cue.OrOp {
		return c.disjunction(alts, f, depth)
	}

	switch k := v.IncompleteKind(); k {
	case cue.TopKind:
		return c.prim(typegraph.KindAny, typegraph.EmptyAttributes), nil
	case cue.NullKind:
		return c.prim(typegraph.KindNull, typegraph.EmptyAttributes), nil
	case cue.BoolKind:
		return c.prim(typegraph.KindBool, typegraph.EmptyAttributes), nil
	case cue.IntKind:
		return c.prim(typegraph.KindInteger, numberRange(v, true)), nil
	case cue.FloatKind, cue.NumberKind:
		return c.prim(typegraph.KindDouble, numberRange(v, false)), nil
	case cue.StringKind:
		return c.str(f), nil
	case cue.ListKind:
		return c.list(v, depth)
	case cue.StructKind:
		return c.object(v, depth)
	default:
		return typegraph.NoRef, errorAt(v, "unsupported value of kind %s", k)
	}
}

func (c *converter) str(f field) typegraph.TypeRef {
	k := typegraph.KindString
	if f.format != typegraph.KindNone {
		k = f.format
	}
	attrs := typegraph.EmptyAttributes
	if f.length != nil && k == typegraph.KindString {
		attrs = typegraph.LengthRange.Make(*f.length)
	}
	return c.prim(k, attrs)
}

// reference resolves a value that is exactly a root definition.
func (c *converter) reference(v cue.Value) (typegraph.TypeRef, bool, error) {
	_, path := v.ReferencePath()
	sels := path.Selectors()
	if len(sels) != 1 || !sels[0].IsDefinition() {
		return typegraph.NoRef, false, nil
	}
	if _, ok := c.defs[sels[0].String()]; !ok {
		return typegraph.NoRef, false, nil
	}
	ref, err := c.definition(sels[0].String())
	return ref, true, err
}

// disjunction turns concrete string alternatives into one enum and unifies
// it with the other alternatives.
func (c *converter) disjunction(alts []cue.Value, f field, depth int) (typegraph.TypeRef, error) {
	var cases []string
	var members []typegraph.TypeRef
	for _, alt := range alts {
		if alt.IncompleteKind() == cue.StringKind && alt.IsConcrete() {
			s, err := alt.String()
			if err != nil {
				return typegraph.NoRef, errorAt(alt, "%v", err)
			}
			cases = append(cases, s)
			continue
		}
		m, err := c.convert(alt, f, depth+1)
		if err != nil {
			return typegraph.NoRef, err
		}
		members = append(members, m)
	}
	if len(cases) > 0 {
		members = append(members, c.b.Add(typegraph.Enum{Cases: cases}, typegraph.EmptyAttributes))
	}
	return c.unify(members, alts[0]), nil
}

func (c *converter) list(v cue.Value, depth int) (typegraph.TypeRef, error) {
	if elem := v.LookupPath(cue.MakePath(cue.AnyIndex)); elem.Exists() {
		items, err := c.convert(elem, field{}, depth+1)
		if err != nil {
			return typegraph.NoRef, err
		}
		return c.b.Add(typegraph.Array{Items: items}, typegraph.EmptyAttributes), nil
	}

	iter, err := v.List()
	if err != nil {
		return typegraph.NoRef, errorAt(v, "%v", err)
	}
	var items []typegraph.TypeRef
	for iter.Next() {
		item, err := c.convert(iter.Value(), field{}, depth+1)
		if err != nil {
			return typegraph.NoRef, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return c.b.Add(typegraph.Array{Items: c.prim(typegraph.KindAny, typegraph.EmptyAttributes)}, typegraph.EmptyAttributes), nil
	}
	return c.b.Add(typegraph.Array{Items: c.unify(items, v)}, typegraph.EmptyAttributes), nil
}

func (c *converter) object(v cue.Value, depth int) (typegraph.TypeRef, error) {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return typegraph.NoRef, errorAt(v, "%v", err)
	}
	var props []typegraph.Property
	for iter.Next() {
		fv := iter.Value()
		f, err := fieldOf(fv)
		if err != nil {
			return typegraph.NoRef, err
		}
		ref, err := c.convert(fv, f, depth+1)
		if err != nil {
			return typegraph.NoRef, err
		}
		if doc := docText(fv); doc != "" && fv.IncompleteKind() == cue.StructKind {
			c.b.AddAttributes(ref, typegraph.Description.Make([]string{doc}))
		}
		props = append(props, typegraph.Property{
			Name:     iter.Selector().Unquoted(),
			Type:     ref,
			Optional: iter.IsOptional(),
		})
	}

	obj := typegraph.Object{Properties: props}
	if pattern := v.LookupPath(cue.MakePath(cue.AnyString)); pattern.Exists() {
		additional, err := c.convert(pattern, field{}, depth+1)
		if err != nil {
			return typegraph.NoRef, err
		}
		obj.Additional = additional
	} else if v.Allows(cue.AnyString) {
		obj.Additional = c.prim(typegraph.KindAny, typegraph.EmptyAttributes)
	}
	return c.b.Add(obj, typegraph.EmptyAttributes), nil
}

// numberRange collects the bounds among the conjuncts of v. Strict integer
// bounds are tightened by one; strict float bounds are kept inclusive.
func numberRange(v cue.Value, integral bool) typegraph.Attributes {
	var m typegraph.MinMax
	var walk func(cue.Value)
	walk = func(x cue.Value) {
		op, args := x.Expr()
		if op == cue.AndOp {
			for _, a := range args {
				walk(a)
			}
			return
		}
		if len(args) != 1 {
			return
		}
		n, err := args[0].Float64()
		if err != nil {
			return
		}
		step := 0.0
		if integral {
			step = 1
		}
		switch op {
		case cue.GreaterThanEqualOp:
			m.Min = typegraph.Float(n)
		case cue.GreaterThanOp:
			m.Min = typegraph.Float(n + step)
		case cue.LessThanEqualOp:
			m.Max = typegraph.Float(n)
		case cue.LessThanOp:
			m.Max = typegraph.Float(n - step)
		}
	}
	walk(v)
	if m.IsUnbounded() {
		return typegraph.EmptyAttributes
	}
	return typegraph.NumberRange.Make(m)
}

func docText(v cue.Value) string {
	var parts []string
	for _, cg := range v.Doc() {
		if t := strings.TrimSpace(cg.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func errorAt(v cue.Value, format string, args ...any) error {
	source := "cue"
	if pos := v.Pos(); pos.IsValid() {
		source = fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
	}
	return &input.Error{Source: source, Path: v.Path().String(), Message: fmt.Sprintf(format, args...)}
}

// cueError reports the first CUE error, with its position when it has one.
func cueError(source string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &input.Error{Source: source, Message: "invalid CUE", Err: err}
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		source = fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
	}
	return &input.Error{Source: source, Message: "invalid CUE", Err: first}
}
