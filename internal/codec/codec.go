package codec

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/roach88/typeshape/internal/raw"
	"github.com/roach88/typeshape/internal/transform"
	"github.com/roach88/typeshape/internal/typegraph"
)

// Codec decodes and encodes values of one type graph. It is safe for
// concurrent use; it never mutates the graph.
type Codec struct {
	g      *typegraph.Graph
	logger *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Codec over g.
func New(g *typegraph.Graph, opts ...Option) *Codec {
	c := &Codec{g: g, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Graph returns the graph the codec reads.
func (c *Codec) Graph() *typegraph.Graph { return c.g }

// Decode turns a raw value into a value of type ref.
func (c *Codec) Decode(ref typegraph.TypeRef, v raw.Value) (any, error) {
	out, err := c.decode(ref, v, "$")
	if err != nil {
		c.logger.Debug("decode failed", "type", ref.String(), "error", err)
	}
	return out, err
}

// Encode turns a value of type ref back into a raw value.
func (c *Codec) Encode(ref typegraph.TypeRef, v any) (raw.Value, error) {
	out, err := c.encode(ref, v, "$")
	if err != nil {
		c.logger.Debug("encode failed", "type", ref.String(), "error", err)
	}
	return out, err
}

// DecodeJSON decodes a JSON document as the top-level type name.
func (c *Codec) DecodeJSON(name string, data []byte) (any, error) {
	ref, err := c.topLevel(name)
	if err != nil {
		return nil, err
	}
	v, err := raw.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return c.Decode(ref, v)
}

// EncodeJSON encodes v as the top-level type name.
func (c *Codec) EncodeJSON(name string, v any) ([]byte, error) {
	ref, err := c.topLevel(name)
	if err != nil {
		return nil, err
	}
	out, err := c.Encode(ref, v)
	if err != nil {
		return nil, err
	}
	return raw.Marshal(out)
}

func (c *Codec) topLevel(name string) (typegraph.TypeRef, error) {
	ref, ok := c.g.TopLevel(name)
	if !ok {
		return typegraph.NoRef, fmt.Errorf("no top-level type %q", name)
	}
	return ref, nil
}

func (c *Codec) decode(ref typegraph.TypeRef, v raw.Value, path string) (any, error) {
	if xf, ok := transform.ForType(c.g, ref); ok {
		out, matched, err := c.run(xf.Transformer, v, xf.TargetType, path)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, c.decodeError(path, ref, "no transformation accepts a %s token", raw.KindOf(v))
		}
		return out, nil
	}
	return c.decodeStructure(ref, v, path)
}

func (c *Codec) encode(ref typegraph.TypeRef, v any, path string) (raw.Value, error) {
	if xf, ok := transform.ForType(c.g, ref); ok {
		rev := xf.Reverse()
		out, matched, err := c.run(rev.Transformer, v, rev.TargetType, path)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, c.encodeError(path, ref, "no transformation accepts %T", v)
		}
		rv, ok := out.(raw.Value)
		typegraph.Assert(ok, "codec.Encode", "encode tree of %s produced %T", ref, out)
		return rv, nil
	}
	return c.encodeStructure(ref, v, path)
}

func (c *Codec) decodeStructure(ref typegraph.TypeRef, v raw.Value, path string) (any, error) {
	switch t := c.g.Type(ref).(type) {
	case typegraph.Primitive:
		return c.decodePrimitive(ref, t.K, v, path)
	case typegraph.Enum:
		if s, ok := v.(raw.String); ok && slices.Contains(t.Cases, string(s)) {
			return string(s), nil
		}
		return nil, c.decodeError(path, ref, "%v is not a case", v)
	case typegraph.Array:
		arr, ok := v.(raw.Array)
		if !ok {
			return nil, c.decodeError(path, ref, "expected an array, got %s", raw.KindOf(v))
		}
		out := make([]any, len(arr))
		for i, item := range arr {
			d, err := c.decode(t.Items, item, index(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case typegraph.Class:
		return c.decodeObject(ref, t.Properties, typegraph.NoRef, !t.Fixed, v, path)
	case typegraph.Object:
		return c.decodeObject(ref, t.Properties, t.Additional, false, v, path)
	case typegraph.Map:
		return c.decodeObject(ref, nil, t.Values, false, v, path)
	case typegraph.Union:
		return c.decodeUnion(ref, t, v, path)
	}
	return nil, c.decodeError(path, ref, "unsupported type")
}

func (c *Codec) decodePrimitive(ref typegraph.TypeRef, k typegraph.Kind, v raw.Value, path string) (any, error) {
	switch k {
	case typegraph.KindAny:
		return v, nil
	case typegraph.KindNull:
		if _, ok := v.(raw.Null); ok {
			return nil, nil
		}
	case typegraph.KindBool:
		if b, ok := v.(raw.Bool); ok {
			return bool(b), nil
		}
	case typegraph.KindInteger:
		switch n := v.(type) {
		case raw.Int:
			return int64(n), nil
		case raw.Float:
			if f := float64(n); f == float64(int64(f)) {
				return int64(f), nil
			}
		}
	case typegraph.KindDouble:
		switch n := v.(type) {
		case raw.Int:
			return float64(n), nil
		case raw.Float:
			return float64(n), nil
		}
	default:
		if s, ok := v.(raw.String); ok && k.IsStringLike() {
			if out, ok := ParseString(k, string(s)); ok {
				return out, nil
			}
			return nil, c.decodeError(path, ref, "%q is not a valid %s", string(s), k)
		}
	}
	return nil, c.decodeError(path, ref, "unexpected %s token", raw.KindOf(v))
}

// decodeObject reads named properties, then every other key as extra when
// extra is valid. open ignores unknown keys instead of rejecting them.
func (c *Codec) decodeObject(ref typegraph.TypeRef, props []typegraph.Property, extra typegraph.TypeRef, open bool, v raw.Value, path string) (any, error) {
	obj, ok := v.(raw.Object)
	if !ok {
		return nil, c.decodeError(path, ref, "expected an object, got %s", raw.KindOf(v))
	}
	out := make(map[string]any, len(obj))
	for _, p := range props {
		pv, present := obj.Get(p.Name)
		if !present {
			if p.Optional {
				continue
			}
			return nil, c.decodeError(member(path, p.Name), ref, "missing required property")
		}
		d, err := c.decode(p.Type, pv, member(path, p.Name))
		if err != nil {
			return nil, err
		}
		out[p.Name] = d
	}
	for _, m := range obj {
		if _, named := typegraph.LookupProperty(props, m.Key); named {
			continue
		}
		if !extra.IsValid() {
			if open {
				continue
			}
			return nil, c.decodeError(member(path, m.Key), ref, "unexpected property")
		}
		d, err := c.decode(extra, m.Value, member(path, m.Key))
		if err != nil {
			return nil, err
		}
		out[m.Key] = d
	}
	return out, nil
}

// decodeUnion tries members in kind order with plain strings and any last,
// so the most specific member wins.
func (c *Codec) decodeUnion(ref typegraph.TypeRef, u typegraph.Union, v raw.Value, path string) (any, error) {
	if m, ok := typegraph.NullableFromUnion(c.g, u); ok {
		if _, isNull := v.(raw.Null); isNull {
			return nil, nil
		}
		return c.decode(m, v, path)
	}
	for _, m := range c.unionOrder(u) {
		d, err := c.decode(m, v, path)
		if err == nil {
			return Union{Member: m, Value: d}, nil
		}
	}
	return nil, c.decodeError(path, ref, "no member accepts a %s token", raw.KindOf(v))
}

func (c *Codec) unionOrder(u typegraph.Union) []typegraph.TypeRef {
	rank := func(r typegraph.TypeRef) int {
		switch k := c.g.Kind(r); k {
		case typegraph.KindString:
			return int(typegraph.KindUnion) + 1
		case typegraph.KindAny:
			return int(typegraph.KindUnion) + 2
		default:
			return int(k)
		}
	}
	members := slices.Clone(u.Members)
	slices.SortStableFunc(members, func(a, b typegraph.TypeRef) int { return rank(a) - rank(b) })
	return members
}

func (c *Codec) encodeStructure(ref typegraph.TypeRef, v any, path string) (raw.Value, error) {
	switch t := c.g.Type(ref).(type) {
	case typegraph.Primitive:
		return c.encodePrimitive(ref, t.K, v, path)
	case typegraph.Enum:
		if s, ok := v.(string); ok && slices.Contains(t.Cases, s) {
			return raw.String(s), nil
		}
		return nil, c.encodeError(path, ref, "%v is not a case", v)
	case typegraph.Array:
		items, ok := v.([]any)
		if !ok {
			return nil, c.encodeError(path, ref, "expected []any, got %T", v)
		}
		out := make(raw.Array, len(items))
		for i, item := range items {
			e, err := c.encode(t.Items, item, index(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case typegraph.Class:
		return c.encodeObject(ref, t.Properties, typegraph.NoRef, !t.Fixed, v, path)
	case typegraph.Object:
		return c.encodeObject(ref, t.Properties, t.Additional, false, v, path)
	case typegraph.Map:
		return c.encodeObject(ref, nil, t.Values, false, v, path)
	case typegraph.Union:
		if m, ok := typegraph.NullableFromUnion(c.g, t); ok {
			if v == nil {
				return raw.Null{}, nil
			}
			return c.encode(m, v, path)
		}
		uv, ok := v.(Union)
		if !ok || !slices.Contains(t.Members, uv.Member) {
			return nil, c.encodeError(path, ref, "expected a member of the union, got %T", v)
		}
		return c.encode(uv.Member, uv.Value, path)
	}
	return nil, c.encodeError(path, ref, "unsupported type")
}

func (c *Codec) encodePrimitive(ref typegraph.TypeRef, k typegraph.Kind, v any, path string) (raw.Value, error) {
	switch k {
	case typegraph.KindAny:
		if rv, ok := v.(raw.Value); ok {
			return rv, nil
		}
	case typegraph.KindNull:
		if v == nil {
			return raw.Null{}, nil
		}
	case typegraph.KindBool:
		if b, ok := v.(bool); ok {
			return raw.Bool(b), nil
		}
	case typegraph.KindInteger:
		if n, ok := asInt(v); ok {
			return raw.Int(n), nil
		}
	case typegraph.KindDouble:
		if f, ok := asFloat(v); ok {
			return raw.Float(f), nil
		}
	default:
		if k.IsStringLike() {
			if s, ok := Stringify(k, v); ok {
				return raw.String(s), nil
			}
		}
	}
	return nil, c.encodeError(path, ref, "unexpected value %T", v)
}

func (c *Codec) encodeObject(ref typegraph.TypeRef, props []typegraph.Property, extra typegraph.TypeRef, open bool, v any, path string) (raw.Value, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, c.encodeError(path, ref, "expected map[string]any, got %T", v)
	}
	out := make(raw.Object, 0, len(m))
	for _, p := range props {
		pv, present := m[p.Name]
		if !present {
			if p.Optional {
				continue
			}
			return nil, c.encodeError(member(path, p.Name), ref, "missing required property")
		}
		e, err := c.encode(p.Type, pv, member(path, p.Name))
		if err != nil {
			return nil, err
		}
		out = append(out, raw.M(p.Name, e))
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if _, named := typegraph.LookupProperty(props, k); !named {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !extra.IsValid() {
			if open {
				continue
			}
			return nil, c.encodeError(member(path, k), ref, "unexpected property")
		}
		e, err := c.encode(extra, m[k], member(path, k))
		if err != nil {
			return nil, err
		}
		out = append(out, raw.M(k, e))
	}
	return out, nil
}

func (c *Codec) decodeError(path string, ref typegraph.TypeRef, format string, args ...any) error {
	return &DecodeError{Path: path, Type: c.g.Kind(ref).String(), Message: fmt.Sprintf(format, args...)}
}

func (c *Codec) encodeError(path string, ref typegraph.TypeRef, format string, args ...any) error {
	return &EncodeError{Path: path, Type: c.g.Kind(ref).String(), Message: fmt.Sprintf(format, args...)}
}

func member(path, key string) string {
	return path + "." + key
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
