package raw

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Unmarshal parses a single JSON document into a Value, keeping object
// members in document order and distinguishing integer from float tokens.
//
// Duplicate object keys and trailing data are rejected.
func Unmarshal(data []byte) (Value, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads exactly one JSON document from r.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty JSON document")
		}
		return nil, err
	}
	v, err := fromToken(dec, tok, "$")
	if err != nil {
		return nil, err
	}

	if extra, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("trailing data after JSON document: %v", extra)
	}
	return v, nil
}

func fromToken(dec *json.Decoder, tok json.Token, path string) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return parseNumber(string(t))
	case float64:
		return Float(t), nil
	case json.Delim:
		switch t {
		case '{':
			return readObject(dec, path)
		case '[':
			return readArray(dec, path)
		}
		return nil, fmt.Errorf("%s: unexpected delimiter %q", path, rune(t))
	}
	return nil, fmt.Errorf("%s: unsupported token %T", path, tok)
}

func readObject(dec *json.Decoder, path string) (Value, error) {
	obj := Object{}
	seen := make(map[string]bool)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return obj, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected object key, got %v", path, tok)
		}
		if seen[key] {
			return nil, fmt.Errorf("%s: duplicate key %q", path, key)
		}
		seen[key] = true

		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", path, key, err)
		}
		v, err := fromToken(dec, valTok, path+"."+key)
		if err != nil {
			return nil, err
		}
		obj = append(obj, Member{Key: key, Value: v})
	}
}

func readArray(dec *json.Decoder, path string) (Value, error) {
	arr := Array{}
	for i := 0; ; i++ {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return arr, nil
		}
		v, err := fromToken(dec, tok, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

// parseNumber keeps integers as Int when they fit in int64.
func parseNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// Marshal writes v as compact JSON, keeping object member order.
// Floats always carry a fraction or exponent so they read back as Float.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value, canonical bool) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		s, err := formatFloat(float64(val))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case String:
		writeString(buf, string(val), canonical)
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem, canonical); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		keys := val.Keys()
		if canonical {
			keys = val.SortedKeys()
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k, canonical)
			buf.WriteByte(':')
			member, _ := val.Get(k)
			if err := writeValue(buf, member, canonical); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown raw value type: %T", v)
	}
	return nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("cannot serialize non-finite float %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}
