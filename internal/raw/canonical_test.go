package raw

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"plain string", "hello", `"hello"`},
		{"int", Int(42), "42"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"float", Float(1.5), "1.5"},
		{"integral float", 2.0, "2.0"},
		{"bool", true, "true"},
		{"null", nil, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"string slice", []string{"b", "a"}, `["b","a"]`},
		{"simple map", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{M("zebra", Int(1)), M("alpha", Int(2)), M("beta", Int(3))}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+FFFF sorts after U+1F600 in UTF-8 but before it in UTF-16.
	obj := map[string]any{"\uffff": 1, "\U0001F600": 2}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uffff\":1}", string(result))
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no html escaping", "<a>&", `"<a>&"`},
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"newline", "a\nb", `"a\nb"`},
		{"control char", "\x01", `"\u0001"`},
		{"line separator literal", "\u2028", "\"\u2028\""},
		{"nfc normalized", "e\u0301", "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	assert.Error(t, err)

	_, err = MarshalCanonical(Float(math.NaN()))
	assert.Error(t, err)
}

func TestGenerationHashDeterministic(t *testing.T) {
	a := GenerationHash([]byte(`{"types":[]}`))
	b := GenerationHash([]byte(`{"types":[]}`))
	c := GenerationHash([]byte(`{"types":[1]}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashWithDomain(DomainTransformation, []byte(`{"types":[]}`)))
}
