package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsSchema = "testdata/schema/events.cue"

func TestSchemaText(t *testing.T) {
	out, _, err := execute(t, "schema", eventsSchema)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ testdata/schema/events.cue: 1 top-level type(s)")
	assert.Contains(t, out, "cue-schema")
	assert.Contains(t, out, "Event: ")
	assert.Contains(t, out, "enum [open close]")
	assert.Contains(t, out, "// An audit event.")
	assert.Contains(t, out, "Diagnostics:")
	assert.Contains(t, out, "lost-type-attributes")
}

func TestSchemaJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "schema", eventsSchema)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	gens := data["generations"].([]any)
	assert.Equal(t, "cue-schema", gens[0].(map[string]any)["pass"])

	diags := data["diagnostics"].([]any)
	require.NotEmpty(t, diags)
	assert.Equal(t, "lost-type-attributes", diags[0].(map[string]any)["code"])
}

func TestSchemaDeterministicHashes(t *testing.T) {
	hashes := func() []any {
		out, _, err := execute(t, "--format", "json", "schema", eventsSchema)
		require.NoError(t, err)
		var hs []any
		for _, g := range decodeResponse(t, out).Data.(map[string]any)["generations"].([]any) {
			hs = append(hs, g.(map[string]any)["hash"])
		}
		return hs
	}
	assert.Equal(t, hashes(), hashes())
}

func TestSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing", "testdata/schema/nope.cue", ErrCodeNotFound},
		{"not_cue", "testdata/samples/broken.txt", ErrCodeLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "--format", "json", "schema", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
