package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typeshape/internal/codec"
	"github.com/roach88/typeshape/internal/input/cueschema"
	"github.com/roach88/typeshape/internal/input/jsonsample"
	"github.com/roach88/typeshape/internal/testutil"
)

const eventSchema = `
package events

// An audit event.
#Event: {
	id:     string @format(uuid)
	at:     string @format(date-time)
	kind:   "open" | "close"
	count:  int & >=0 & <=100
	labels: [string]: string
	note?:  null | string
}
`

const eventDoc = `{
	"id": "0190b7e4-8f3a-7c1d-9e2f-3a4b5c6d7e8f",
	"at": "2024-05-06T07:08:09Z",
	"kind": "open",
	"count": 3,
	"labels": {"team": "core"},
	"note": null
}`

func TestSchemaToCodecRoundTrip(t *testing.T) {
	g, err := cueschema.Compile("events.cue", []byte(eventSchema), cueschema.Options{Logger: testutil.DiscardLogger()})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.CheckConstraints = true
	res, err := newPipeline(t, cfg).Run(context.Background(), "events.cue", g)
	require.NoError(t, err)

	c := codec.New(res.Final(), codec.WithLogger(testutil.DiscardLogger()))
	decoded, err := c.DecodeJSON("Event", []byte(eventDoc))
	require.NoError(t, err)

	event, ok := decoded.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uuid.MustParse("0190b7e4-8f3a-7c1d-9e2f-3a4b5c6d7e8f"), event["id"])
	assert.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), event["at"].(time.Time).UTC())
	assert.Equal(t, "open", event["kind"])
	assert.Equal(t, int64(3), event["count"])
	assert.Equal(t, map[string]any{"team": "core"}, event["labels"])
	assert.Nil(t, event["note"])

	encoded, err := c.EncodeJSON("Event", decoded)
	require.NoError(t, err)
	assert.JSONEq(t, eventDoc, string(encoded))
}

func TestSchemaToCodecRejects(t *testing.T) {
	g, err := cueschema.Compile("events.cue", []byte(eventSchema), cueschema.Options{Logger: testutil.DiscardLogger()})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.CheckConstraints = true
	res, err := newPipeline(t, cfg).Run(context.Background(), "events.cue", g)
	require.NoError(t, err)
	c := codec.New(res.Final(), codec.WithLogger(testutil.DiscardLogger()))

	base := `"id": "0190b7e4-8f3a-7c1d-9e2f-3a4b5c6d7e8f", "at": "2024-05-06T07:08:09Z", "labels": {}`
	tests := []struct {
		name string
		doc  string
	}{
		{"enum case", `{` + base + `, "kind": "pause", "count": 1}`},
		{"range", `{` + base + `, "kind": "open", "count": 101}`},
		{"uuid", `{"id": "nope", "at": "2024-05-06T07:08:09Z", "labels": {}, "kind": "open", "count": 1}`},
		{"closed definition", `{` + base + `, "kind": "open", "count": 1, "extra": true}`},
		{"missing required", `{` + base + `, "kind": "open"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.DecodeJSON("Event", []byte(tt.doc))
			assert.ErrorIs(t, err, codec.ErrCannotDecode)
		})
	}
}

func TestSamplesToCodecRoundTrip(t *testing.T) {
	samples := []jsonsample.Sample{
		{Name: "Order", Source: "a.json", Data: []byte(`{"id": 1, "placed": "2024-01-02", "items": [{"sku": "x", "qty": 2}]}`)},
		{Name: "Order", Source: "b.json", Data: []byte(`{"id": 2, "placed": "2024-01-03", "items": [], "coupon": "SAVE"}`)},
	}
	cfg := DefaultConfig()
	mapping, err := cfg.Mapping()
	require.NoError(t, err)

	g, err := jsonsample.Infer(samples, jsonsample.Options{Mapping: mapping, ConflateNumbers: cfg.ConflateNumbers, Logger: testutil.DiscardLogger()})
	require.NoError(t, err)
	res, err := newPipeline(t, cfg).Run(context.Background(), "samples", g)
	require.NoError(t, err)

	c := codec.New(res.Final(), codec.WithLogger(testutil.DiscardLogger()))
	for _, s := range samples {
		decoded, err := c.DecodeJSON("Order", s.Data)
		require.NoError(t, err, s.Source)

		order := decoded.(map[string]any)
		_, isTime := order["placed"].(time.Time)
		assert.True(t, isTime, "folded date decodes as time")

		_, err = c.EncodeJSON("Order", decoded)
		require.NoError(t, err, s.Source)
	}
}
