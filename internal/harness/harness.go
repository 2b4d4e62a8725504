package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/typeshape/internal/codec"
	"github.com/roach88/typeshape/internal/input/cueschema"
	"github.com/roach88/typeshape/internal/input/jsonsample"
	"github.com/roach88/typeshape/internal/pipeline"
	"github.com/roach88/typeshape/internal/store"
	"github.com/roach88/typeshape/internal/testutil"
	"github.com/roach88/typeshape/internal/typegraph"
)

// Harness holds what one scenario execution needs.
type Harness struct {
	store  *store.Store
	cfg    pipeline.Config
	logger *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Build the input graph from the schema or samples
// 2. Run the pipeline, recording every generation
// 3. Read the generations back from the store
// 4. Decode each document and check its expectation
// 5. Evaluate assertions against the final graph
//
// An error is returned only when the scenario cannot be executed at all.
// Failed expectations are reported on the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg, err := scenario.PipelineConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	source, g, err := h.loadInput(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}

	p, err := pipeline.New(cfg,
		pipeline.WithLogger(h.logger),
		pipeline.WithRecorder(st),
		pipeline.WithRunIDs(testutil.FixedRunID(scenario.RunID)),
	)
	if err != nil {
		return nil, err
	}
	run, err := p.Run(ctx, source, g)
	if err != nil {
		return nil, fmt.Errorf("failed to run pipeline: %w", err)
	}

	result := NewResult()
	result.RunID = run.RunID
	result.Final = run.Final()

	gens, err := st.ReadGenerations(ctx, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read generations: %w", err)
	}
	for _, gen := range gens {
		result.Generations = append(result.Generations, GenerationSummary{
			Pass:        gen.Pass,
			Hash:        gen.Hash,
			Types:       gen.TypeCount,
			Diagnostics: len(gen.Diagnostics),
		})
	}

	c := codec.New(result.Final, codec.WithLogger(h.logger))
	for i, doc := range scenario.Documents {
		if err := h.checkDocument(c, i, doc, result); err != nil {
			return nil, err
		}
	}

	for _, errMsg := range EvaluateAssertions(result.Final, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// loadInput builds the first generation and describes its source.
func (h *Harness) loadInput(s *Scenario) (string, *typegraph.Graph, error) {
	if s.Schema != "" {
		opts := cueschema.Options{ConflateNumbers: h.cfg.ConflateNumbers, Logger: h.logger}
		info, err := os.Stat(s.Schema)
		if err != nil {
			return "", nil, err
		}
		if info.IsDir() {
			g, err := cueschema.Load(s.Schema, opts)
			return s.Schema, g, err
		}
		src, err := os.ReadFile(s.Schema)
		if err != nil {
			return "", nil, err
		}
		g, err := cueschema.Compile(filepath.Base(s.Schema), src, opts)
		return s.Schema, g, err
	}

	mapping, err := h.cfg.Mapping()
	if err != nil {
		return "", nil, err
	}
	samples := make([]jsonsample.Sample, len(s.Samples))
	for i, src := range s.Samples {
		data, label, err := readSource(src.File, src.JSON, fmt.Sprintf("samples[%d]", i))
		if err != nil {
			return "", nil, err
		}
		samples[i] = jsonsample.Sample{Name: src.Name, Source: label, Data: data}
	}
	g, err := jsonsample.Infer(samples, jsonsample.Options{
		Mapping:         mapping,
		ConflateNumbers: h.cfg.ConflateNumbers,
		Logger:          h.logger,
	})
	return fmt.Sprintf("%d samples", len(samples)), g, err
}

func readSource(file, inline, label string) ([]byte, string, error) {
	if inline != "" {
		return []byte(inline), label, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", label, err)
	}
	return data, file, nil
}

// checkDocument decodes doc, re-encodes it and checks the encoding is
// stable under a second decode/encode round.
func (h *Harness) checkDocument(c *codec.Codec, index int, doc Document, result *Result) error {
	data, _, err := readSource(doc.File, doc.JSON, fmt.Sprintf("documents[%d]", index))
	if err != nil {
		return err
	}
	dr := DocumentResult{TopLevel: doc.TopLevel, Expect: doc.Expect}
	defer func() { result.Documents = append(result.Documents, dr) }()

	decoded, err := c.DecodeJSON(doc.TopLevel, data)
	if err != nil {
		dr.Error = err.Error()
		if doc.Expect == ExpectDecode {
			result.AddError(fmt.Sprintf("documents[%d]: expected %s to decode: %v", index, doc.TopLevel, err))
			return nil
		}
		var de *codec.DecodeError
		if doc.Path != "" && (!errors.As(err, &de) || de.Path != doc.Path) {
			result.AddError(fmt.Sprintf("documents[%d]: expected rejection at %s, got: %v", index, doc.Path, err))
		}
		return nil
	}

	dr.Decoded = true
	if doc.Expect == ExpectReject {
		result.AddError(fmt.Sprintf("documents[%d]: expected %s to be rejected", index, doc.TopLevel))
		return nil
	}

	first, err := c.EncodeJSON(doc.TopLevel, decoded)
	if err != nil {
		result.AddError(fmt.Sprintf("documents[%d]: re-encoding failed: %v", index, err))
		return nil
	}
	dr.Encoded = string(first)

	again, err := c.DecodeJSON(doc.TopLevel, first)
	if err != nil {
		result.AddError(fmt.Sprintf("documents[%d]: re-encoded document does not decode: %v", index, err))
		return nil
	}
	second, err := c.EncodeJSON(doc.TopLevel, again)
	if err != nil || !bytes.Equal(first, second) {
		result.AddError(fmt.Sprintf("documents[%d]: encoding is not stable: %s vs %s", index, first, second))
	}
	return nil
}
