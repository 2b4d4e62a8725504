package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/typeshape/internal/pipeline"
	"github.com/roach88/typeshape/internal/snapshot"
	"github.com/roach88/typeshape/internal/store"
	"github.com/roach88/typeshape/internal/typegraph"
)

// RunOutput is the payload infer and schema print.
type RunOutput struct {
	Source      string             `json:"source"`
	Generations []GenerationOutput `json:"generations"`
	Graph       map[string]any     `json:"graph"`
	Diagnostics []DiagnosticOutput `json:"diagnostics"`
}

// GenerationOutput summarizes one generation of a run.
type GenerationOutput struct {
	Seq         int    `json:"seq"`
	Pass        string `json:"pass"`
	Hash        string `json:"hash"`
	Types       int    `json:"types"`
	Diagnostics int    `json:"diagnostics"`
}

// DiagnosticOutput is one diagnostic of the final generation.
type DiagnosticOutput struct {
	Pass     string `json:"pass"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads --config, or returns the defaults without one.
func loadConfig(opts *RootOptions, formatter *OutputFormatter) (pipeline.Config, error) {
	if opts.ConfigPath == "" {
		return pipeline.DefaultConfig(), nil
	}
	cfg, err := pipeline.LoadConfig(opts.ConfigPath)
	if err != nil {
		return pipeline.Config{}, formatter.fail(ExitCommandError, ErrCodeInvalidConfig, err.Error(), nil)
	}
	formatter.VerboseLog("Loaded config from %s", opts.ConfigPath)
	return cfg, nil
}

// runPipeline runs g through the pipeline, recording to --db when set,
// and prints the result.
func runPipeline(cmd *cobra.Command, opts *RootOptions, formatter *OutputFormatter, cfg pipeline.Config, source string, g *typegraph.Graph) error {
	ctx := commandContext(cmd)
	popts := []pipeline.Option{pipeline.WithLogger(newLogger(opts, cmd.ErrOrStderr()))}

	if opts.DBPath != "" {
		st, err := store.Open(opts.DBPath)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("opening database: %v", err), nil)
		}
		defer st.Close()
		popts = append(popts, pipeline.WithRecorder(st))
	}

	p, err := pipeline.New(cfg, popts...)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeInvalidConfig, err.Error(), nil)
	}
	res, err := p.Run(ctx, source, g)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodePipeline, fmt.Sprintf("pipeline run failed: %v", err), nil)
	}

	out, err := buildRunOutput(source, res)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	for _, gen := range out.Generations {
		formatter.VerboseLog("Generation %d: %s (%d types)", gen.Seq, gen.Pass, gen.Types)
	}

	if formatter.Format == "json" {
		return formatter.SuccessWithRun(res.RunID, out)
	}
	return outputRunText(formatter, res, out, opts.DBPath != "")
}

func buildRunOutput(source string, res *pipeline.Result) (*RunOutput, error) {
	out := &RunOutput{
		Source:      source,
		Generations: make([]GenerationOutput, 0, len(res.Steps)),
		Graph:       snapshot.Of(res.Final()),
		Diagnostics: []DiagnosticOutput{},
	}
	for i, step := range res.Steps {
		hash, err := snapshot.Hash(step.Graph)
		if err != nil {
			return nil, fmt.Errorf("hashing generation %d: %w", i, err)
		}
		out.Generations = append(out.Generations, GenerationOutput{
			Seq:         i,
			Pass:        step.Pass,
			Hash:        hash,
			Types:       step.Graph.Len(),
			Diagnostics: len(step.Diagnostics),
		})
	}
	for _, d := range res.Diagnostics() {
		out.Diagnostics = append(out.Diagnostics, DiagnosticOutput{
			Pass:     d.Pass,
			Code:     d.Code,
			Severity: string(d.Severity),
			Message:  d.Message,
		})
	}
	return out, nil
}

func outputRunText(formatter *OutputFormatter, res *pipeline.Result, out *RunOutput, recorded bool) error {
	w := formatter.Writer
	final := res.Final()

	fmt.Fprintf(w, "✓ %s: %d top-level type(s), %d generation(s)\n", out.Source, len(final.TopLevels()), len(out.Generations))
	if recorded {
		fmt.Fprintf(w, "  Run: %s\n", res.RunID)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Generations:")
	for _, gen := range out.Generations {
		fmt.Fprintf(w, "  %d. %-22s %4d types  %s\n", gen.Seq, gen.Pass, gen.Types, shortHash(gen.Hash))
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, renderGraph(final))

	if len(out.Diagnostics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Diagnostics:")
		for _, d := range out.Diagnostics {
			fmt.Fprintf(w, "  [%s] %s: %s (%s)\n", d.Severity, d.Pass, d.Message, d.Code)
		}
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
