// Package pipeline runs a front-end graph through the normalization passes
// and transformer derivation, in order:
//
//	map-string-types -> replace-object-type (until no objects remain)
//	-> combine-classes (optional) -> make-transformations
//
// Every generation is kept on the Result and, when a Recorder is set,
// written to the run history.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/typeshape/internal/passes"
	"github.com/roach88/typeshape/internal/rewrite"
	"github.com/roach88/typeshape/internal/store"
	"github.com/roach88/typeshape/internal/transform"
	"github.com/roach88/typeshape/internal/typegraph"
)

// maxObjectRounds caps the replace-object-type loop. Merging map values can
// produce new objects, but each round strictly reduces them or stops.
const maxObjectRounds = 8

// RunIDGenerator produces run identifiers.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
type UUIDv7Generator struct{}

// Generate panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Recorder persists runs. *store.Store implements it.
type Recorder interface {
	CreateRun(ctx context.Context, id, source string, config map[string]any) (store.Run, error)
	WriteGeneration(ctx context.Context, gen store.Generation) error
}

// Step is one generation produced during a run.
type Step struct {
	Pass        string
	Graph       *typegraph.Graph
	Trace       []rewrite.Reconstitution
	Diagnostics []typegraph.Diagnostic
}

// Result holds every generation of a run, input first.
type Result struct {
	RunID string
	Steps []Step
}

// Final returns the last generation, the one carrying Transformations.
func (r *Result) Final() *typegraph.Graph {
	return r.Steps[len(r.Steps)-1].Graph
}

// Diagnostics returns the cumulative diagnostics of the final generation.
func (r *Result) Diagnostics() []typegraph.Diagnostic {
	return r.Final().Diagnostics()
}

// Pipeline is configured once and may run many graphs.
type Pipeline struct {
	cfg      Config
	mapping  typegraph.StringTypeMapping
	logger   *slog.Logger
	recorder Recorder
	ids      RunIDGenerator
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder writes every run to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithRunIDs replaces the UUIDv7 run ID generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(p *Pipeline) { p.ids = g }
}

// New validates cfg and builds a Pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	mapping, err := cfg.Mapping()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	p := &Pipeline{
		cfg:     cfg,
		mapping: mapping,
		logger:  slog.Default(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }

// Mapping returns the string type mapping in effect.
func (p *Pipeline) Mapping() typegraph.StringTypeMapping { return p.mapping }

// Run normalizes g and derives its transformations. source describes where
// g came from and is only recorded.
func (p *Pipeline) Run(ctx context.Context, source string, g *typegraph.Graph) (*Result, error) {
	r := &run{p: p, ctx: ctx, res: &Result{RunID: p.ids.Generate()}}
	logger := p.logger.With("run", r.res.RunID)
	logger.Info("run started", "source", source, "types", g.Len(), "top_levels", len(g.TopLevels()))

	if p.recorder != nil {
		if _, err := p.recorder.CreateRun(ctx, r.res.RunID, source, p.cfg.Describe()); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}
	if err := r.add(Step{Pass: g.Pass(), Graph: g, Diagnostics: g.Diagnostics()}); err != nil {
		return nil, err
	}

	popts := passes.Options{
		Mapping:          p.mapping,
		ConflateNumbers:  p.cfg.ConflateNumbers,
		LeaveFullObjects: p.cfg.LeaveFullObjects,
		DebugTrace:       p.cfg.DebugPrintReconstitution,
		Logger:           logger,
	}

	if err := r.pass(passes.MapStringTypes(r.current(), popts)); err != nil {
		return nil, err
	}

	remaining := -1
	for round := 1; ; round++ {
		if err := r.pass(passes.ReplaceObjectType(r.current(), popts)); err != nil {
			return nil, err
		}
		n := replaceableObjects(r.current(), p.cfg.LeaveFullObjects)
		if n == 0 {
			break
		}
		if round >= maxObjectRounds || (remaining >= 0 && n >= remaining) {
			logger.Warn("objects remain after normalization", "objects", n, "rounds", round)
			break
		}
		remaining = n
	}

	if p.cfg.CombineClasses {
		if err := r.pass(passes.CombineClasses(r.current(), popts)); err != nil {
			return nil, err
		}
	}

	xf := transform.MakeTransformations(r.current(), transform.Options{
		Mapping:          p.mapping,
		CheckConstraints: p.cfg.CheckConstraints,
		DebugTrace:       p.cfg.DebugPrintReconstitution,
		Logger:           logger,
	})
	if err := r.pass(xf); err != nil {
		return nil, err
	}

	final := r.res.Final()
	logger.Info("run finished",
		"generations", len(r.res.Steps),
		"types", final.Len(),
		"diagnostics", len(final.Diagnostics()),
	)
	return r.res, nil
}

type run struct {
	p   *Pipeline
	ctx context.Context
	res *Result
}

func (r *run) current() *typegraph.Graph { return r.res.Final() }

func (r *run) pass(res *rewrite.Result) error {
	return r.add(Step{Pass: res.Graph.Pass(), Graph: res.Graph, Trace: res.Trace, Diagnostics: res.Diagnostics})
}

func (r *run) add(s Step) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	seq := len(r.res.Steps)
	r.res.Steps = append(r.res.Steps, s)
	r.p.logger.Debug("generation",
		"run", r.res.RunID,
		"seq", seq,
		"pass", s.Pass,
		"types", s.Graph.Len(),
		"diagnostics", len(s.Diagnostics),
	)

	if r.p.recorder == nil {
		return nil
	}
	gen, err := store.NewGeneration(r.res.RunID, seq, s.Graph, s.Trace, s.Diagnostics)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	if err := r.p.recorder.WriteGeneration(r.ctx, gen); err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	return nil
}

// replaceableObjects counts the objects replace-object-type would still
// act on.
func replaceableObjects(g *typegraph.Graph, leaveFull bool) int {
	n := 0
	for _, ref := range g.AllTypesUnordered() {
		o, ok := g.Type(ref).(typegraph.Object)
		if !ok {
			continue
		}
		if leaveFull && len(o.Properties) > 0 && o.HasAdditional() {
			continue
		}
		n++
	}
	return n
}
