package cli

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/typeshape/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Hash     string // find generations with this content hash
	Snapshot int    // print this generation's snapshot, -1 for none
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID     string          `json:"id"`
	Seq    int64           `json:"seq"`
	Source string          `json:"source"`
	Config json.RawMessage `json:"config"`
}

// StoredGeneration is one generation as read back from the database.
type StoredGeneration struct {
	RunID       string             `json:"run_id"`
	Seq         int                `json:"seq"`
	Pass        string             `json:"pass"`
	Hash        string             `json:"hash"`
	Types       int                `json:"types"`
	Trace       int                `json:"trace,omitempty"`
	Diagnostics []DiagnosticOutput `json:"diagnostics,omitempty"`
}

// RunHistory is a run with its generations.
type RunHistory struct {
	Run         RunSummary         `json:"run"`
	Generations []StoredGeneration `json:"generations"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Inspect recorded pipeline runs",
		Long: `Inspect the runs recorded with --db.

Without arguments every run is listed. With a run ID its generations are
shown, and --snapshot N prints the canonical snapshot of generation N.
--hash lists every generation, across runs, with that content hash.

Examples:
  typeshape history --db history.db
  typeshape history --db history.db 0191e0c4-7b7e-7c3a-9f00-2a61c1f0e001
  typeshape history --db history.db <run-id> --snapshot 4
  typeshape history --db history.db --hash 3f2a...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Hash, "hash", "", "find generations by content hash")
	cmd.Flags().IntVar(&opts.Snapshot, "snapshot", -1, "print the snapshot of this generation")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	if opts.DBPath == "" {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "--db is required", nil)
	}
	if _, err := os.Stat(opts.DBPath); os.IsNotExist(err) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DBPath), nil)
	}
	if opts.Snapshot >= 0 && len(args) == 0 {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "--snapshot needs a run ID", nil)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer st.Close()

	switch {
	case opts.Hash != "":
		gens, err := st.FindByHash(ctx, opts.Hash)
		if err != nil {
			return storeFailure(formatter, err)
		}
		return outputGenerations(formatter, fmt.Sprintf("Generations with hash %s", shortHash(opts.Hash)), storedGenerations(gens))

	case len(args) == 0:
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return storeFailure(formatter, err)
		}
		return outputRuns(formatter, runs)

	case opts.Snapshot >= 0:
		snap, err := st.ReadSnapshot(ctx, args[0], opts.Snapshot)
		if err != nil {
			return storeFailure(formatter, err)
		}
		if formatter.Format == "json" {
			return formatter.SuccessWithRun(args[0], json.RawMessage(snap))
		}
		fmt.Fprintln(formatter.Writer, string(snap))
		return nil

	default:
		run, err := st.ReadRun(ctx, args[0])
		if err != nil {
			return storeFailure(formatter, err)
		}
		gens, err := st.ReadGenerations(ctx, run.ID)
		if err != nil {
			return storeFailure(formatter, err)
		}
		hist := RunHistory{Run: runSummary(run), Generations: storedGenerations(gens)}
		if formatter.Format == "json" {
			return formatter.SuccessWithRun(run.ID, hist)
		}
		fmt.Fprintf(formatter.Writer, "Run %s (#%d)\n", run.ID, run.Seq)
		fmt.Fprintf(formatter.Writer, "  Source: %s\n", run.Source)
		fmt.Fprintf(formatter.Writer, "  Config: %s\n\n", run.Config)
		return outputGenerations(formatter, "Generations", hist.Generations)
	}
}

// storeFailure maps missing rows to E005 and anything else to E007.
func storeFailure(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}
	return formatter.fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
}

func runSummary(r store.Run) RunSummary {
	return RunSummary{ID: r.ID, Seq: r.Seq, Source: r.Source, Config: json.RawMessage(r.Config)}
}

func storedGenerations(gens []store.Generation) []StoredGeneration {
	out := make([]StoredGeneration, 0, len(gens))
	for _, g := range gens {
		sg := StoredGeneration{
			RunID: g.RunID,
			Seq:   g.Seq,
			Pass:  g.Pass,
			Hash:  g.Hash,
			Types: g.TypeCount,
			Trace: len(g.Trace),
		}
		for _, d := range g.Diagnostics {
			sg.Diagnostics = append(sg.Diagnostics, DiagnosticOutput(d))
		}
		out = append(out, sg)
	}
	return out
}

func outputRuns(formatter *OutputFormatter, runs []store.Run) error {
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = runSummary(r)
	}
	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%d run(s):\n", len(runs))
	for _, r := range summaries {
		fmt.Fprintf(w, "  #%-4d %s  %s\n", r.Seq, r.ID, r.Source)
	}
	return nil
}

func outputGenerations(formatter *OutputFormatter, title string, gens []StoredGeneration) error {
	if formatter.Format == "json" {
		return formatter.Success(gens)
	}

	w := formatter.Writer
	if len(gens) == 0 {
		fmt.Fprintf(w, "%s: none\n", title)
		return nil
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, g := range gens {
		fmt.Fprintf(w, "  %s/%d  %-22s %4d types  %s\n", g.RunID, g.Seq, g.Pass, g.Types, shortHash(g.Hash))
		if formatter.Verbose && g.Trace > 0 {
			fmt.Fprintf(w, "      %d reconstitution(s) traced\n", g.Trace)
		}
		for _, d := range g.Diagnostics {
			fmt.Fprintf(w, "      [%s] %s (%s)\n", d.Severity, d.Message, d.Code)
		}
	}
	return nil
}
