package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/typeshape/internal/input/cueschema"
	"github.com/roach88/typeshape/internal/typegraph"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <dir|file.cue>",
		Short: "Build a type graph from a CUE schema",
		Long: `Build a type graph from the definitions of a CUE schema and normalize it.

Every root definition (#Name) becomes a top-level type. A directory is
loaded as one CUE package.

Examples:
  typeshape schema ./schemas
  typeshape schema events.cue --config strict.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSchema(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, formatter)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("schema not found: %s", path), nil)
		}
		return formatter.fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("error accessing schema: %v", err), nil)
	}

	cueOpts := cueschema.Options{
		ConflateNumbers: cfg.ConflateNumbers,
		Logger:          newLogger(opts, cmd.ErrOrStderr()),
	}
	var g *typegraph.Graph
	if info.IsDir() {
		formatter.VerboseLog("Loading CUE package in %s", path)
		g, err = cueschema.Load(path, cueOpts)
	} else {
		var src []byte
		src, err = os.ReadFile(path)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("reading schema: %v", err), nil)
		}
		formatter.VerboseLog("Compiling %s", path)
		g, err = cueschema.Compile(filepath.Base(path), src, cueOpts)
	}
	if err != nil {
		return failInput(formatter, err)
	}

	return runPipeline(cmd, opts, formatter, cfg, path, g)
}
