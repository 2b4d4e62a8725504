package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/typeshape/internal/input"
	"github.com/roach88/typeshape/internal/input/jsonsample"
)

// InferOptions holds flags for the infer command.
type InferOptions struct {
	*RootOptions
	Name string // top-level name for every sample
}

// NewInferCommand creates the infer command.
func NewInferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InferOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "infer <sample.json|dir>...",
		Short: "Infer a type graph from JSON samples",
		Long: `Infer a type graph from example JSON documents and normalize it.

Samples with the same top-level name are unified into one type. The name
is taken from --name, or else from each file name ("order-events.json"
becomes "OrderEvents"). A directory argument contributes every .json file
in it.

Examples:
  typeshape infer orders/*.json
  typeshape infer --name Order samples/
  typeshape infer --db history.db --format json order.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "top-level type name for all samples")

	return cmd
}

func runInfer(opts *InferOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	mapping, err := cfg.Mapping()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeInvalidConfig, err.Error(), nil)
	}

	files, err := collectSampleFiles(args)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
		}
		return formatter.fail(ExitCommandError, ErrCodeScanError, err.Error(), nil)
	}
	if len(files) == 0 {
		return formatter.fail(ExitCommandError, ErrCodeNoFiles, "no JSON samples found", nil)
	}

	samples := make([]jsonsample.Sample, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			if os.IsNotExist(err) {
				return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("sample not found: %s", f), nil)
			}
			return formatter.fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("reading sample: %v", err), nil)
		}
		name := opts.Name
		if name == "" {
			name = topLevelName(f)
		}
		formatter.VerboseLog("Sample %s -> %s", f, name)
		samples = append(samples, jsonsample.Sample{Name: name, Source: f, Data: data})
	}

	g, err := jsonsample.Infer(samples, jsonsample.Options{
		Mapping:         mapping,
		ConflateNumbers: cfg.ConflateNumbers,
		Logger:          newLogger(opts.RootOptions, cmd.ErrOrStderr()),
	})
	if err != nil {
		return failInput(formatter, err)
	}

	return runPipeline(cmd, opts.RootOptions, formatter, cfg, fmt.Sprintf("%d sample(s)", len(samples)), g)
}

// collectSampleFiles expands directory arguments into their .json files.
// Files named directly are kept whatever their extension.
func collectSampleFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("path not found: %s: %w", arg, fs.ErrNotExist)
			}
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("error scanning directory: %w", err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	return files, nil
}

// topLevelName turns a file name into a type name: the extension is
// dropped and the remaining words are title-cased and joined.
func topLevelName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	caser := cases.Title(language.Und, cases.NoLower)
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(caser.String(w))
	}
	if sb.Len() == 0 {
		return "Root"
	}
	return sb.String()
}

// failInput reports a front-end error. Malformed sources are load
// failures; anything else is unexpected.
func failInput(formatter *OutputFormatter, err error) error {
	var inErr *input.Error
	if errors.As(err, &inErr) {
		details := map[string]string{"source": inErr.Source}
		if inErr.Path != "" {
			details["path"] = inErr.Path
		}
		return formatter.fail(ExitCommandError, ErrCodeLoadFailed, inErr.Error(), details)
	}
	return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}
