package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/typeshape/internal/pipeline"
	"github.com/roach88/typeshape/internal/typegraph"
)

// Scenario defines one end-to-end check.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a CUE file or package directory. Relative to the scenario.
	Schema string `yaml:"schema,omitempty"`

	// Samples are JSON documents to infer types from.
	Samples []SampleSpec `yaml:"samples,omitempty"`

	// Config overrides pipeline defaults, with the same keys as a config
	// file.
	Config map[string]any `yaml:"config,omitempty"`

	// Documents are decoded with the final graph.
	Documents []Document `yaml:"documents"`

	// Assertions validate the final graph.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is the fixed run ID. If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// SampleSpec is one JSON sample, given as a file or inline.
type SampleSpec struct {
	Name string `yaml:"name"`
	File string `yaml:"file,omitempty"`
	JSON string `yaml:"json,omitempty"`
}

// Document is a JSON document checked against a top-level type.
type Document struct {
	TopLevel string `yaml:"top_level"`
	File     string `yaml:"file,omitempty"`
	JSON     string `yaml:"json,omitempty"`

	// Expect is "decode" or "reject".
	Expect string `yaml:"expect"`

	// Path is the error path a rejection must report. Optional.
	Path string `yaml:"path,omitempty"`
}

// Document expectations.
const (
	ExpectDecode = "decode"
	ExpectReject = "reject"
)

// Assertion validates the final graph.
type Assertion struct {
	// Type specifies the assertion type:
	// - "decodes_as": top level Name decodes into Kind
	// - "kind_count": the final graph holds Count types of Kind
	// - "diagnostic": a diagnostic with Code was recorded
	// - "transformed": top level Name (or its Property) carries a Transformation
	Type string `yaml:"type"`

	Name     string `yaml:"name,omitempty"`
	Property string `yaml:"property,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Count    int    `yaml:"count,omitempty"`
	Code     string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertDecodesAs   = "decodes_as"
	AssertKindCount   = "kind_count"
	AssertDiagnostic  = "diagnostic"
	AssertTransformed = "transformed"
)

// LoadScenario reads and parses a scenario YAML file. Schema and file
// paths are resolved relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.resolvePaths(filepath.Dir(path))

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func (s *Scenario) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	s.Schema = resolve(s.Schema)
	for i := range s.Samples {
		s.Samples[i].File = resolve(s.Samples[i].File)
	}
	for i := range s.Documents {
		s.Documents[i].File = resolve(s.Documents[i].File)
	}
}

// PipelineConfig decodes Config on top of pipeline.DefaultConfig, with
// the same strictness as a config file.
func (s *Scenario) PipelineConfig() (pipeline.Config, error) {
	if len(s.Config) == 0 {
		return pipeline.DefaultConfig(), nil
	}
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := pipeline.ParseConfig(data)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Schema == "" && len(s.Samples) == 0:
		return fmt.Errorf("one of schema or samples is required")
	case s.Schema != "" && len(s.Samples) > 0:
		return fmt.Errorf("schema and samples are mutually exclusive")
	}

	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema not found: %s", s.Schema)
		}
	}

	for i, sample := range s.Samples {
		if sample.Name == "" {
			return fmt.Errorf("samples[%d]: name is required", i)
		}
		if err := exactlyOneSource(sample.File, sample.JSON); err != nil {
			return fmt.Errorf("samples[%d]: %w", i, err)
		}
	}

	if len(s.Documents) == 0 {
		return fmt.Errorf("documents list is required and must be non-empty")
	}

	for i, doc := range s.Documents {
		if doc.TopLevel == "" {
			return fmt.Errorf("documents[%d]: top_level is required", i)
		}
		if err := exactlyOneSource(doc.File, doc.JSON); err != nil {
			return fmt.Errorf("documents[%d]: %w", i, err)
		}
		switch doc.Expect {
		case ExpectDecode:
			if doc.Path != "" {
				return fmt.Errorf("documents[%d]: path is only valid with expect: reject", i)
			}
		case ExpectReject:
		default:
			return fmt.Errorf("documents[%d]: expect must be %q or %q, got %q", i, ExpectDecode, ExpectReject, doc.Expect)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	if _, err := s.PipelineConfig(); err != nil {
		return err
	}

	return nil
}

func exactlyOneSource(file, inline string) error {
	if (file == "") == (inline == "") {
		return fmt.Errorf("exactly one of file or json is required")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDecodesAs:
		if a.Name == "" || a.Kind == "" {
			return fmt.Errorf("assertions[%d]: name and kind are required for decodes_as", index)
		}
	case AssertKindCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for kind_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for kind_count", index)
		}
	case AssertDiagnostic:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic", index)
		}
	case AssertTransformed:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for transformed", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Kind != "" {
		if _, err := typegraph.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}

	return nil
}
