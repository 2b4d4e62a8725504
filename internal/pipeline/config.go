package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/typeshape/internal/typegraph"
)

// Config selects the passes a run applies and how they behave.
type Config struct {
	// ConflateNumbers merges integer and double into double when types are
	// unified.
	ConflateNumbers bool `yaml:"conflate_numbers"`

	// LeaveFullObjects keeps objects that have both properties and
	// additional properties.
	LeaveFullObjects bool `yaml:"leave_full_objects"`

	// CombineClasses runs the combine-classes pass.
	CombineClasses bool `yaml:"combine_classes"`

	// CheckConstraints derives min/max checks from range attributes.
	CheckConstraints bool `yaml:"check_constraints"`

	// DebugPrintReconstitution records and logs every reconstitution.
	DebugPrintReconstitution bool `yaml:"debug_print_reconstitution"`

	// StringTypes lists the active transformed string kinds by name.
	// Nil activates all of them.
	StringTypes []string `yaml:"string_types"`

	// FoldDates represents date and time values as date-time.
	FoldDates bool `yaml:"fold_dates"`
}

// DefaultConfig conflates numbers, combines classes and keeps every
// transformed string kind, with dates and times folded into date-time.
func DefaultConfig() Config {
	return Config{
		ConflateNumbers: true,
		CombineClasses:  true,
		FoldDates:       true,
	}
}

// Mapping builds the string type mapping the config describes.
func (c Config) Mapping() (typegraph.StringTypeMapping, error) {
	kinds := typegraph.TransformedStringKinds
	if c.StringTypes != nil {
		kinds = make([]typegraph.Kind, 0, len(c.StringTypes))
		for _, name := range c.StringTypes {
			k, err := typegraph.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("string_types: %w", err)
			}
			kinds = append(kinds, k)
		}
	}

	m, err := typegraph.StringTypeMappingFor(kinds...)
	if err != nil {
		return nil, fmt.Errorf("string_types: %w", err)
	}
	if c.FoldDates {
		for _, k := range []typegraph.Kind{typegraph.KindDate, typegraph.KindTime} {
			if m.Active(k) {
				m[k] = typegraph.KindDateTime
			}
		}
	}
	return m, nil
}

// Validate checks the config without running anything.
func (c Config) Validate() error {
	_, err := c.Mapping()
	return err
}

// Describe renders the config as a plain map, the form runs are stored in.
func (c Config) Describe() map[string]any {
	d := map[string]any{
		"conflate_numbers":           c.ConflateNumbers,
		"leave_full_objects":         c.LeaveFullObjects,
		"combine_classes":            c.CombineClasses,
		"check_constraints":          c.CheckConstraints,
		"debug_print_reconstitution": c.DebugPrintReconstitution,
		"fold_dates":                 c.FoldDates,
	}
	if c.StringTypes != nil {
		d["string_types"] = append([]string{}, c.StringTypes...)
	}
	return d
}

// LoadConfig reads a YAML config file on top of DefaultConfig. Fields the
// file leaves out keep their defaults; unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig for in-memory YAML.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
