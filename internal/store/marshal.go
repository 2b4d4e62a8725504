package store

import (
	"fmt"

	"github.com/roach88/typeshape/internal/raw"
)

// marshalConfig renders a run's configuration as canonical JSON so equal
// configurations are stored byte-identically.
func marshalConfig(config map[string]any) (string, error) {
	if config == nil {
		config = map[string]any{}
	}
	b, err := raw.MarshalCanonical(config)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
