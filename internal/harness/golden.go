package harness

import (
	"github.com/roach88/typeshape/internal/raw"
)

// GoldenJSON renders what a golden file records for a scenario: the
// generation hashes and the document outcomes, as canonical JSON. Two runs
// of one scenario render byte-identically.
func (r *Result) GoldenJSON(scenarioName string) ([]byte, error) {
	gens := make([]any, len(r.Generations))
	for i, g := range r.Generations {
		gens[i] = map[string]any{
			"pass":        g.Pass,
			"hash":        g.Hash,
			"types":       g.Types,
			"diagnostics": g.Diagnostics,
		}
	}
	docs := make([]any, len(r.Documents))
	for i, d := range r.Documents {
		m := map[string]any{
			"top_level": d.TopLevel,
			"expect":    d.Expect,
			"decoded":   d.Decoded,
		}
		if d.Encoded != "" {
			m["encoded"] = d.Encoded
		}
		if d.Error != "" {
			m["error"] = d.Error
		}
		docs[i] = m
	}
	return raw.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"run_id":        r.RunID,
		"generations":   gens,
		"documents":     docs,
	})
}
