package typegraph

import "fmt"

// Severity of a diagnostic. Diagnostics never stop a pipeline.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes.
const (
	// CodeLostTypeAttributes marks a simplification that dropped meaning,
	// e.g. an object allowing any extra key normalized into a closed class.
	CodeLostTypeAttributes = "lost-type-attributes"
)

// Diagnostic is a non-fatal note attached to a generation by the pass that
// produced it.
type Diagnostic struct {
	Pass     string
	Code     string
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s (%s)", d.Severity, d.Pass, d.Message, d.Code)
}

// HasDiagnostic reports whether any diagnostic carries code.
func HasDiagnostic(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}
