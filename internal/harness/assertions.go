package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/typeshape/internal/transform"
	"github.com/roach88/typeshape/internal/typegraph"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against g and returns the
// failure messages, in assertion order.
func EvaluateAssertions(g *typegraph.Graph, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertDecodesAs:
			err = assertDecodesAs(g, a)
		case AssertKindCount:
			err = assertKindCount(g, a)
		case AssertDiagnostic:
			err = assertDiagnostic(g, a)
		case AssertTransformed:
			err = assertTransformed(g, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func topLevel(g *typegraph.Graph, kind, name string) (typegraph.TypeRef, error) {
	ref, ok := g.TopLevel(name)
	if !ok {
		return typegraph.TypeRef{}, &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("top level %s", name),
			Actual:   "not found",
		}
	}
	return ref, nil
}

// assertDecodesAs compares the kind values of the top level decode into,
// that is the target of its Transformation when it has one.
func assertDecodesAs(g *typegraph.Graph, a Assertion) error {
	ref, err := topLevel(g, a.Type, a.Name)
	if err != nil {
		return err
	}
	got := g.Kind(transform.FollowTargetType(g, ref))
	if got.String() != a.Kind {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s decodes as %s", a.Name, a.Kind),
			Actual:   got.String(),
		}
	}
	return nil
}

func assertKindCount(g *typegraph.Graph, a Assertion) error {
	k, err := typegraph.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	if got := g.CountKinds()[k]; got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d types of kind %s", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func assertDiagnostic(g *typegraph.Graph, a Assertion) error {
	diags := g.Diagnostics()
	if typegraph.HasDiagnostic(diags, a.Code) {
		return nil
	}
	codes := make([]string, len(diags))
	for i, d := range diags {
		codes[i] = d.Code
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("diagnostic %s", a.Code),
		Actual:   fmt.Sprintf("diagnostics %v", codes),
	}
}

func assertTransformed(g *typegraph.Graph, a Assertion) error {
	ref, err := topLevel(g, a.Type, a.Name)
	if err != nil {
		return err
	}
	what := a.Name
	if a.Property != "" {
		what = a.Name + "." + a.Property
		var props []typegraph.Property
		switch t := g.Type(ref).(type) {
		case typegraph.Class:
			props = t.Properties
		case typegraph.Object:
			props = t.Properties
		}
		p, ok := typegraph.LookupProperty(props, a.Property)
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("property %s", what),
				Actual:   fmt.Sprintf("%s has no such property", g.Kind(ref)),
			}
		}
		ref = p.Type
	}
	if _, ok := transform.ForType(g, ref); !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s carries a transformation", what),
			Actual:   fmt.Sprintf("plain %s", g.Kind(ref)),
		}
	}
	return nil
}
