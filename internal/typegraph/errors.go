package typegraph

import "fmt"

// ConsistencyError reports a defect in graph construction or rewriting:
// resolving a forward reference twice, leaving one unresolved, mixing
// generations, or breaking the union invariant. It is raised with panic
// and is never a user-data error.
type ConsistencyError struct {
	Op      string
	Message string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("type graph consistency violation in %s: %s", e.Op, e.Message)
}

func consistencyf(op, format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// Assert panics with a ConsistencyError when cond is false.
func Assert(cond bool, op, format string, args ...any) {
	if !cond {
		panic(consistencyf(op, format, args...))
	}
}

// Fail panics with a ConsistencyError.
func Fail(op, format string, args ...any) {
	panic(consistencyf(op, format, args...))
}
