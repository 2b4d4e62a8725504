// Package input holds what the front ends share: the error they report
// for malformed sources.
//
// Front ends live in subpackages. Each builds the first graph generation
// with a typegraph.Builder and hands it to the pipeline.
package input

import "fmt"

// Error reports a source a front end could not read.
type Error struct {
	// Source names the file or sample.
	Source string
	// Path locates the problem inside the source, when known.
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	loc := e.Source
	if e.Path != "" {
		loc += ":" + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
