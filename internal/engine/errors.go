package engine

import (
	"fmt"
	"strings"
)

// BuildError aggregates every fatal configuration error found while
// building the desired state: unresolved variables, schema violations,
// duplicate identifiers. All problems of a run are reported together so
// they can be fixed in one pass; nothing remote happens after one.
type BuildError struct {
	Errs []error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if len(e.Errs) == 1 {
		return fmt.Sprintf("build failed: %v", e.Errs[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "build failed with %d errors:", len(e.Errs))
	for _, err := range e.Errs {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the aggregated errors to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error { return e.Errs }
