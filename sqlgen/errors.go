// Package sqlgen defines error types for query compilation.
package sqlgen

import (
	"fmt"

	"github.com/garrypolley/djorm/expr"
)

// UnsupportedLookupError is returned when the active dialect has no SQL
// template for a lookup kind. It is surfaced at compile time and never
// silently dropped.
type UnsupportedLookupError struct {
	Lookup  expr.Lookup
	Dialect string
}

// Error returns the error message for UnsupportedLookupError.
func (e *UnsupportedLookupError) Error() string {
	return fmt.Sprintf("dialect %q has no template for lookup %q", e.Dialect, e.Lookup)
}

// CompileError indicates a malformed IR reaching the compiler, such as
// a field reference with no resolved column. It signals a builder bug
// and is not user-recoverable.
type CompileError struct {
	Message string
}

// Error returns the error message for CompileError.
func (e *CompileError) Error() string {
	return "compile: " + e.Message
}

func compileErrorf(format string, args ...any) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...)}
}
