package schema

import (
	"fmt"
	"strings"
)

// UnknownFieldError is returned when a lookup path references a field or
// relation name that the entity does not declare.
type UnknownFieldError struct {
	Entity string
	Name   string
}

// Error returns the error message for UnknownFieldError.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("entity %q has no field or relation %q", e.Entity, e.Name)
}

// InvalidPathError is returned when a non-relation field is used as an
// intermediate segment of a lookup path.
type InvalidPathError struct {
	Entity  string
	Path    []string
	Segment string
}

// Error returns the error message for InvalidPathError.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("path %q: %q on entity %q is a field, not a relation",
		strings.Join(e.Path, "__"), e.Segment, e.Entity)
}

// DuplicateEntityError is returned when two different entities are
// registered under the same name.
type DuplicateEntityError struct {
	Name string
}

// Error returns the error message for DuplicateEntityError.
func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity %q is already registered", e.Name)
}

// NotRegisteredError is returned when an operation is attempted on a Go
// type or entity name that has not been registered.
type NotRegisteredError struct {
	TypeName string
}

// Error returns the error message for NotRegisteredError.
func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("type %q is not registered", e.TypeName)
}
