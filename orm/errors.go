package orm

import "fmt"

// NotFoundError is returned when Get matches no rows.
type NotFoundError struct {
	TypeName string
}

// Error returns the error message for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found", e.TypeName)
}

// NotUniqueError is returned when Get matches more than one row.
type NotUniqueError struct {
	TypeName string
	Count    int
}

// Error returns the error message for NotUniqueError.
func (e *NotUniqueError) Error() string {
	return fmt.Sprintf("%s: expected one result, got %d", e.TypeName, e.Count)
}

// HydrationError is returned when a row value cannot be assigned to a
// struct field.
type HydrationError struct {
	TypeName string
	Field    string
	Cause    error
}

// Error returns the error message for HydrationError.
func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrating %s.%s: %v", e.TypeName, e.Field, e.Cause)
}

// Unwrap returns the underlying cause of the HydrationError.
func (e *HydrationError) Unwrap() error {
	return e.Cause
}
