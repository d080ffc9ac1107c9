package query

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by Set.Get.
var (
	// ErrNotFound is returned when Get matches no rows.
	ErrNotFound = errors.New("no rows matched")
	// ErrMultipleRows is returned when Get matches more than one row.
	ErrMultipleRows = errors.New("more than one row matched")
)

// FieldError reports a name that could not be resolved against a table,
// its relations or the query's annotations.
type FieldError struct {
	Keyword string
	Table   string
	Choices []string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("cannot resolve keyword %q into field on %s, choices are: %s",
		e.Keyword, e.Table, strings.Join(e.Choices, ", "))
}

// FieldMissingError reports an operation that requires a declared column
// (such as Defer) being given a name that is not one, e.g. an annotation.
type FieldMissingError struct {
	Table string
	Field string
}

// Error implements the error interface.
func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("%s has no field named %q", e.Table, e.Field)
}

// AnnotationError reports an annotation whose name collides with a declared
// column on the table.
type AnnotationError struct {
	Table string
	Name  string
}

// Error implements the error interface.
func (e *AnnotationError) Error() string {
	return fmt.Sprintf("annotation %q conflicts with a column on %s", e.Name, e.Table)
}
