// Package compose contains pure functions for parsing and validating Compose
// stack documents. This is part of the Functional Core - all functions are
// pure with no I/O.
package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Input validation errors
	ErrEmptyInput = errors.New("compose document is empty")

	// YAML parsing errors
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// Document structure errors
	ErrNoServices = errors.New("compose document must define at least one service")

	// Service validation errors
	ErrServiceNoImage     = errors.New("service must have image or build")
	ErrServiceInvalidPort = errors.New("invalid port configuration")
	ErrDependencyCycle    = errors.New("dependency cycle detected")

	// Rule violations (Validate)
	ErrUnknownDependency  = errors.New("depends_on references undefined service")
	ErrSelfDependency     = errors.New("service depends on itself")
	ErrDuplicateHostPort  = errors.New("host port published more than once")
	ErrUndeclaredVolume   = errors.New("volume mount references undeclared volume")
	ErrUndeclaredNetwork  = errors.New("service references undeclared network")
	ErrUnconventionalPort = errors.New("container port differs from image convention")

	// Unsupported feature errors
	ErrUnsupportedFeature = errors.New("unsupported compose feature")
)

// ParseError wraps errors with context about where in the document the
// problem is.
type ParseError struct {
	Field   string // e.g., "services.app.ports[0]"
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
