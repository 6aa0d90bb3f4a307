package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCaseNotFound signals a missing case record.
	ErrCaseNotFound = errors.New("case not found")
	// ErrInvalidQuery signals a query that fails validation before any index work.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector whose dimension differs from the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexCorrupted signals structural damage to an index; the instance
	// should be rebuilt rather than retried.
	ErrIndexCorrupted = errors.New("index corrupted")
	// ErrSearchTimeout signals that a query exceeded its time budget.
	ErrSearchTimeout = errors.New("search timeout")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNotSupported signals an operation the engine does not implement.
	ErrNotSupported = errors.New("operation not supported")
)

// ValidationError names the offending field so callers can surface an
// actionable message. Unwraps to ErrInvalidQuery.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", ErrInvalidQuery.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidQuery }

// NewValidationError creates a field-level validation error.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
