package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrOutOfBounds        = fmt.Errorf("coordinate outside valid geographic bounds: %w", ErrInvalidInput)
	ErrTooFewPoints       = fmt.Errorf("a polygon needs at least 3 points: %w", ErrInvalidInput)
	ErrMinVertices        = fmt.Errorf("a polygon cannot have fewer than 3 vertices: %w", ErrInvalidInput)
	ErrVertexIndex        = fmt.Errorf("vertex index: %w", ErrInvalidInput)
	ErrInvalidLatBand     = fmt.Errorf("latitude band: %w", ErrInvalidInput)
	ErrInvalidAnnotation  = fmt.Errorf("annotation: %w", ErrInvalidInput)
	ErrInvalidGeometry    = fmt.Errorf("geometry: %w", ErrInvalidInput)
	ErrPolygonNotFound    = fmt.Errorf("polygon: %w", ErrNotFound)
	ErrRuleNotFound       = fmt.Errorf("rule set: %w", ErrNotFound)
	ErrBusy               = fmt.Errorf("another interaction is active: %w", ErrConflict)
	ErrNotDrawing         = fmt.Errorf("not drawing: %w", ErrConflict)
	ErrNotEditing         = fmt.Errorf("no polygon in edit mode: %w", ErrConflict)
	ErrSearchInFlight     = fmt.Errorf("a search is already in progress: %w", ErrConflict)
	ErrNotReady           = fmt.Errorf("service not ready: %w", ErrUnavailable)
	ErrStorageUnavailable = fmt.Errorf("storage: %w", ErrUnavailable)
)

// ValidationError represents a detailed validation error. Every geometry
// rejection is reported as a ValidationError and leaves state unchanged.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
	Err        error       // Specific sentinel, defaults to ErrInvalidInput
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// SearchError represents a failure of the remote occurrence search.
type SearchError struct {
	Operation string // search, dataset
	Key       string // species or dataset key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("search error during %s for %s: %v", e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("search error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (download, list, save, etc.)
	Key       string // Object key or record id
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error type.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}

// Notice returns the short user-facing message for err. Validation errors
// carry their own message; everything else falls back to err.Error().
func Notice(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
