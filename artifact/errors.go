package artifact

import (
	"errors"
	"fmt"
)

// Common store errors.
var (
	// ErrNotFound is returned when no artifact exists for a key.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidKind is returned for unrecognized artifact kinds.
	ErrInvalidKind = errors.New("invalid artifact kind")
	// ErrIndexLocked is returned when the per-slug advisory lock cannot be
	// acquired within the configured timeout.
	ErrIndexLocked = errors.New("artifact index locked")
)

// StoreError wraps an I/O failure inside the store. The orchestrator treats
// store errors as fatal for the whole pipeline, so callers must be able to
// distinguish them from not-found and validation conditions.
type StoreError struct {
	Op   string // operation that failed: "put", "get", "index", ...
	Slug string
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("artifact store %s %s/%s: %v", e.Op, e.Slug, e.Kind, e.Err)
	}
	return fmt.Sprintf("artifact store %s %s: %v", e.Op, e.Slug, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op, slug string, kind Kind, err error) error {
	return &StoreError{Op: op, Slug: slug, Kind: kind, Err: err}
}

// IsStoreError reports whether err is a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// ValidationError reports an internal invariant violation: a payload or
// outline that breaks its own contract. Like store errors these are fatal;
// retrying cannot fix a broken invariant.
type ValidationError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed in %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps err as an invariant violation in stage.
func NewValidationError(stage string, err error) error {
	return &ValidationError{Stage: stage, Err: err}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
