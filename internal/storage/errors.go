package storage

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when an operation is issued against a catalog whose
// handle has been closed and not reopened.
var ErrClosed = errors.New("catalog is closed")

// IOError reports that the underlying store could not be opened or that a
// transaction failed for infrastructural reasons. It is surfaced to the
// caller as-is; the storage layer never retries automatically.
type IOError struct {
	Op      string
	Catalog string
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Catalog, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ValidationError reports a malformed restore payload or an invalid catalog
// name. It is always raised before any mutating call, so the affected catalog
// is guaranteed untouched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "storage: validation failed: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
