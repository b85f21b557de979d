// Package errs defines the error taxonomy shared by the dispatch service.
// Callers classify failures with errors.Is; the HTTP layer maps each sentinel
// to a status code.
package errs

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed or missing input. It is always raised before
// any persistence side effect.
var ErrValidation = errors.New("validation failed")

// ErrNotFound marks a missing resource (job, technician).
var ErrNotFound = errors.New("not found")

// ErrUnavailable marks an unreachable upstream store or index. Partial results
// are never returned alongside it.
var ErrUnavailable = errors.New("upstream unavailable")

// ErrConflict marks a transaction write conflict. The store retries these
// transparently; it surfaces only when retries are exhausted.
var ErrConflict = errors.New("write conflict")

// ErrIntegrity marks a record that was valid at selection time but vanished
// before commit.
var ErrIntegrity = errors.New("integrity anomaly")

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}
