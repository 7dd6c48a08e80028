package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is() checking.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")

	// ErrTransient marks a failure that is expected to clear on its own
	// (simulated store latency spikes, flaky downstream calls). Callers may
	// retry operations that fail with it; permanent errors must not wrap it.
	ErrTransient = errors.New("transient failure")

	// ErrAdmissionTimeout is returned when a caller gives up waiting for
	// admission (rate-limit window, queue capacity) before the work started.
	// It is distinguishable from failures of the work itself.
	ErrAdmissionTimeout = errors.New("admission timeout")
)

// ValidationError provides programmatic access to field-level validation failures.
// Use errors.Is(err, ErrValidation) for simple checks, or errors.As(err, &verr) to
// access verr.Fields for per-field error details.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
