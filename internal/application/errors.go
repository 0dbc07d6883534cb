package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/reservation-desk/internal/access"
	"github.com/example/reservation-desk/internal/persistence"
)

var (
	// ErrPermissionDenied is returned when the caller lacks the role an operation requires.
	ErrPermissionDenied = access.ErrPermissionDenied
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a booking would overlap a confirmed reservation.
	ErrConflict = errors.New("application: time slot already booked")
	// ErrAlreadyExists is returned when a uniquely named record is added twice.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidTransition is returned when a record is not in a state the operation accepts.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrAlreadyCancelled is returned when a cancelled slot is cancelled again.
	ErrAlreadyCancelled = fmt.Errorf("%w: already cancelled", ErrInvalidTransition)
	// ErrNothingToUndo is returned when the caller has no unexpired snapshot.
	ErrNothingToUndo = errors.New("application: nothing to undo")
	// ErrBackendUnavailable is returned when the store cannot serve the request.
	ErrBackendUnavailable = errors.New("application: backend unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// Summary renders the field errors as "field: message" pairs in field order.
func (v *ValidationError) Summary() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return ""
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func fieldError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// mapStoreError folds persistence failures into the application taxonomy.
// A missing table means the store was never provisioned, which the caller
// cannot fix, so it is reported as a backend failure.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrRowNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrUnknownColumn), errors.Is(err, persistence.ErrImmutableColumn):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
}
