// Package apperr defines the error kinds shared by the services and mapped to
// HTTP responses at the handler boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotNoLongerAvailable is returned when a booking loses the race for a
	// slot between fetching availability and submitting.
	ErrSlotNoLongerAvailable = errors.New("the selected time slot is no longer available")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrForbidden             = errors.New("you are not allowed to perform this action")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing entity, or one the caller may not see.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// NotFound builds a NotFoundError.
func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// StorageError wraps a persistence or file I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it already carries one of the
// domain kinds, which pass through untouched.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsDomain reports whether err is one of the kinds callers can act on.
func IsDomain(err error) bool {
	var v *ValidationError
	var nf *NotFoundError
	var se *StorageError
	return errors.As(err, &v) ||
		errors.As(err, &nf) ||
		errors.As(err, &se) ||
		errors.Is(err, ErrSlotNoLongerAvailable) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrForbidden)
}
