package domain

import (
	"errors"
	"fmt"

	"roombook/internal/models"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrRoomUnavailable        = errors.New("room is not available for the requested period")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrRateLimited            = errors.New("too many booking writes, try again later")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// LockedStateError is returned when the stored status of a booking forbids the requested change.
type LockedStateError struct {
	Status  models.Status
	Message string
}

func (e *LockedStateError) Error() string {
	return e.Message
}

// Classify maps an error returned by the booking service to a short label for metrics and logs.
func Classify(err error) string {
	var validationErr *ValidationError
	var lockedErr *LockedStateError

	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &validationErr):
		return "invalid"
	case errors.As(err, &lockedErr):
		return "locked"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrRoomUnavailable):
		return "conflict"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
