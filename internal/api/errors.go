package api

import (
	"errors"
	"net/http"

	"roombook/internal/domain"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const msgInternal = "internal server error"

// httpStatus maps a service error to the HTTP status code returned to clients.
func httpStatus(err error) int {
	var validationErr *domain.ValidationError
	var lockedErr *domain.LockedStateError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &lockedErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRoomUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func errorResponse(err error) (int, errorBody) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		return code, errorBody{Message: msgInternal}
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return code, errorBody{
			Message: validationErr.Error(),
			Errors:  map[string][]string{validationErr.Field: {validationErr.Message}},
		}
	}

	var lockedErr *domain.LockedStateError
	if errors.As(err, &lockedErr) {
		return code, errorBody{Message: lockedErr.Message}
	}
	return code, errorBody{Message: err.Error()}
}

// grpcError converts a service error into a gRPC status error.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var validationErr *domain.ValidationError
	var lockedErr *domain.LockedStateError

	switch {
	case errors.As(err, &validationErr):
		return status.Error(codes.InvalidArgument, validationErr.Error())
	case errors.As(err, &lockedErr):
		return status.Error(codes.FailedPrecondition, lockedErr.Message)
	case errors.Is(err, domain.ErrRoomUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, msgInternal)
	}
}
