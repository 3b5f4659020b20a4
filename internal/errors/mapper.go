// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by lookups that must distinguish a missing
	// record. Mutations with a missing target no-op instead.
	ErrNotFound = errors.New("record not found")

	// ErrConflict signals a lost compare-and-swap on a store key.
	ErrConflict = errors.New("revision conflict")

	// ErrDuplicate is returned when a unique field (username) is taken.
	ErrDuplicate = errors.New("already exists")

	// ErrForbidden is returned for moderation actions by non-support users.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned by session operations that need a user.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrServiceUnavailable is the remote's HTTP 402 signal.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// ValidationError is a user-visible rejection. State is left unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation creates a ValidationError not tied to a single field.
func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// InvalidField creates a ValidationError for the given field.
func InvalidField(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// RemoteError is a non-success answer from the remote endpoint.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("remote error (%d): %s", e.StatusCode, e.Message)
}

// Map converts repo/infra errors into gRPC-friendly status errors.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, "record not found")

	case IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())

	case errors.Is(err, ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())

	case errors.Is(err, ErrConflict):
		return status.Error(codes.Aborted, err.Error())

	case errors.Is(err, ErrServiceUnavailable):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// HTTPStatus picks the response code the action API uses for err.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}
