package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is returned when a key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// StoreErrorMessage describes SQL session store failures.
	StoreErrorMessage = "session store operation failed"
	// InvalidRequestMessage is returned for malformed caller input.
	InvalidRequestMessage = "invalid request"
)

var (
	// ErrSessionNotFound is returned by session stores when a thread has no saved state.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRequest marks caller input that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Invalid builds a 400 error for a caller mistake described by detail.
func Invalid(detail string) *AppError {
	return New(fmt.Errorf("%w: %s", ErrInvalidRequest, detail), http.StatusBadRequest, InvalidRequestMessage)
}

// Status returns the HTTP status carried by err, or 500 when it has none.
func Status(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	if errors.Is(err, ErrSessionNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// SafeMessage returns text that may be shown to callers for err.
func SafeMessage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return SystemErrorMessage
}
