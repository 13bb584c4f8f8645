package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	// ErrUnknownProvider indicates the requested provider is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnavailable indicates the model server is unreachable or failing.
	ErrUnavailable = errors.New("model server unavailable")

	// ErrContextTooLong indicates the input exceeds the context window.
	ErrContextTooLong = errors.New("context exceeds maximum length")

	// ErrRateLimited indicates the server is shedding load (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidRequest indicates the request is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrModelNotFound indicates the server does not have the model pulled.
	ErrModelNotFound = errors.New("model not found")

	// ErrTimeout indicates a single attempt ran past its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrCapabilityNotSupported indicates the backend can't do what was asked
	// (streaming from a test double, images on a text model).
	ErrCapabilityNotSupported = errors.New("capability not supported by provider")
)

// Error is a failed backend operation.
type Error struct {
	Provider  string // "local"
	Op        string // "complete", "stream"
	Status    int    // HTTP status, 0 when the request never got a response
	Err       error
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := e.Op
	if e.Provider != "" {
		prefix = e.Provider + " " + e.Op
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new provider error.
func NewError(provider, op string, err error, retryable bool) *Error {
	return &Error{
		Provider:  provider,
		Op:        op,
		Err:       err,
		Retryable: retryable,
	}
}

// WithStatus records the HTTP status that produced e.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// IsRetryable reports whether err is transient. A *Error decides for
// itself; bare sentinels fall back to their kind.
func IsRetryable(err error) bool {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Status
	}
	return 0
}

// IsCapabilityError checks if an error is due to missing backend capability.
func IsCapabilityError(err error) bool {
	return errors.Is(err, ErrCapabilityNotSupported)
}
