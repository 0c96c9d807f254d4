package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases
var (
	// ErrTransient indicates a temporary error that should be retried
	ErrTransient = errors.New("transient error")

	// ErrPermanent indicates a permanent error that should not be retried
	ErrPermanent = errors.New("permanent error")

	// ErrNotFound indicates an object was not found in the store
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates authentication failure
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates authorization failure
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("timeout")
)

// FetchError describes a failed object-store fetch. It always names the
// bucket and key so the failure can be surfaced verbatim by the dashboard.
type FetchError struct {
	Bucket string
	Key    string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("an error occurred when getting %s data from bucket %s: %v", e.Key, e.Bucket, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewFetchError wraps err as a fetch failure for the given bucket and key
func NewFetchError(bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Bucket: bucket, Key: key, Cause: err}
}

// IsFetchError checks if an error is a fetch failure
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// TransientError wraps an error to mark it as transient (retryable)
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transient error: %v", e.Cause)
	}
	return "transient error"
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// NewTransient creates a new transient error
func NewTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Cause: err}
}

// NewTransientf creates a new transient error with formatting
func NewTransientf(format string, args ...interface{}) error {
	return &TransientError{Cause: fmt.Errorf(format, args...)}
}

// PermanentError wraps an error to mark it as permanent (not retryable)
type PermanentError struct {
	Cause error
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("permanent error: %v", e.Cause)
	}
	return "permanent error"
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// NewPermanent creates a new permanent error
func NewPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Cause: err}
}

// NewPermanentf creates a new permanent error with formatting
func NewPermanentf(format string, args ...interface{}) error {
	return &PermanentError{Cause: fmt.Errorf(format, args...)}
}

// ClassifyHTTPStatus maps an object-store HTTP response status to a
// transient or permanent error. 4xx responses will not change on retry;
// everything else is worth another attempt.
func ClassifyHTTPStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return NewPermanent(ErrNotFound)
	case status == http.StatusUnauthorized:
		return NewPermanent(ErrUnauthorized)
	case status == http.StatusForbidden:
		return NewPermanent(ErrForbidden)
	case status >= 400 && status < 500:
		return NewPermanentf("unexpected status %d", status)
	default:
		return NewTransientf("unexpected status %d", status)
	}
}

// IsTransient checks if an error is transient using errors.As
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}

	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidInput) {
		return false
	}

	if errors.Is(err, ErrTimeout) {
		return true
	}

	// Default to non-transient for safety (don't retry unknown errors)
	return false
}

// IsPermanent checks if an error is permanent (not retryable)
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}
