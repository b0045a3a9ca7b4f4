// Package apperr defines the error kinds surfaced by glossa and their stable
// outward classification.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid request: %s: %v", e.Msg, e.Err)
	}
	return "invalid request: " + e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) ErrCode() string { return "VALIDATION_ERROR" }

func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// TimeoutError reports that a gated call did not finish before its deadline.
// The deadline covers every attempt of the call.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("translation timed out after %d seconds", int64(e.After.Seconds()))
}

func (e *TimeoutError) ErrCode() string { return "TIMEOUT" }

func (e *TimeoutError) StatusCode() int { return http.StatusGatewayTimeout }

// EmptyResponseError reports a provider call that succeeded with no text.
type EmptyResponseError struct{}

func (e *EmptyResponseError) Error() string { return "empty response from upstream API" }

func (e *EmptyResponseError) ErrCode() string { return "EMPTY_RESPONSE" }

func (e *EmptyResponseError) StatusCode() int { return http.StatusBadGateway }

// RetryExhaustedError is returned once every attempt of a call has failed.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("translation failed after %d attempts: %s", e.Attempts, msg)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

func (e *RetryExhaustedError) ErrCode() string { return "RETRY_EXHAUSTED" }

func (e *RetryExhaustedError) StatusCode() int { return http.StatusBadGateway }

// StorageError wraps any failure of the durable cache.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) ErrCode() string { return "STORAGE_ERROR" }

func (e *StorageError) StatusCode() int { return http.StatusInternalServerError }

// Storage wraps err as a StorageError for op. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

type classified interface {
	ErrCode() string
	StatusCode() int
}

// Classify returns the outward code and HTTP status for err. Errors outside
// the taxonomy map to INTERNAL_ERROR.
func Classify(err error) (string, int) {
	var c classified
	if errors.As(err, &c) {
		return c.ErrCode(), c.StatusCode()
	}
	return "INTERNAL_ERROR", http.StatusInternalServerError
}
