package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled while
	// a fetch is waiting on a permit, a response, or a backoff sleep.
	ErrContextCancelled = errors.New("context cancelled")
)

// TransportError reports a failure below the HTTP layer: connection
// refused, timeout, or an unreadable response. It never carries a
// status code.
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error fetching %s: %s", e.URL, e.Status)
}

// DecodeError reports a fetched body that could not be decoded as JSON.
type DecodeError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error for %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if a failed attempt is eligible for another
// attempt based on its classification.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassClient:
		// 4xx errors are terminal: the request itself is wrong.
		return false
	case ErrorClassServer:
		// 5xx server errors are transient.
		return true
	case ErrorClassNetwork:
		// Connection and timeout errors are transient.
		return true
	default:
		return false
	}
}
