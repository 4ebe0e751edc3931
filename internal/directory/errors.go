package directory

import (
	"context"
	"errors"
	"fmt"
)

// Error classes reported to clients.
const (
	ClassHTTP    = "http"
	ClassNetwork = "network"
	ClassUnknown = "unknown"
)

// StatusError is an upstream response with an unexpected status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Unexpected status: %d", e.StatusCode)
}

// TransportError means no response was received: timeout, DNS failure,
// refused connection, TLS failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ResponseError means the backend responded but the response could not be
// read.
type ResponseError struct {
	StatusCode int
	Err        error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("read response (status %d): %v", e.StatusCode, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// Classify maps an error from this package to ClassHTTP, ClassNetwork or
// ClassUnknown. An expired deadline is ClassNetwork wherever it surfaced.
func Classify(err error) string {
	var (
		transportErr *TransportError
		responseErr  *ResponseError
		statusErr    *StatusError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &transportErr):
		return ClassNetwork
	case errors.As(err, &responseErr), errors.As(err, &statusErr):
		return ClassHTTP
	default:
		return ClassUnknown
	}
}
