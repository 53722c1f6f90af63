package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLimit signals a non-positive result limit at construction.
	ErrInvalidLimit = errors.New("limit must be at least 1")
	// ErrSearchRejected signals that the service did not assign a search id
	// (invalid query syntax or unknown repositories).
	ErrSearchRejected = errors.New("search rejected")
	// ErrTransport signals a non-2xx HTTP status from the service.
	ErrTransport = errors.New("transport failure")
	// ErrUnavailable signals a network-level failure (dial, reset, timeout).
	// Unlike ErrTransport it is retryable.
	ErrUnavailable = errors.New("service unavailable")
	// ErrPollTimeout signals that the poll loop gave up before the service
	// marked the search final. Accumulated rows are discarded.
	ErrPollTimeout = errors.New("poll timeout")
)

// StatusError wraps ErrTransport with the offending HTTP status and endpoint.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d", ErrTransport.Error(), e.Endpoint, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrTransport }

// NewStatusError creates a transport error for a non-2xx response.
func NewStatusError(endpoint string, code int) error {
	return &StatusError{Endpoint: endpoint, Code: code}
}
