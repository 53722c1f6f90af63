package logdex

import "github.com/kailas-cloud/logdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	// ErrInvalidLimit: limit < 1; raised before any network call.
	ErrInvalidLimit = domain.ErrInvalidLimit
	// ErrSearchRejected: the service assigned no search id, usually an
	// invalid query or unknown repositories. Not retried.
	ErrSearchRejected = domain.ErrSearchRejected
	// ErrTransport: non-2xx HTTP status from the service.
	ErrTransport = domain.ErrTransport
	// ErrUnavailable: network-level failure after the retry budget.
	ErrUnavailable = domain.ErrUnavailable
	// ErrPollTimeout: no final page within the poll deadline, or the
	// caller cancelled mid-poll. Accumulated rows are discarded.
	ErrPollTimeout = domain.ErrPollTimeout
)
