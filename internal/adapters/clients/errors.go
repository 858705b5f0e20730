// Package clients holds the resilient HTTP client used to reach the remote
// quote collection.
package clients

import (
	"errors"
	"strconv"
)

// Transport-level failures. The acl package maps them onto domain errors.
var (
	// ErrCircuitOpen means the call was refused locally because the remote
	// has been failing.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last attempt's error once the retry
	// budget is spent.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// StatusError is a 5xx that survived every attempt. Its body is discarded.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "server error: " + strconv.Itoa(e.StatusCode)
}
