package catalog

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the requested record does not exist (or is not
// publicly visible, which callers cannot distinguish).
var ErrNotFound = errors.New("catalog: not found")

// QueryError indicates caller-supplied parameters outside accepted ranges.
// It is rejected synchronously, before any fetch is attempted.
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query: %s %s", e.Field, e.Reason)
}

// StatusError indicates a non-success response from the catalog store.
type StatusError struct {
	StatusCode int
	Message    string

	// RetryAfter is the server-requested delay on 429 responses, zero when
	// the header was absent or unparsable.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog: HTTP %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed on retry.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
