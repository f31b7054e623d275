package cleansky

import (
	"errors"
	"fmt"
)

// ErrEngineClosed is returned by engine operations after Close has been called.
var ErrEngineClosed = errors.New("engine is closed")

// FetchError wraps a failure of a SourceFetcher. Transient errors (network hiccups,
// upstream timeouts) are eligible for retry; permanent ones fail the task outright.
type FetchError struct {
	Source    DataSource
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s fetch error for source %s: %v", kind, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewTransientFetchError wraps err as a retryable fetch failure for the given source.
func NewTransientFetchError(source DataSource, err error) *FetchError {
	return &FetchError{Source: source, Transient: true, Err: err}
}

// NewPermanentFetchError wraps err as a non-retryable fetch failure for the given source.
func NewPermanentFetchError(source DataSource, err error) *FetchError {
	return &FetchError{Source: source, Transient: false, Err: err}
}

// ValidationError signals malformed task input: an unknown source, an out-of-range
// priority, or parameters the engine cannot work with. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// isRetryable reports whether a task failure with the given error may be re-enqueued.
// Validation errors and permanent fetch errors are terminal on first sight.
func isRetryable(err error) bool {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return false
	}
	var fErr *FetchError
	if errors.As(err, &fErr) {
		return fErr.Transient
	}
	return true
}
