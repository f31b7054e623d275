package cleansky

import (
	"time"
)

// RetryPolicy decides whether a failed Task gets another attempt, and when.
//
// Backoff is linear: the n-th retry waits n times the base delay. The growth is
// deliberate behavior, not an approximation of exponential backoff.
type RetryPolicy struct {
	// Delay is the base backoff unit between attempts.
	Delay time.Duration
}

// Next derives the follow-up Task for a failure at the given instant. The boolean is
// false when the failure is terminal: the retry budget is spent, or the error class
// is not worth retrying (validation failures, permanent fetch errors).
func (p RetryPolicy) Next(task Task, cause error, now time.Time) (Task, bool) {
	if cause != nil && !isRetryable(cause) {
		return Task{}, false
	}
	if task.RetryCount >= task.MaxRetries {
		return Task{}, false
	}
	next := task.withRetry(p.Delay*time.Duration(task.RetryCount+1), now)
	return next, true
}
