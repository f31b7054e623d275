package cleansky

import (
	"fmt"
	"time"
)

// Task priorities. Lower is dispatched first.
const (
	PriorityUrgent  = 1 // Manual triggers default here
	PriorityRoutine = 2 // Scheduler-created tasks
	PriorityLow     = 5
)

// Task describes one ingestion attempt: which source to pull from, with what
// parameters, and how the attempt relates to the rest of its retry lineage.
//
// A Task is a value. The engine never mutates a Task after enqueue; a retry is a new
// Task derived via withRetry, so a queued copy and a dispatched copy cannot alias.
type Task struct {
	// Source is the data source this task ingests from.
	Source DataSource
	// Parameters are source-specific query parameters.
	Parameters map[string]any
	// Priority orders dispatch, 1 (highest) through 5 (lowest).
	Priority int
	// ScheduledTime, when non-zero, defers dispatch until the instant has passed.
	// Retries use this to implement backoff.
	ScheduledTime time.Time
	// Timeout bounds a single execution. Zero means the engine default applies.
	Timeout time.Duration
	// RetryCount is the number of retries already spent on this lineage.
	RetryCount int
	// MaxRetries is the retry budget for the lineage.
	MaxRetries int
}

// validate checks the parts of a Task the engine refuses to enqueue without.
func (t Task) validate() error {
	if !t.Source.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown data source: %q", t.Source)}
	}
	if t.Priority < PriorityUrgent || t.Priority > PriorityLow {
		return &ValidationError{Reason: fmt.Sprintf("priority %d out of range [1,5]", t.Priority)}
	}
	if t.RetryCount > t.MaxRetries {
		return &ValidationError{Reason: fmt.Sprintf("retry count %d exceeds budget %d", t.RetryCount, t.MaxRetries)}
	}
	return nil
}

// eligibleAt reports whether the task may be dispatched at the given instant.
func (t Task) eligibleAt(now time.Time) bool {
	return t.ScheduledTime.IsZero() || !t.ScheduledTime.After(now)
}

// withRetry derives the next Task in the lineage: same source, parameters and
// priority, one more retry spent, eligible again after the backoff delay.
func (t Task) withRetry(delay time.Duration, now time.Time) Task {
	next := t
	next.RetryCount++
	next.ScheduledTime = now.Add(delay)
	return next
}

// taskID formats the public identifier for a task enqueued at the given instant.
// The sequence number disambiguates tasks enqueued within the same clock second.
func taskID(source DataSource, now time.Time, seq uint64) string {
	return fmt.Sprintf("%s_%s_%d", source, now.UTC().Format("20060102_150405"), seq)
}
