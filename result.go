package cleansky

import (
	"time"
)

// TaskStatus is the lifecycle state of a task execution.
type TaskStatus string

const (
	// StatusPending marks a task that is enqueued but not yet dispatched.
	StatusPending TaskStatus = "pending"
	// StatusRunning marks a task currently held by an executor.
	StatusRunning TaskStatus = "running"
	// StatusCompleted marks a terminal success with no record failures.
	StatusCompleted TaskStatus = "completed"
	// StatusFailed marks a terminal failure of the whole task.
	StatusFailed TaskStatus = "failed"
	// StatusPartial marks a terminal success where some records failed to store.
	StatusPartial TaskStatus = "partial"
)

func (s TaskStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition can leave the status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial:
		return true
	}
	return false
}

// TaskResult is the recorded outcome of one execution attempt of a Task.
type TaskResult struct {
	TaskID string
	Task   Task
	Status TaskStatus

	// Record counters. Processed is always Successful + Failed.
	RecordsProcessed  int
	RecordsSuccessful int
	RecordsFailed     int

	ExecutionTime time.Duration
	StartedAt     time.Time
	CompletedAt   time.Time

	// ErrorMessage carries the task-level failure, empty on success.
	ErrorMessage string
	// DataSummary holds source-specific diagnostics about the processed batch.
	DataSummary map[string]any
}

// finalize stamps the completion time, derives the execution time, and settles the
// terminal status from the record counters unless a failure status is already set.
func (r *TaskResult) finalize(now time.Time) {
	r.CompletedAt = now
	if !r.StartedAt.IsZero() {
		r.ExecutionTime = now.Sub(r.StartedAt)
	}
	if r.Status == StatusFailed {
		return
	}
	if r.RecordsFailed > 0 {
		r.Status = StatusPartial
	} else {
		r.Status = StatusCompleted
	}
}

// ResultSummary is the caller-facing projection of a TaskResult, shaped for JSON.
type ResultSummary struct {
	TaskID            string  `json:"task_id"`
	Source            string  `json:"source"`
	Status            string  `json:"status"`
	RecordsProcessed  int     `json:"records_processed"`
	RecordsSuccessful int     `json:"records_successful"`
	RecordsFailed     int     `json:"records_failed"`
	ExecutionSeconds  float64 `json:"execution_time"`
	ErrorMessage      string  `json:"error_message,omitempty"`
	StartedAt         string  `json:"started_at,omitempty"`
	CompletedAt       string  `json:"completed_at,omitempty"`
}

// Summary projects the TaskResult into its caller-facing form.
func (r TaskResult) Summary() ResultSummary {
	s := ResultSummary{
		TaskID:            r.TaskID,
		Source:            r.Task.Source.String(),
		Status:            r.Status.String(),
		RecordsProcessed:  r.RecordsProcessed,
		RecordsSuccessful: r.RecordsSuccessful,
		RecordsFailed:     r.RecordsFailed,
		ExecutionSeconds:  r.ExecutionTime.Seconds(),
		ErrorMessage:      r.ErrorMessage,
	}
	if !r.StartedAt.IsZero() {
		s.StartedAt = r.StartedAt.UTC().Format(time.RFC3339)
	}
	if !r.CompletedAt.IsZero() {
		s.CompletedAt = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	return s
}
