package cleansky

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/xid"
)

// auditEntry is the JSON shape written for every finalized result. Statuses collapse
// to success/error: only a clean completion counts as success.
type auditEntry struct {
	ID               string         `json:"id"`
	DataSource       string         `json:"data_source"`
	OperationType    string         `json:"operation_type"`
	Status           string         `json:"status"`
	TaskID           string         `json:"task_id"`
	RecordsProcessed int            `json:"records_processed"`
	RecordsSuccess   int            `json:"records_success"`
	RecordsError     int            `json:"records_error"`
	ProcessingTime   float64        `json:"processing_time_seconds"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	ErrorDetails     map[string]any `json:"error_details,omitempty"`
	StartedAt        string         `json:"started_at,omitempty"`
	CompletedAt      string         `json:"completed_at,omitempty"`
}

func newAuditEntry(result TaskResult) auditEntry {
	status := "error"
	if result.Status == StatusCompleted {
		status = "success"
	}
	entry := auditEntry{
		ID:               xid.New().String(),
		DataSource:       result.Task.Source.String(),
		OperationType:    "ingestion",
		Status:           status,
		TaskID:           result.TaskID,
		RecordsProcessed: result.RecordsProcessed,
		RecordsSuccess:   result.RecordsSuccessful,
		RecordsError:     result.RecordsFailed,
		ProcessingTime:   result.ExecutionTime.Seconds(),
		ErrorMessage:     result.ErrorMessage,
		ErrorDetails:     result.DataSummary,
	}
	if !result.StartedAt.IsZero() {
		entry.StartedAt = result.StartedAt.UTC().Format(time.RFC3339)
	}
	if !result.CompletedAt.IsZero() {
		entry.CompletedAt = result.CompletedAt.UTC().Format(time.RFC3339)
	}
	return entry
}

// JSONLAuditSink writes one JSON line per finalized result to the wrapped writer.
// Writes are serialized; the sink is safe for concurrent executor completions.
type JSONLAuditSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONLAuditSink wraps w in an audit sink.
func NewJSONLAuditSink(w io.Writer) *JSONLAuditSink {
	return &JSONLAuditSink{w: w}
}

// Record writes the result as a single JSON line.
func (s *JSONLAuditSink) Record(_ context.Context, result TaskResult) error {
	data, err := sonic.Marshal(newAuditEntry(result))
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(data)
	return err
}

// NopAuditSink discards every result. Used when no audit collaborator is wired.
type NopAuditSink struct{}

// Record does nothing.
func (NopAuditSink) Record(context.Context, TaskResult) error {
	return nil
}
