package cleansky

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Record is a single data point fetched from a source, keyed by source-specific
// field names ("parameter", "station_id", "type", ...).
type Record map[string]any

// SourceFetcher pulls a batch of records from one external data source. Implementations
// should wrap transport failures in a FetchError so the retry policy can classify them;
// unwrapped errors are treated as transient.
type SourceFetcher interface {
	Fetch(ctx context.Context, params map[string]any) ([]Record, error)
}

// RecordStore persists a single fetched record. A store failure is counted against the
// task but never aborts the remaining records of the batch.
type RecordStore interface {
	Store(ctx context.Context, source DataSource, record Record) error
}

// AuditSink receives every finalized TaskResult, best-effort. Sink failures are logged
// and swallowed; they never influence the task outcome.
type AuditSink interface {
	Record(ctx context.Context, result TaskResult) error
}

// executor runs one task to completion: fetch the batch, store it record by record,
// and summarize what was touched.
type executor struct {
	fetchers map[DataSource]SourceFetcher
	store    RecordStore
}

// execute performs the fetch and store phases for the task, filling the record
// counters and data summary of result. A returned error means the task as a whole
// failed; per-record store failures are absorbed into the counters instead.
func (e *executor) execute(ctx context.Context, task Task, result *TaskResult) error {
	fetcher, ok := e.fetchers[task.Source]
	if !ok {
		return &ValidationError{Reason: fmt.Sprintf("no fetcher registered for source %q", task.Source)}
	}

	records, err := fetcher.Fetch(ctx, task.Parameters)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", task.Source, err)
	}
	result.RecordsProcessed = len(records)

	var storeErrs *multierror.Error
	for _, record := range records {
		if err := e.store.Store(ctx, task.Source, record); err != nil {
			result.RecordsFailed++
			storeErrs = multierror.Append(storeErrs, err)
			continue
		}
		result.RecordsSuccessful++
	}
	if err := storeErrs.ErrorOrNil(); err != nil {
		log.Warn().Err(err).
			Str("task_id", result.TaskID).
			Int("records_failed", result.RecordsFailed).
			Msgf("Some %s records failed to store", task.Source)
	}

	result.DataSummary = summarize(task, records)
	return nil
}

// summarize builds the source-specific diagnostics attached to a result.
func summarize(task Task, records []Record) map[string]any {
	switch task.Source {
	case SourceSatellite:
		return map[string]any{
			"parameters":        task.Parameters["parameters"],
			"date":              task.Parameters["date"],
			"location_type":     locationType(task.Parameters),
			"unique_parameters": distinctStrings(records, "parameter"),
		}
	case SourceGroundStations, SourceEPAAQS, SourceAirNow:
		return map[string]any{
			"locations_processed": locationCount(task.Parameters),
			"unique_stations":     len(distinctStrings(records, "station_id")),
		}
	case SourceWeather:
		return map[string]any{
			"locations_processed": locationCount(task.Parameters),
			"data_types":          distinctStrings(records, "type"),
		}
	default:
		return map[string]any{}
	}
}

func locationType(params map[string]any) string {
	location, ok := params["location"].(map[string]any)
	if !ok {
		return ""
	}
	t, _ := location["type"].(string)
	return t
}

func locationCount(params map[string]any) int {
	switch locations := params["locations"].(type) {
	case []map[string]any:
		return len(locations)
	case []any:
		return len(locations)
	default:
		return 0
	}
}

// distinctStrings collects the distinct non-empty string values of a record field,
// preserving first-seen order.
func distinctStrings(records []Record, field string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, record := range records {
		value, ok := record[field].(string)
		if !ok || value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	return values
}
