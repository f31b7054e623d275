package cleansky

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Stats is a snapshot of the engine's running counters.
type Stats struct {
	TotalTasksProcessed   int64                    `json:"total_tasks_processed"`
	SuccessfulTasks       int64                    `json:"successful_tasks"`
	FailedTasks           int64                    `json:"failed_tasks"`
	TotalRecordsProcessed int64                    `json:"total_records_processed"`
	LastIngestionTime     map[DataSource]time.Time `json:"last_ingestion_time"`
}

// statsAggregator maintains the engine's counters and a bounded history of completed
// results. Counter updates are atomic; the history and per-source timestamps sit
// behind a read-write mutex since executor completions land concurrently.
type statsAggregator struct {
	totalTasks      atomic.Int64
	successfulTasks atomic.Int64
	failedTasks     atomic.Int64
	totalRecords    atomic.Int64

	mu            sync.RWMutex
	lastIngestion map[DataSource]time.Time
	results       []TaskResult
	historyLimit  int
}

func newStatsAggregator(historyLimit int) *statsAggregator {
	return &statsAggregator{
		lastIngestion: make(map[DataSource]time.Time),
		historyLimit:  historyLimit,
	}
}

// recordResult folds a terminal result into the counters and the history. Anything
// other than a clean completion, Partial included, counts as a failed task.
func (a *statsAggregator) recordResult(result TaskResult) {
	a.totalTasks.Add(1)
	if result.Status == StatusCompleted {
		a.successfulTasks.Add(1)
	} else {
		a.failedTasks.Add(1)
	}
	a.totalRecords.Add(int64(result.RecordsProcessed))

	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
	if len(a.results) > a.historyLimit {
		a.results = a.results[len(a.results)-a.historyLimit:]
	}
}

// markIngestion records that an ingestion pass for the source was kicked off.
func (a *statsAggregator) markIngestion(source DataSource, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastIngestion[source] = at
}

// lastIngestionTime returns the last recorded ingestion instant for the source.
func (a *statsAggregator) lastIngestionTime(source DataSource) (time.Time, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	at, ok := a.lastIngestion[source]
	return at, ok
}

// recent returns up to limit results, most recently completed first.
func (a *statsAggregator) recent(limit int) []TaskResult {
	a.mu.RLock()
	results := make([]TaskResult, len(a.results))
	copy(results, a.results)
	a.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// snapshot returns a point-in-time copy of the counters.
func (a *statsAggregator) snapshot() Stats {
	a.mu.RLock()
	lastIngestion := make(map[DataSource]time.Time, len(a.lastIngestion))
	for source, at := range a.lastIngestion {
		lastIngestion[source] = at
	}
	a.mu.RUnlock()

	return Stats{
		TotalTasksProcessed:   a.totalTasks.Load(),
		SuccessfulTasks:       a.successfulTasks.Load(),
		FailedTasks:           a.failedTasks.Load(),
		TotalRecordsProcessed: a.totalRecords.Load(),
		LastIngestionTime:     lastIngestion,
	}
}
