// Package cleansky implements the ingestion orchestration engine for environmental
// data: a priority queue of ingestion tasks, a concurrency-bounded dispatcher, a
// linear-backoff retry policy, a routine scheduler, and running statistics. Fetching
// and durable storage are collaborator interfaces supplied by the caller.
package cleansky

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// Engine owns all orchestration state: the task queue, the dispatcher, the routine
// scheduler, and the stats aggregator. Construct with New, start with Start, and
// drain with Close.
type Engine struct {
	id  xid.ID
	cfg Config

	queue      *taskQueue
	stats      *statsAggregator
	dispatcher *dispatcher
	scheduler  *scheduler

	audit AuditSink

	obsMu     sync.RWMutex
	observers []ResultObserver

	seq     atomic.Uint64
	started atomic.Bool
	closed  atomic.Bool
	now     func() time.Time
}

// Option customizes an Engine at construction time.
type Option func(*Engine, *executor)

// WithRecordStore replaces the default in-memory record store.
func WithRecordStore(store RecordStore) Option {
	return func(_ *Engine, exec *executor) {
		exec.store = store
	}
}

// WithAuditSink wires the collaborator receiving every finalized result.
func WithAuditSink(sink AuditSink) Option {
	return func(e *Engine, _ *executor) {
		e.audit = sink
	}
}

// WithObserver registers a result observer at construction time.
func WithObserver(observer ResultObserver) Option {
	return func(e *Engine, _ *executor) {
		e.observers = append(e.observers, observer)
	}
}

// WithClock replaces the engine's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine, _ *executor) {
		e.now = now
	}
}

// New creates an Engine that ingests via the given per-source fetchers. The engine
// does not run until Start is called.
func New(cfg Config, fetchers map[DataSource]SourceFetcher, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	exec := &executor{
		fetchers: fetchers,
		store:    NewMemoryStore(),
	}
	e := &Engine{
		id:    xid.New(),
		cfg:   cfg,
		queue: newTaskQueue(),
		stats: newStatsAggregator(cfg.ResultHistory),
		audit: NopAuditSink{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e, exec)
	}

	retry := RetryPolicy{Delay: cfg.RetryDelay}
	e.dispatcher = newDispatcher(e.queue, exec, retry, cfg, e.Enqueue, e.finalizeResult)
	e.dispatcher.now = e.now
	e.scheduler = newScheduler(cfg.Intervals, cfg.SchedulerWake, e.Enqueue, e.stats)
	e.scheduler.now = e.now

	return e, nil
}

// ID returns the unique identifier of this engine instance.
func (e *Engine) ID() xid.ID {
	return e.id
}

// Start launches the dispatcher and, when routine intervals are configured, the
// scheduler. Start is idempotent.
func (e *Engine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	log.Info().Str("engine_id", e.id.String()).
		Int("max_concurrent_tasks", e.cfg.MaxConcurrentTasks).
		Msg("Starting ingestion engine")

	e.dispatcher.start()
	if len(e.cfg.Intervals) > 0 {
		e.scheduler.start()
	}
}

// Close stops the scheduler and the dispatch loop, waits for in-flight executors to
// drain, and closes the audit sink when it is closeable. Tasks still queued are
// dropped with the process; the queue is ephemeral by design.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	log.Info().Str("engine_id", e.id.String()).Msg("Closing ingestion engine")

	var result *multierror.Error
	if e.started.Load() {
		if len(e.cfg.Intervals) > 0 {
			e.scheduler.stop()
		}
		e.dispatcher.stop()
	}
	if closer, ok := e.audit.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Enqueue validates the task, assigns its id, and adds it to the priority queue.
// Zero-valued priority, timeout and retry budget pick up the engine defaults.
func (e *Engine) Enqueue(task Task) (string, error) {
	if e.closed.Load() {
		return "", ErrEngineClosed
	}

	if task.Priority == 0 {
		task.Priority = PriorityRoutine
	}
	if task.Timeout == 0 {
		task.Timeout = e.cfg.DefaultTimeout
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = e.cfg.MaxRetries
	}
	if task.Parameters == nil {
		task.Parameters = map[string]any{}
	}
	if err := task.validate(); err != nil {
		return "", err
	}

	id := taskID(task.Source, e.now(), e.seq.Inc())
	e.queue.push(task, id)
	e.dispatcher.wake()

	log.Debug().Str("task_id", id).Int("priority", task.Priority).
		Msg("Queued ingestion task")
	return id, nil
}

// TriggerManual enqueues an ad-hoc ingestion task for the source, bypassing the
// routine interval checks. A non-positive priority defaults to urgent. The returned
// task id is the caller's handle for polling Status and RecentResults; execution
// outcome is not reported synchronously.
func (e *Engine) TriggerManual(source DataSource, params map[string]any, priority int) (string, error) {
	if priority <= 0 {
		priority = PriorityUrgent
	}
	id, err := e.Enqueue(Task{
		Source:     source,
		Parameters: params,
		Priority:   priority,
	})
	if err != nil {
		return "", err
	}
	log.Info().Str("task_id", id).Str("source", source.String()).
		Msg("Manual ingestion triggered")
	return id, nil
}

// AddObserver registers an observer for all subsequently finalized results.
func (e *Engine) AddObserver(observer ResultObserver) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, observer)
}

// StatusSnapshot is the engine's point-in-time public status.
type StatusSnapshot struct {
	RunningTasks  int            `json:"running_tasks"`
	QueuedTasks   int            `json:"queued_tasks"`
	Statistics    Stats          `json:"statistics"`
	Configuration configSnapshot `json:"configuration"`
}

// Status reports running and queued task counts, the stats counters, and the
// effective configuration. Available at all times, including while executors fail.
func (e *Engine) Status() StatusSnapshot {
	return StatusSnapshot{
		RunningTasks:  e.dispatcher.runningCount(),
		QueuedTasks:   e.queue.len(),
		Statistics:    e.stats.snapshot(),
		Configuration: e.cfg.snapshot(),
	}
}

// RecentResults returns up to limit result summaries, most recently completed first.
func (e *Engine) RecentResults(limit int) []ResultSummary {
	results := e.stats.recent(limit)
	summaries := make([]ResultSummary, 0, len(results))
	for _, result := range results {
		summaries = append(summaries, result.Summary())
	}
	return summaries
}

// finalizeResult is the dispatcher's completion hook: fold the result into stats,
// audit it best-effort, then notify observers synchronously.
func (e *Engine) finalizeResult(result TaskResult) {
	e.stats.recordResult(result)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.audit.Record(ctx, result); err != nil {
		log.Error().Err(err).Str("task_id", result.TaskID).
			Msg("Failed to audit ingestion result")
	}

	e.obsMu.RLock()
	observers := make([]ResultObserver, len(e.observers))
	copy(observers, e.observers)
	e.obsMu.RUnlock()
	for _, observer := range observers {
		observer.OnResult(result)
	}
}
