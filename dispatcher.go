package cleansky

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// errDispatcherStopped signals the dispatch loop to exit cleanly.
var errDispatcherStopped = errors.New("dispatcher stopped")

// dispatcher is the single loop that pulls eligible tasks off the priority queue and
// hands them to executors, never exceeding the configured concurrency bound.
type dispatcher struct {
	queue *taskQueue
	exec  *executor
	retry RetryPolicy

	defaultTimeout time.Duration
	pollInterval   time.Duration

	// reenqueue pushes a derived retry task back through the engine's enqueue path.
	reenqueue func(Task) (string, error)
	// finalize hands every finished TaskResult back to the engine for stats, audit
	// and observer fan-out.
	finalize func(TaskResult)
	now      func() time.Time

	sem     *semaphore.Weighted
	running atomic.Int32

	ctx      context.Context
	cancel   context.CancelFunc
	wakeChan chan struct{}

	loopWG sync.WaitGroup // The dispatch loop itself
	taskWG sync.WaitGroup // In-flight executors
}

func newDispatcher(
	queue *taskQueue,
	exec *executor,
	retry RetryPolicy,
	cfg Config,
	reenqueue func(Task) (string, error),
	finalize func(TaskResult),
) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &dispatcher{
		queue:          queue,
		exec:           exec,
		retry:          retry,
		defaultTimeout: cfg.DefaultTimeout,
		pollInterval:   cfg.PollInterval,
		reenqueue:      reenqueue,
		finalize:       finalize,
		now:            time.Now,
		sem:            semaphore.NewWeighted(int64(cfg.MaxConcurrentTasks)),
		ctx:            ctx,
		cancel:         cancel,
		wakeChan:       make(chan struct{}, 1),
	}
}

// start launches the dispatch loop.
func (d *dispatcher) start() {
	d.loopWG.Add(1)
	go d.run()
}

// stop exits the dispatch loop and waits for in-flight executors to drain. Queued
// tasks that were never dispatched stay in the queue.
func (d *dispatcher) stop() {
	d.cancel()
	d.loopWG.Wait()
	d.taskWG.Wait()
}

// wake nudges the loop after an enqueue so a fresh task is picked up without
// waiting out the poll interval.
func (d *dispatcher) wake() {
	select {
	case d.wakeChan <- struct{}{}:
	default:
		// A wake-up is already pending
	}
}

// runningCount returns the number of executors currently in flight.
func (d *dispatcher) runningCount() int {
	return int(d.running.Load())
}

// run is the dispatch loop. An unexpected error inside one iteration is logged and
// followed by a short pause; the loop itself must survive anything short of stop.
func (d *dispatcher) run() {
	defer d.loopWG.Done()
	for {
		err := d.dispatchOnce()
		if err == nil {
			continue
		}
		if errors.Is(err, errDispatcherStopped) {
			return
		}
		log.Error().Err(err).Msg("Dispatch loop error, pausing before retry")
		select {
		case <-time.After(time.Second):
		case <-d.ctx.Done():
			return
		}
	}
}

// dispatchOnce acquires execution capacity, waits for an eligible task, and hands it
// to an executor goroutine. Panics are converted into a returned error so the loop's
// caller can keep going.
func (d *dispatcher) dispatchOnce() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()

	// Hold a capacity permit before touching the queue, so a popped task can start
	// immediately and the bound is never overshot.
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		return errDispatcherStopped
	}

	entry, err := d.nextEligible()
	if err != nil {
		d.sem.Release(1)
		return err
	}

	d.taskWG.Add(1)
	go d.runTask(entry)
	return nil
}

// nextEligible blocks until an eligible entry is available. It wakes on enqueue
// signals, at the next deferred task's due time, or at the poll interval, whichever
// comes first.
func (d *dispatcher) nextEligible() (*queueEntry, error) {
	for {
		entry, nextDue := d.queue.popEligible(d.now())
		if entry != nil {
			return entry, nil
		}

		wait := d.pollInterval
		if !nextDue.IsZero() {
			if until := nextDue.Sub(d.now()); until > 0 && until < wait {
				wait = until
			}
		}
		timer := time.NewTimer(wait)
		select {
		case <-d.wakeChan:
			timer.Stop()
		case <-timer.C:
		case <-d.ctx.Done():
			timer.Stop()
			return nil, errDispatcherStopped
		}
	}
}

// runTask executes one task under its timeout, settles the result, and feeds a
// failure back through the retry policy.
func (d *dispatcher) runTask(entry *queueEntry) {
	defer d.taskWG.Done()
	defer d.sem.Release(1)
	d.running.Inc()
	defer d.running.Dec()

	task := entry.task
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	// Deliberately not derived from d.ctx: stop drains in-flight work instead of
	// cancelling it.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := d.now()
	log.Debug().Str("task_id", entry.id).Str("source", task.Source.String()).
		Int("retry_count", task.RetryCount).Msg("Starting ingestion task")

	execResult := &TaskResult{
		TaskID:    entry.id,
		Task:      task,
		Status:    StatusRunning,
		StartedAt: started,
	}

	errChan := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errChan <- fmt.Errorf("executor panic: %v", r)
			}
		}()
		errChan <- d.exec.execute(ctx, task, execResult)
	}()

	var result TaskResult
	var execErr error
	select {
	case execErr = <-errChan:
		result = *execResult
	case <-ctx.Done():
		// The executor is abandoned past its deadline; it still holds execResult, so
		// build the timeout result from scratch.
		execErr = fmt.Errorf("task timed out after %v", timeout)
		result = TaskResult{
			TaskID:    entry.id,
			Task:      task,
			Status:    StatusRunning,
			StartedAt: started,
		}
	}

	now := d.now()
	if execErr != nil {
		result.Status = StatusFailed
		result.ErrorMessage = execErr.Error()
		result.finalize(now)
		log.Error().Err(execErr).Str("task_id", entry.id).Msg("Ingestion task failed")

		if next, ok := d.retry.Next(task, execErr, now); ok {
			if retryID, err := d.reenqueue(next); err != nil {
				log.Error().Err(err).Str("task_id", entry.id).Msg("Failed to enqueue retry")
			} else {
				log.Info().Str("task_id", entry.id).Str("retry_id", retryID).
					Int("retry_count", next.RetryCount).
					Time("eligible_at", next.ScheduledTime).
					Msg("Scheduled task retry")
			}
		} else {
			log.Warn().Str("task_id", entry.id).Int("retry_count", task.RetryCount).
				Msg("Task failure is terminal")
		}
	} else {
		result.finalize(now)
		log.Info().Str("task_id", entry.id).Str("status", result.Status.String()).
			Int("records_successful", result.RecordsSuccessful).
			Int("records_processed", result.RecordsProcessed).
			Msg("Completed ingestion task")
	}

	d.finalize(result)
}
