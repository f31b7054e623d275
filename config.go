package cleansky

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied by Config.withDefaults for zero-valued fields.
const (
	defaultMaxConcurrentTasks = 5
	defaultTaskTimeout        = 300 * time.Second
	defaultBatchSize          = 1000
	defaultRetryDelay         = 60 * time.Second
	defaultMaxRetries         = 3
	defaultSchedulerWake      = time.Minute
	defaultPollInterval       = 250 * time.Millisecond
	defaultResultHistory      = 1000
)

// Config holds the engine's tunables. The zero value is usable: withDefaults fills
// every unset field before the engine starts.
type Config struct {
	// MaxConcurrentTasks bounds how many executors run simultaneously.
	MaxConcurrentTasks int

	// DefaultTimeout applies to tasks that carry no timeout of their own.
	DefaultTimeout time.Duration

	// BatchSize is advisory and handed to fetchers via task parameters; the engine
	// itself does not split batches.
	BatchSize int

	// RetryDelay is the base unit of the linear retry backoff.
	RetryDelay time.Duration

	// MaxRetries is the default retry budget for tasks that carry none.
	MaxRetries int

	// Intervals maps each source to its routine ingestion cadence. Sources absent
	// from the map are not scheduled routinely.
	Intervals map[DataSource]time.Duration

	// SchedulerWake is the cadence of the scheduler's own wake loop, independent of
	// the per-source intervals.
	SchedulerWake time.Duration

	// PollInterval bounds how often the dispatcher re-checks eligibility while the
	// queue holds only deferred tasks.
	PollInterval time.Duration

	// ResultHistory caps the number of completed results retained for queries.
	ResultHistory int
}

// DefaultConfig returns a Config with every field set to its default, including
// routine intervals for all known sources.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentTasks: defaultMaxConcurrentTasks,
		DefaultTimeout:     defaultTaskTimeout,
		BatchSize:          defaultBatchSize,
		RetryDelay:         defaultRetryDelay,
		MaxRetries:         defaultMaxRetries,
		Intervals:          DefaultIntervals(),
		SchedulerWake:      defaultSchedulerWake,
		PollInterval:       defaultPollInterval,
		ResultHistory:      defaultResultHistory,
	}
}

// Validate checks that the Config is internally consistent.
func (c Config) Validate() error {
	if c.MaxConcurrentTasks < 0 {
		return errors.New("Config.MaxConcurrentTasks cannot be negative")
	}
	if c.DefaultTimeout < 0 {
		return errors.New("Config.DefaultTimeout cannot be negative")
	}
	if c.RetryDelay < 0 {
		return errors.New("Config.RetryDelay cannot be negative")
	}
	if c.MaxRetries < 0 {
		return errors.New("Config.MaxRetries cannot be negative")
	}
	for source, interval := range c.Intervals {
		if !source.Valid() {
			return fmt.Errorf("Config.Intervals contains unknown source %q", source)
		}
		if interval <= 0 {
			return fmt.Errorf("Config.Intervals[%s] must be positive, got %v", source, interval)
		}
	}
	return nil
}

// withDefaults returns a copy of the Config with zero fields replaced by defaults.
// A nil Intervals map stays nil so a caller can disable routine scheduling entirely.
func (c Config) withDefaults() Config {
	out := c
	if out.MaxConcurrentTasks == 0 {
		out.MaxConcurrentTasks = defaultMaxConcurrentTasks
	}
	if out.DefaultTimeout == 0 {
		out.DefaultTimeout = defaultTaskTimeout
	}
	if out.BatchSize == 0 {
		out.BatchSize = defaultBatchSize
	}
	if out.RetryDelay == 0 {
		out.RetryDelay = defaultRetryDelay
	}
	if out.MaxRetries == 0 {
		out.MaxRetries = defaultMaxRetries
	}
	if out.SchedulerWake == 0 {
		out.SchedulerWake = defaultSchedulerWake
	}
	if out.PollInterval == 0 {
		out.PollInterval = defaultPollInterval
	}
	if out.ResultHistory == 0 {
		out.ResultHistory = defaultResultHistory
	}
	return out
}

// configSnapshot is the JSON shape of the configuration inside a status snapshot.
type configSnapshot struct {
	MaxConcurrentTasks int     `json:"max_concurrent_tasks"`
	DefaultTimeout     float64 `json:"default_timeout"`
	BatchSize          int     `json:"batch_size"`
	RetryDelay         float64 `json:"retry_delay"`
	MaxRetries         int     `json:"max_retries"`
}

func (c Config) snapshot() configSnapshot {
	return configSnapshot{
		MaxConcurrentTasks: c.MaxConcurrentTasks,
		DefaultTimeout:     c.DefaultTimeout.Seconds(),
		BatchSize:          c.BatchSize,
		RetryDelay:         c.RetryDelay.Seconds(),
		MaxRetries:         c.MaxRetries,
	}
}
