package cleansky

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.MaxConcurrentTasks)
	assert.Equal(t, 300*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 60*time.Second, cfg.RetryDelay)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.Intervals[SourceGroundStations])
	assert.Equal(t, time.Hour, cfg.Intervals[SourceSatellite])
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"negative concurrency", func(c *Config) { c.MaxConcurrentTasks = -1 }},
		{"negative timeout", func(c *Config) { c.DefaultTimeout = -time.Second }},
		{"negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }},
		{"negative max retries", func(c *Config) { c.MaxRetries = -1 }},
		{"unknown interval source", func(c *Config) {
			c.Intervals = map[DataSource]time.Duration{"balloons": time.Minute}
		}},
		{"non-positive interval", func(c *Config) {
			c.Intervals = map[DataSource]time.Duration{SourceWeather: 0}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mut(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	filled := Config{}.withDefaults()
	assert.Equal(t, 5, filled.MaxConcurrentTasks)
	assert.Equal(t, 250*time.Millisecond, filled.PollInterval)
	assert.Equal(t, time.Minute, filled.SchedulerWake)
	assert.Equal(t, 1000, filled.ResultHistory)

	// Nil intervals stay nil: that disables routine scheduling on purpose.
	assert.Nil(t, filled.Intervals)

	// Explicit values are preserved.
	custom := Config{MaxConcurrentTasks: 9, RetryDelay: time.Second}.withDefaults()
	assert.Equal(t, 9, custom.MaxConcurrentTasks)
	assert.Equal(t, time.Second, custom.RetryDelay)
}
