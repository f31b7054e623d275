// Command cleansky runs the ingestion engine against synthetic fetchers. It exists
// to exercise the engine end to end without credentials for the real data providers:
// routine scheduling, a manual trigger, and a JSONL audit trail on stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	cleansky "github.com/rootiq-ai/cleansky-ai"
)

// demoFetcher fabricates a batch of plausible records for one source.
type demoFetcher struct {
	source cleansky.DataSource
}

func (f demoFetcher) Fetch(_ context.Context, _ map[string]any) ([]cleansky.Record, error) {
	n := 20 + rand.Intn(80)
	records := make([]cleansky.Record, 0, n)
	for i := 0; i < n; i++ {
		switch f.source {
		case cleansky.SourceSatellite:
			records = append(records, cleansky.Record{
				"parameter": []string{"NO2", "O3", "HCHO", "SO2"}[i%4],
				"lat":       25.0 + rand.Float64()*24.0,
				"lon":       -125.0 + rand.Float64()*59.0,
				"value":     rand.Float64(),
			})
		case cleansky.SourceWeather:
			records = append(records, cleansky.Record{
				"type": []string{"current", "forecast"}[i%2],
				"lat":  39.8283,
				"lon":  -98.5795,
			})
		default:
			records = append(records, cleansky.Record{
				"station_id": fmt.Sprintf("ST-%03d", i%25),
				"aqi":        rand.Intn(300),
			})
		}
	}
	return records, nil
}

// loadConfig reads cleansky.yaml from the working directory, if present, on top of
// the engine defaults.
func loadConfig() (cleansky.Config, error) {
	cfg := cleansky.DefaultConfig()

	v := viper.New()
	v.SetConfigName("cleansky")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetDefault("max_concurrent_tasks", cfg.MaxConcurrentTasks)
	v.SetDefault("default_timeout", cfg.DefaultTimeout)
	v.SetDefault("batch_size", cfg.BatchSize)
	v.SetDefault("retry_delay", cfg.RetryDelay)
	v.SetDefault("max_retries", cfg.MaxRetries)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cleansky.Config{}, err
		}
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Loaded configuration file")
	}

	cfg.MaxConcurrentTasks = v.GetInt("max_concurrent_tasks")
	cfg.DefaultTimeout = v.GetDuration("default_timeout")
	cfg.BatchSize = v.GetInt("batch_size")
	cfg.RetryDelay = v.GetDuration("retry_delay")
	cfg.MaxRetries = v.GetInt("max_retries")
	if intervals := v.GetStringMapString("intervals"); len(intervals) > 0 {
		cfg.Intervals = make(map[cleansky.DataSource]time.Duration, len(intervals))
		for raw, value := range intervals {
			source, err := cleansky.ParseDataSource(raw)
			if err != nil {
				return cleansky.Config{}, err
			}
			interval, err := time.ParseDuration(value)
			if err != nil {
				return cleansky.Config{}, fmt.Errorf("interval for %s: %w", source, err)
			}
			cfg.Intervals[source] = interval
		}
	}
	return cfg, cfg.Validate()
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	fetchers := make(map[cleansky.DataSource]cleansky.SourceFetcher)
	for _, source := range cleansky.DataSources() {
		fetchers[source] = demoFetcher{source: source}
	}

	engine, err := cleansky.New(cfg, fetchers,
		cleansky.WithAuditSink(cleansky.NewJSONLAuditSink(os.Stdout)),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}
	engine.Start()

	// Kick off one urgent satellite pull immediately; routine tasks follow on their
	// configured intervals.
	taskID, err := engine.TriggerManual(cleansky.SourceSatellite, nil, cleansky.PriorityUrgent)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to trigger manual ingestion")
	}
	log.Info().Str("task_id", taskID).Msg("Triggered initial satellite ingestion")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	statusTicker := time.NewTicker(30 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-statusTicker.C:
			status, err := sonic.MarshalString(engine.Status())
			if err != nil {
				log.Error().Err(err).Msg("Failed to marshal status")
				continue
			}
			log.Info().RawJSON("status", []byte(status)).Msg("Engine status")
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
			if err := engine.Close(); err != nil {
				log.Error().Err(err).Msg("Engine close reported errors")
			}
			return
		}
	}
}
