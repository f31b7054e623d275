// A minimal example: one fetcher, a channel observer, and a manual trigger.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	cleansky "github.com/rootiq-ai/cleansky-ai"
)

type staticFetcher struct{}

func (staticFetcher) Fetch(_ context.Context, _ map[string]any) ([]cleansky.Record, error) {
	return []cleansky.Record{
		{"station_id": "ST-001", "aqi": 42},
		{"station_id": "ST-002", "aqi": 57},
	}, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	observer := cleansky.NewChannelObserver(8)
	cfg := cleansky.DefaultConfig()
	cfg.Intervals = nil // No routine scheduling in this example

	engine, err := cleansky.New(cfg,
		map[cleansky.DataSource]cleansky.SourceFetcher{
			cleansky.SourceGroundStations: staticFetcher{},
		},
		cleansky.WithObserver(observer),
	)
	if err != nil {
		panic(err)
	}
	engine.Start()
	defer engine.Close()

	taskID, err := engine.TriggerManual(cleansky.SourceGroundStations, nil, cleansky.PriorityUrgent)
	if err != nil {
		panic(err)
	}

	select {
	case result := <-observer.Results():
		fmt.Printf("task %s finished with status %s: %d/%d records stored\n",
			taskID, result.Status, result.RecordsSuccessful, result.RecordsProcessed)
	case <-time.After(5 * time.Second):
		fmt.Println("timed out waiting for result")
	}
}
