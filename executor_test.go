package cleansky

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutePartialStoreFailures(t *testing.T) {
	records := make([]Record, 0, 100)
	for i := 0; i < 100; i++ {
		records = append(records, Record{"parameter": "NO2", "lat": 34.0, "lon": -118.0})
	}
	store := &mockStore{failFirst: 5, failErr: errors.New("disk full")}
	exec := &executor{
		fetchers: map[DataSource]SourceFetcher{
			SourceSatellite: &mockFetcher{records: records},
		},
		store: store,
	}

	task := Task{
		Source:     SourceSatellite,
		Parameters: map[string]any{"date": "2024-01-01", "parameters": []string{"NO2"}},
		Priority:   PriorityUrgent,
		MaxRetries: 3,
	}
	result := TaskResult{TaskID: "t1", Task: task, Status: StatusRunning, StartedAt: time.Now()}

	err := exec.execute(context.Background(), task, &result)
	require.NoError(t, err)

	assert.Equal(t, 100, result.RecordsProcessed)
	assert.Equal(t, 95, result.RecordsSuccessful)
	assert.Equal(t, 5, result.RecordsFailed)
	assert.Equal(t, 95, store.storedCount())

	result.finalize(time.Now())
	assert.Equal(t, StatusPartial, result.Status)
}

func TestExecuteCleanRun(t *testing.T) {
	exec := &executor{
		fetchers: map[DataSource]SourceFetcher{
			SourceGroundStations: &mockFetcher{records: stationRecords(12)},
		},
		store: &mockStore{},
	}

	task := Task{Source: SourceGroundStations, Priority: 2, MaxRetries: 3}
	result := TaskResult{Task: task, Status: StatusRunning, StartedAt: time.Now()}

	require.NoError(t, exec.execute(context.Background(), task, &result))
	assert.Equal(t, 12, result.RecordsProcessed)
	assert.Equal(t, 12, result.RecordsSuccessful)
	assert.Equal(t, 0, result.RecordsFailed)

	result.finalize(time.Now())
	assert.Equal(t, StatusCompleted, result.Status)
}

func TestExecuteMissingFetcherIsValidationError(t *testing.T) {
	exec := &executor{fetchers: map[DataSource]SourceFetcher{}, store: &mockStore{}}

	task := Task{Source: SourceWeather, Priority: 2, MaxRetries: 3}
	result := TaskResult{Task: task}

	err := exec.execute(context.Background(), task, &result)
	require.Error(t, err)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.False(t, isRetryable(err))
}

func TestExecuteFetchErrorPropagates(t *testing.T) {
	cause := NewTransientFetchError(SourceAirNow, errors.New("connection reset"))
	exec := &executor{
		fetchers: map[DataSource]SourceFetcher{
			SourceAirNow: &mockFetcher{err: cause},
		},
		store: &mockStore{},
	}

	task := Task{Source: SourceAirNow, Priority: 2, MaxRetries: 3}
	result := TaskResult{Task: task}

	err := exec.execute(context.Background(), task, &result)
	require.Error(t, err)
	var fErr *FetchError
	require.True(t, errors.As(err, &fErr))
	assert.True(t, fErr.Transient)
	assert.Equal(t, 0, result.RecordsProcessed)
}

func TestSummarizeSatellite(t *testing.T) {
	task := Task{
		Source: SourceSatellite,
		Parameters: map[string]any{
			"date":       "2024-01-01",
			"parameters": []string{"NO2", "O3"},
			"location":   map[string]any{"type": "bbox"},
		},
	}
	records := []Record{
		{"parameter": "NO2"},
		{"parameter": "O3"},
		{"parameter": "NO2"},
	}

	summary := summarize(task, records)
	assert.Equal(t, "2024-01-01", summary["date"])
	assert.Equal(t, "bbox", summary["location_type"])
	assert.Equal(t, []string{"NO2", "O3"}, summary["unique_parameters"])
}

func TestSummarizeGroundStations(t *testing.T) {
	task := Task{
		Source: SourceGroundStations,
		Parameters: map[string]any{
			"locations": []map[string]any{{"lat": 1.0}, {"lat": 2.0}},
		},
	}
	records := []Record{
		{"station_id": "ST-001"},
		{"station_id": "ST-002"},
		{"station_id": "ST-001"},
	}

	summary := summarize(task, records)
	assert.Equal(t, 2, summary["locations_processed"])
	assert.Equal(t, 2, summary["unique_stations"])
}

func TestSummarizeWeather(t *testing.T) {
	task := Task{
		Source:     SourceWeather,
		Parameters: map[string]any{"locations": []map[string]any{{"lat": 39.8}}},
	}
	records := []Record{
		{"type": "current"},
		{"type": "forecast"},
		{"type": "current"},
	}

	summary := summarize(task, records)
	assert.Equal(t, 1, summary["locations_processed"])
	assert.Equal(t, []string{"current", "forecast"}, summary["data_types"])
}
