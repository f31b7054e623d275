package cleansky

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terminalResult(id string, status TaskStatus, records int, completedAt time.Time) TaskResult {
	return TaskResult{
		TaskID:           id,
		Task:             Task{Source: SourceGroundStations},
		Status:           status,
		RecordsProcessed: records,
		CompletedAt:      completedAt,
	}
}

func TestStatsCounters(t *testing.T) {
	agg := newStatsAggregator(100)
	now := time.Now()

	agg.recordResult(terminalResult("a", StatusCompleted, 10, now))
	agg.recordResult(terminalResult("b", StatusPartial, 20, now))
	agg.recordResult(terminalResult("c", StatusFailed, 0, now))

	stats := agg.snapshot()
	assert.Equal(t, int64(3), stats.TotalTasksProcessed)
	assert.Equal(t, int64(1), stats.SuccessfulTasks)
	// Partial and Failed both count against the failure counter.
	assert.Equal(t, int64(2), stats.FailedTasks)
	assert.Equal(t, int64(30), stats.TotalRecordsProcessed)
}

func TestStatsRecentOrderAndLimit(t *testing.T) {
	agg := newStatsAggregator(100)
	base := time.Now()

	// Insert out of completion order to prove sorting happens on read.
	agg.recordResult(terminalResult("second", StatusCompleted, 1, base.Add(2*time.Second)))
	agg.recordResult(terminalResult("third", StatusCompleted, 1, base.Add(3*time.Second)))
	agg.recordResult(terminalResult("first", StatusCompleted, 1, base.Add(1*time.Second)))

	recent := agg.recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].TaskID)
	assert.Equal(t, "second", recent[1].TaskID)
}

func TestStatsHistoryBounded(t *testing.T) {
	agg := newStatsAggregator(3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		agg.recordResult(terminalResult(fmt.Sprintf("r%d", i), StatusCompleted, 1, base.Add(time.Duration(i)*time.Second)))
	}

	recent := agg.recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "r4", recent[0].TaskID)
	assert.Equal(t, "r2", recent[2].TaskID, "oldest retained result")

	// The counters keep the full totals even though the history is truncated.
	assert.Equal(t, int64(5), agg.snapshot().TotalTasksProcessed)
}

func TestStatsLastIngestion(t *testing.T) {
	agg := newStatsAggregator(10)

	_, ok := agg.lastIngestionTime(SourceWeather)
	assert.False(t, ok)

	at := time.Now()
	agg.markIngestion(SourceWeather, at)

	got, ok := agg.lastIngestionTime(SourceWeather)
	require.True(t, ok)
	assert.Equal(t, at, got)
	assert.Equal(t, at, agg.snapshot().LastIngestionTime[SourceWeather])
}
