package cleansky

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreStoreAndGet(t *testing.T) {
	store := NewMemoryStore()
	record := Record{"parameter": "NO2", "lat": 34.05, "lon": -118.24, "value": 0.7}

	require.NoError(t, store.Store(context.Background(), SourceSatellite, record))
	assert.Equal(t, 1, store.Len())

	got, ok := store.Get("satellite_NO2_34.05_-118.24")
	require.True(t, ok)
	assert.Equal(t, record, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	record := Record{"parameter": "O3", "lat": 1.0, "lon": 2.0}
	require.NoError(t, store.Store(context.Background(), SourceSatellite, record))

	_, ok := store.Get("satellite_O3_1_2")
	assert.True(t, ok)

	// Satellite records expire after an hour.
	current = current.Add(61 * time.Minute)
	_, ok = store.Get("satellite_O3_1_2")
	assert.False(t, ok)

	assert.Equal(t, 1, store.Purge())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreFreshRecordWins(t *testing.T) {
	store := NewMemoryStore()
	stale := Record{"parameter": "NO2", "lat": 1.0, "lon": 2.0, "value": 0.1}
	fresh := Record{"parameter": "NO2", "lat": 1.0, "lon": 2.0, "value": 0.9}

	require.NoError(t, store.Store(context.Background(), SourceSatellite, stale))
	require.NoError(t, store.Store(context.Background(), SourceSatellite, fresh))

	assert.Equal(t, 1, store.Len())
	got, ok := store.Get("satellite_NO2_1_2")
	require.True(t, ok)
	assert.Equal(t, 0.9, got["value"])
}

func TestSourceTTL(t *testing.T) {
	assert.Equal(t, time.Hour, sourceTTL(SourceSatellite))
	assert.Equal(t, 30*time.Minute, sourceTTL(SourceGroundStations))
	assert.Equal(t, 30*time.Minute, sourceTTL(SourceWeather))
}
