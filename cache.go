package cleansky

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// cacheEntry is one stored record with its expiry instant.
type cacheEntry struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore is an in-memory, TTL-bound RecordStore. It keys records the same way
// for reads and writes, so the freshest record for a station, satellite cell or
// weather location wins. Satellite records live an hour, the faster feeds half that.
//
// It exists so the engine is usable without wiring a database; production setups
// replace it with a durable RecordStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Store keeps the record under its source-specific key until the TTL elapses.
func (s *MemoryStore) Store(_ context.Context, source DataSource, record Record) error {
	key := recordKey(source, record, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cacheEntry{
		record:    record,
		expiresAt: s.now().Add(sourceTTL(source)),
	}
	return nil
}

// Get returns the record stored under key, if present and not expired.
func (s *MemoryStore) Get(key string) (Record, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.record, true
}

// Len returns the number of stored entries, expired ones included until Purge runs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Purge drops expired entries and returns how many were removed.
func (s *MemoryStore) Purge() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// sourceTTL returns how long records of a source stay fresh.
func sourceTTL(source DataSource) time.Duration {
	if source == SourceSatellite {
		return time.Hour
	}
	return 30 * time.Minute
}

// recordKey derives the cache key for a record of the given source.
func recordKey(source DataSource, record Record, now time.Time) string {
	switch source {
	case SourceSatellite:
		return fmt.Sprintf("satellite_%v_%v_%v", record["parameter"], record["lat"], record["lon"])
	case SourceGroundStations, SourceEPAAQS, SourceAirNow:
		return fmt.Sprintf("station_%v_%s", record["station_id"], now.UTC().Format("2006010215"))
	case SourceWeather:
		return fmt.Sprintf("weather_%v_%v_%v", record["lat"], record["lon"], record["type"])
	default:
		return fmt.Sprintf("%s_%v", source, record)
	}
}
