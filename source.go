package cleansky

import (
	"fmt"
	"time"
)

// DataSource identifies one of the external environmental data providers the engine
// can ingest from. The set is closed; ParseDataSource rejects anything else.
type DataSource string

const (
	// SourceSatellite is satellite column data (NO2, O3, HCHO, SO2 and friends).
	SourceSatellite DataSource = "satellite"
	// SourceGroundStations is the ground station measurement network.
	SourceGroundStations DataSource = "ground_stations"
	// SourceWeather is current weather and forecast data.
	SourceWeather DataSource = "weather"
	// SourceEPAAQS is the EPA Air Quality System archive.
	SourceEPAAQS DataSource = "epa_aqs"
	// SourceAirNow is the AirNow real-time feed.
	SourceAirNow DataSource = "airnow"
)

// DataSources returns all known data sources, in stable order.
func DataSources() []DataSource {
	return []DataSource{
		SourceSatellite,
		SourceGroundStations,
		SourceWeather,
		SourceEPAAQS,
		SourceAirNow,
	}
}

// Valid reports whether the DataSource is a member of the closed source set.
func (s DataSource) Valid() bool {
	switch s {
	case SourceSatellite, SourceGroundStations, SourceWeather, SourceEPAAQS, SourceAirNow:
		return true
	}
	return false
}

func (s DataSource) String() string {
	return string(s)
}

// ParseDataSource converts a string into a DataSource, or returns a ValidationError
// if the string names no known source.
func ParseDataSource(raw string) (DataSource, error) {
	s := DataSource(raw)
	if !s.Valid() {
		return "", &ValidationError{Reason: fmt.Sprintf("unknown data source: %q", raw)}
	}
	return s, nil
}

// DefaultIntervals returns the routine ingestion cadence per source. Satellite and EPA
// archives refresh hourly, the station feeds considerably more often.
func DefaultIntervals() map[DataSource]time.Duration {
	return map[DataSource]time.Duration{
		SourceSatellite:      60 * time.Minute,
		SourceGroundStations: 15 * time.Minute,
		SourceWeather:        30 * time.Minute,
		SourceEPAAQS:         60 * time.Minute,
		SourceAirNow:         15 * time.Minute,
	}
}

// conusBBox is the continental US bounding box used as the default satellite query area.
func conusBBox() map[string]any {
	return map[string]any{
		"type":  "bbox",
		"west":  -125.0,
		"south": 25.0,
		"east":  -66.0,
		"north": 49.0,
	}
}

// defaultMetroLocations are the ground station query centers used by routine tasks.
func defaultMetroLocations() []map[string]any {
	return []map[string]any{
		{"lat": 34.0522, "lon": -118.2437, "radius": 50.0}, // LA
		{"lat": 40.7128, "lon": -74.0060, "radius": 50.0},  // NYC
		{"lat": 41.8781, "lon": -87.6298, "radius": 50.0},  // Chicago
		{"lat": 29.7604, "lon": -95.3698, "radius": 50.0},  // Houston
		{"lat": 33.4484, "lon": -112.0740, "radius": 50.0}, // Phoenix
	}
}

// defaultParameters builds the standard query parameters a routine task carries for
// the given source.
func defaultParameters(source DataSource, now time.Time) map[string]any {
	switch source {
	case SourceSatellite:
		return map[string]any{
			"date":       now.UTC().Format("2006-01-02"),
			"parameters": []string{"NO2", "O3", "HCHO", "SO2"},
			"location":   conusBBox(),
		}
	case SourceGroundStations:
		return map[string]any{
			"locations": defaultMetroLocations(),
		}
	case SourceWeather:
		return map[string]any{
			"locations": []map[string]any{
				{"lat": 39.8283, "lon": -98.5795}, // Center of US
			},
			"include_forecast": true,
		}
	default:
		return map[string]any{}
	}
}
