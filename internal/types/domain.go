// Package types defines the shared domain model for the HaitiMeteo platform:
// cities, archival daily records, live observations, and the common error and
// clock abstractions used by every other package.
package types

import "time"

// City is a named location with fixed coordinates tracked by the registry.
// Cities are created only by reconciliation from the declarative city source
// and are never mutated by fetch operations.
type City struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DailyMetrics is one day's aggregated weather metrics as returned by the
// archive endpoint, before being bound to a city. Each metric is independently
// nullable: the remote source reports null for days it has no reading for.
type DailyMetrics struct {
	Date          time.Time `json:"date"`
	TempMin       *float64  `json:"temp_min"`
	TempMax       *float64  `json:"temp_max"`
	Humidity      *float64  `json:"humidity"`
	Precipitation *float64  `json:"precipitation"`
	WindSpeed     *float64  `json:"wind_speed"`
}

// ArchiveRecord is one day's metrics for one city as persisted in the
// observation store. Identity is (CityID, Date); the store enforces a unique
// key on the pair so repeated collection runs are idempotent.
type ArchiveRecord struct {
	CityID int64 `json:"city_id"`
	DailyMetrics
}

// DateBounds is the inclusive min/max date range covered by archive records
// for a single city.
type DateBounds struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// LiveObservation is one point-in-time weather reading for one city, captured
// on demand and appended on every successful fetch-and-record call. CityID is
// resolved from the registry at write time; CityName is kept alongside for
// display.
type LiveObservation struct {
	ID            int64     `json:"id"`
	CityID        int64     `json:"city_id"`
	CityName      string    `json:"city_name"`
	ObservedAt    time.Time `json:"observed_at"`
	Temperature   float64   `json:"temperature"`
	Precipitation float64   `json:"precipitation"`
	WindSpeed     float64   `json:"wind_speed"`
}

// CurrentConditions holds the current metrics from a premium live fetch.
// Every numeric field is independently nullable; a missing field must not
// prevent extraction of the others.
type CurrentConditions struct {
	Time          string   `json:"time,omitempty"`
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Precipitation *float64 `json:"precipitation"`
	WindSpeed     *float64 `json:"wind_speed"`
	WeatherCode   *int     `json:"weather_code"`
}

// Alert is an official weather alert attached to a premium live response.
type Alert struct {
	Event       string `json:"event"`
	Onset       string `json:"onset,omitempty"`
	Ends        string `json:"ends,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

// LiveReport is the full normalized payload of a premium live fetch: current
// conditions plus any active alerts.
type LiveReport struct {
	Current CurrentConditions `json:"current"`
	Alerts  []Alert           `json:"alerts"`
}

// HourlySeries is the normalized hourly series from a basic live fetch.
// The slices are parallel: index i of each metric belongs to Time[i].
type HourlySeries struct {
	Time          []string  `json:"time"`
	Temperature   []float64 `json:"temperature"`
	Precipitation []float64 `json:"precipitation"`
	WindSpeed     []float64 `json:"wind_speed"`
}
