// Package config defines the global configuration structure for the
// HaitiMeteo platform. Configuration is loaded once at process start and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Any missing required value or invalid format fails startup immediately.
package config

import "time"

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Database  DatabaseConfig
	Weather   WeatherConfig
	Registry  RegistryConfig
	Collector CollectorConfig
	Cache     CacheConfig
	Server    ServerConfig
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// WeatherConfig holds the remote weather API endpoints, timeouts and retry
// budget. Timeouts are weighted per call: archive pulls a full year of daily
// records and gets the longest budget.
type WeatherConfig struct {
	ForecastURL string `envconfig:"OPEN_METEO_FORECAST_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"url"`
	ArchiveURL  string `envconfig:"OPEN_METEO_ARCHIVE_URL" default:"https://archive-api.open-meteo.com/v1/archive" validate:"url"`
	Timezone    string `envconfig:"WEATHER_TIMEZONE" default:"America/Port-au-Prince"`

	LiveTimeout    time.Duration `envconfig:"WEATHER_LIVE_TIMEOUT" default:"15s"`
	ArchiveTimeout time.Duration `envconfig:"WEATHER_ARCHIVE_TIMEOUT" default:"20s"`
	MaxRetries     int           `envconfig:"WEATHER_MAX_RETRIES" default:"3"`
	UserAgent      string        `envconfig:"WEATHER_USER_AGENT" default:"HaitiMeteo/1.0"`
}

// RegistryConfig points at the declarative city source consumed by
// reconciliation. The file is read-only input; edits come from an external
// collaborator.
type RegistryConfig struct {
	CitiesFile string `envconfig:"CITIES_FILE" default:"data/cities.yaml"`
}

// CollectorConfig holds archive collection defaults. Pause is the pacing
// interval between consecutive outbound API calls.
type CollectorConfig struct {
	StartYear int           `envconfig:"COLLECT_START_YEAR" default:"2010"`
	EndYear   int           `envconfig:"COLLECT_END_YEAR" default:"2020"`
	Pause     time.Duration `envconfig:"COLLECT_PAUSE" default:"1s"`
}

// CacheConfig holds the freshness window for memoized historical reads.
type CacheConfig struct {
	TTL time.Duration `envconfig:"READ_CACHE_TTL" default:"10m"`
}

// ServerConfig holds HTTP server parameters for the read API.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}
