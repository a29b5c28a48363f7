package db

import (
	"context"

	"haitimeteo/internal/types"
)

// schemaStatements creates the three logical tables and the indexes required
// for range-scan performance. The UNIQUE index on (city_id, date) is the
// idempotency key for archive collection: re-running a collection for an
// already-covered city/year inserts nothing instead of accumulating
// duplicates.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cities (
		id        BIGINT PRIMARY KEY,
		name      TEXT NOT NULL,
		latitude  DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_cities_name ON cities (LOWER(name))`,

	`CREATE TABLE IF NOT EXISTS archive_daily (
		id            BIGSERIAL PRIMARY KEY,
		city_id       BIGINT NOT NULL REFERENCES cities(id),
		date          DATE NOT NULL,
		temp_min      DOUBLE PRECISION,
		temp_max      DOUBLE PRECISION,
		humidity      DOUBLE PRECISION,
		precipitation DOUBLE PRECISION,
		wind_speed    DOUBLE PRECISION
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_archive_city_date ON archive_daily (city_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_archive_date ON archive_daily (date)`,

	`CREATE TABLE IF NOT EXISTS live_observations (
		id            BIGSERIAL PRIMARY KEY,
		city_id       BIGINT NOT NULL REFERENCES cities(id),
		city_name     TEXT NOT NULL,
		observed_at   TIMESTAMPTZ NOT NULL,
		temperature   DOUBLE PRECISION NOT NULL,
		precipitation DOUBLE PRECISION NOT NULL,
		wind_speed    DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_live_city_observed ON live_observations (city_id, observed_at)`,
}

// Migrate applies the schema, creating tables and indexes if they do not
// already exist. Safe to run on every startup.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return types.NewAppError(types.ErrCodeStorage, "failed to apply schema", err)
		}
	}
	return nil
}

// ResetObservations clears the entire observation store (archive and live
// rows) ahead of a fresh collection run. The city registry is preserved.
func ResetObservations(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, `TRUNCATE archive_daily, live_observations`); err != nil {
		return types.NewAppError(types.ErrCodeStorage, "failed to reset observation store", err)
	}
	return nil
}
