package db

import (
	"context"
	"fmt"
	"time"

	"haitimeteo/internal/types"
)

// ArchiveRepository provides data access for the archive_daily table, the
// append-mostly store of one-day-per-city weather metrics.
type ArchiveRepository struct {
	db DBTX
}

// NewArchiveRepository creates an ArchiveRepository backed by the given
// database connection (pool or transaction).
func NewArchiveRepository(db DBTX) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// InsertDaily writes a batch of daily metrics for one city. Rows whose
// (city_id, date) pair already exists are skipped, making collection runs
// idempotent. Returns the number of rows actually inserted.
func (r *ArchiveRepository) InsertDaily(ctx context.Context, cityID int64, records []types.DailyMetrics) (int64, error) {
	const q = `
		INSERT INTO archive_daily (city_id, date, temp_min, temp_max, humidity, precipitation, wind_speed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (city_id, date) DO NOTHING`

	var inserted int64
	for _, rec := range records {
		tag, err := r.db.Exec(ctx, q,
			cityID, rec.Date,
			rec.TempMin, rec.TempMax, rec.Humidity, rec.Precipitation, rec.WindSpeed,
		)
		if err != nil {
			return inserted, types.NewAppErrorWithDetails(
				types.ErrCodeStorage,
				"failed to insert archive record",
				err,
				map[string]any{
					"city_id":   cityID,
					"date":      rec.Date.Format(time.DateOnly),
					"operation": "insert_daily",
				},
			)
		}
		inserted += tag.RowsAffected()
	}

	return inserted, nil
}

// GetRange returns archive records for one city within [start, end]
// inclusive, ordered by date. Missing dates are simply absent rows, never
// null-filled. An empty result is valid and distinct from an unknown city,
// which callers detect through the registry.
func (r *ArchiveRepository) GetRange(ctx context.Context, cityID int64, start, end time.Time) ([]types.ArchiveRecord, error) {
	if end.Before(start) {
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidRange,
			fmt.Sprintf("end date %s precedes start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly)),
			nil,
		)
	}

	rows, err := r.db.Query(ctx, `
		SELECT city_id, date, temp_min, temp_max, humidity, precipitation, wind_speed
		FROM archive_daily
		WHERE city_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date`, cityID, start, end)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorage, "failed to query archive range", err)
	}
	defer rows.Close()

	records := []types.ArchiveRecord{}
	for rows.Next() {
		var rec types.ArchiveRecord
		if err := rows.Scan(
			&rec.CityID, &rec.Date,
			&rec.TempMin, &rec.TempMax, &rec.Humidity, &rec.Precipitation, &rec.WindSpeed,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeStorage, "failed to scan archive row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeStorage, "failed to iterate archive rows", err)
	}

	return records, nil
}

// DateBounds returns the min/max date covered by archive records for one
// city, or nil when the city has no archive rows at all.
func (r *ArchiveRepository) DateBounds(ctx context.Context, cityID int64) (*types.DateBounds, error) {
	row := r.db.QueryRow(ctx, `
		SELECT MIN(date), MAX(date)
		FROM archive_daily
		WHERE city_id = $1`, cityID)

	var minDate, maxDate *time.Time
	if err := row.Scan(&minDate, &maxDate); err != nil {
		return nil, types.NewAppError(types.ErrCodeStorage, "failed to query date bounds", err)
	}

	if minDate == nil || maxDate == nil {
		return nil, nil
	}

	return &types.DateBounds{Min: *minDate, Max: *maxDate}, nil
}
