package db

import (
	"context"

	"haitimeteo/internal/types"
)

// LiveRepository provides data access for the live_observations table.
// Rows are append-only and never deduplicated: each dashboard refresh
// produces a new observation.
type LiveRepository struct {
	db DBTX
}

// NewLiveRepository creates a LiveRepository backed by the given database
// connection (pool or transaction).
func NewLiveRepository(db DBTX) *LiveRepository {
	return &LiveRepository{db: db}
}

// Insert appends one live observation. The caller is responsible for having
// resolved CityID through the registry before writing.
func (r *LiveRepository) Insert(ctx context.Context, obs *types.LiveObservation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO live_observations (city_id, city_name, observed_at, temperature, precipitation, wind_speed)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		obs.CityID, obs.CityName, obs.ObservedAt,
		obs.Temperature, obs.Precipitation, obs.WindSpeed,
	)
	if err != nil {
		return types.NewAppErrorWithDetails(
			types.ErrCodeStorage,
			"failed to insert live observation",
			err,
			map[string]any{
				"city_id":     obs.CityID,
				"observed_at": obs.ObservedAt,
				"operation":   "insert_live",
			},
		)
	}
	return nil
}

// History returns all live observations for one city ordered by observation
// time. The live path never goes through the read cache: freshness is
// paramount here.
func (r *LiveRepository) History(ctx context.Context, cityID int64) ([]types.LiveObservation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, city_id, city_name, observed_at, temperature, precipitation, wind_speed
		FROM live_observations
		WHERE city_id = $1
		ORDER BY observed_at`, cityID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorage, "failed to query live history", err)
	}
	defer rows.Close()

	history := []types.LiveObservation{}
	for rows.Next() {
		var obs types.LiveObservation
		if err := rows.Scan(
			&obs.ID, &obs.CityID, &obs.CityName, &obs.ObservedAt,
			&obs.Temperature, &obs.Precipitation, &obs.WindSpeed,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeStorage, "failed to scan live observation row", err)
		}
		history = append(history, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeStorage, "failed to iterate live observation rows", err)
	}

	return history, nil
}
