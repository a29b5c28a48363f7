package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"haitimeteo/internal/types"
)

// CityRepository provides data access for the cities table, the source of
// truth for the city registry.
type CityRepository struct {
	db DBTX
}

// NewCityRepository creates a CityRepository backed by the given database
// connection (pool or transaction).
func NewCityRepository(db DBTX) *CityRepository {
	return &CityRepository{db: db}
}

// Reconcile inserts every declared city whose id is not yet present.
// Existing rows are never updated or removed, even if name or coordinates
// changed upstream: reconciliation is additive-only, matching the declarative
// source contract. Renamed or moved cities therefore keep their stored
// values; see DESIGN.md.
//
// Each insert commits independently, so a storage failure mid-pass leaves
// already-applied inserts intact. Running Reconcile twice with the same input
// yields the same registry contents.
func (r *CityRepository) Reconcile(ctx context.Context, declared []types.City) (int64, error) {
	const q = `
		INSERT INTO cities (id, name, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	var inserted int64
	for _, c := range declared {
		tag, err := r.db.Exec(ctx, q, c.ID, c.Name, c.Latitude, c.Longitude)
		if err != nil {
			return inserted, types.NewAppErrorWithDetails(
				types.ErrCodeStorage,
				fmt.Sprintf("failed to insert city %q", c.Name),
				err,
				map[string]any{"city_id": c.ID, "operation": "reconcile"},
			)
		}
		inserted += tag.RowsAffected()
	}

	return inserted, nil
}

// List returns the full registry snapshot ordered by id.
func (r *CityRepository) List(ctx context.Context) ([]types.City, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, latitude, longitude
		FROM cities
		ORDER BY id`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorage, "failed to list cities", err)
	}
	defer rows.Close()

	var cities []types.City
	for rows.Next() {
		var c types.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Latitude, &c.Longitude); err != nil {
			return nil, types.NewAppError(types.ErrCodeStorage, "failed to scan city row", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeStorage, "failed to iterate city rows", err)
	}

	return cities, nil
}

// GetByID returns a single city or a not-found error.
func (r *CityRepository) GetByID(ctx context.Context, id int64) (*types.City, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, latitude, longitude
		FROM cities
		WHERE id = $1`, id)

	return r.scanCity(row, fmt.Sprintf("city %d", id))
}

// GetByName returns a single city matched case-insensitively by name, or a
// not-found error.
func (r *CityRepository) GetByName(ctx context.Context, name string) (*types.City, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, latitude, longitude
		FROM cities
		WHERE LOWER(name) = LOWER($1)`, name)

	return r.scanCity(row, fmt.Sprintf("city %q", name))
}

func (r *CityRepository) scanCity(row pgx.Row, what string) (*types.City, error) {
	var c types.City
	err := row.Scan(&c.ID, &c.Name, &c.Latitude, &c.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundCity, what+" is not in the registry", err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeStorage, "failed to scan city row", err)
	}
	return &c, nil
}
