// Package registry loads and validates the declarative city source that the
// city registry is reconciled from. The file is read-only input to the core:
// edits are produced by an external collaborator.
package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"haitimeteo/internal/types"
)

// sourceFile mirrors the on-disk layout of the declarative city list.
type sourceFile struct {
	Cities []sourceCity `yaml:"cities"`
}

type sourceCity struct {
	ID        int64   `yaml:"id" validate:"required"`
	Name      string  `yaml:"name" validate:"required"`
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
}

// LoadSource reads the declarative city list from path. A malformed or
// missing file, out-of-range coordinates, or duplicate ids/names are all
// config errors: reconciliation must stop before touching the registry.
// Name uniqueness is case-insensitive.
func LoadSource(path string) ([]types.City, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeConfigSource,
			fmt.Sprintf("failed to read city source %s", path),
			err,
		)
	}

	var src sourceFile
	if err := yaml.Unmarshal(raw, &src); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeConfigSource,
			fmt.Sprintf("failed to parse city source %s", path),
			err,
		)
	}

	if len(src.Cities) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeConfigSource,
			fmt.Sprintf("city source %s declares no cities", path),
			nil,
		)
	}

	validate := validator.New()
	seenIDs := make(map[int64]string, len(src.Cities))
	seenNames := make(map[string]string, len(src.Cities))

	cities := make([]types.City, 0, len(src.Cities))
	for _, c := range src.Cities {
		if err := validate.Struct(c); err != nil {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeConfigSource,
				fmt.Sprintf("invalid city entry %q", c.Name),
				err,
				map[string]any{"city_id": c.ID},
			)
		}

		if prev, dup := seenIDs[c.ID]; dup {
			return nil, types.NewAppError(
				types.ErrCodeConfigSource,
				fmt.Sprintf("duplicate city id %d (%q and %q)", c.ID, prev, c.Name),
				nil,
			)
		}
		seenIDs[c.ID] = c.Name

		key := strings.ToLower(c.Name)
		if prev, dup := seenNames[key]; dup {
			return nil, types.NewAppError(
				types.ErrCodeConfigSource,
				fmt.Sprintf("duplicate city name %q (ids %s and %d)", c.Name, prev, c.ID),
				nil,
			)
		}
		seenNames[key] = fmt.Sprintf("%d", c.ID)

		cities = append(cities, types.City{
			ID:        c.ID,
			Name:      c.Name,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		})
	}

	return cities, nil
}
