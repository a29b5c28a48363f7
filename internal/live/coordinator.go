// Package live coordinates on-demand current-conditions fetching: a single
// city refresh that also records an observation, and a bounded concurrent
// fan-out that builds the multi-city board. City names are always resolved
// against the registry first, so live data is never stored under a name the
// registry does not know.
package live

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"haitimeteo/internal/meteo"
	"haitimeteo/internal/types"
)

// LiveFetcher pulls current conditions plus alerts, and the hourly series,
// for a coordinate pair.
type LiveFetcher interface {
	FetchLivePremium(ctx context.Context, lat, lon float64) (*types.LiveReport, error)
	FetchLiveBasic(ctx context.Context, lat, lon float64) (*types.HourlySeries, error)
}

// CityDirectory resolves registered cities.
type CityDirectory interface {
	List(ctx context.Context) ([]types.City, error)
	GetByName(ctx context.Context, name string) (*types.City, error)
}

// ObservationStore persists and reads back live observations.
type ObservationStore interface {
	Insert(ctx context.Context, obs *types.LiveObservation) error
	History(ctx context.Context, cityID int64) ([]types.LiveObservation, error)
}

// FetchResult is the outcome of a single-city live refresh.
type FetchResult struct {
	City        types.City              `json:"city"`
	Current     types.CurrentConditions `json:"current"`
	Alerts      []types.Alert           `json:"alerts"`
	Observation *types.LiveObservation  `json:"observation,omitempty"`
	// Warning is set when the fetch succeeded but the observation could not
	// be stored. The caller still gets the live data.
	Warning string `json:"warning,omitempty"`
}

// BoardRow is one city's entry on the multi-city board. A row whose fetch
// failed keeps its position with Err set and display fields downgraded to
// the error condition.
type BoardRow struct {
	CityID        int64         `json:"city_id"`
	CityName      string        `json:"city_name"`
	Temperature   *float64      `json:"temperature"`
	Humidity      *float64      `json:"humidity"`
	Precipitation float64       `json:"precipitation"`
	WindSpeed     float64       `json:"wind_speed"`
	WeatherCode   int           `json:"weather_code"`
	Icon          string        `json:"icon"`
	Label         string        `json:"label"`
	Alerts        []types.Alert `json:"alerts"`
	Err           string        `json:"error,omitempty"`
}

// Coordinator runs live fetches against the registry.
type Coordinator struct {
	fetcher LiveFetcher
	cities  CityDirectory
	store   ObservationStore
	clock   types.Clock
	logger  *slog.Logger
}

// NewCoordinator creates a Coordinator. If clock is nil, types.RealClock is
// used; if logger is nil, slog.Default() is used.
func NewCoordinator(fetcher LiveFetcher, cities CityDirectory, store ObservationStore, clock types.Clock, logger *slog.Logger) *Coordinator {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fetcher: fetcher,
		cities:  cities,
		store:   store,
		clock:   clock,
		logger:  logger,
	}
}

// FetchCity refreshes one city by name and records an observation. The name
// must resolve against the registry; an unresolved name is a not-found
// failure before any upstream call. A storage failure after a successful
// fetch degrades to a warning on the result rather than losing the data.
func (c *Coordinator) FetchCity(ctx context.Context, name string) (*FetchResult, error) {
	city, err := c.cities.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	report, err := c.fetcher.FetchLivePremium(ctx, city.Latitude, city.Longitude)
	if err != nil {
		return nil, err
	}

	obs := &types.LiveObservation{
		CityID:        city.ID,
		CityName:      city.Name,
		ObservedAt:    c.clock.Now(),
		Temperature:   deref(report.Current.Temperature),
		Precipitation: deref(report.Current.Precipitation),
		WindSpeed:     deref(report.Current.WindSpeed),
	}

	result := &FetchResult{
		City:        *city,
		Current:     report.Current,
		Alerts:      report.Alerts,
		Observation: obs,
	}

	if err := c.store.Insert(ctx, obs); err != nil {
		c.logger.Warn("live observation not stored",
			slog.String("city", city.Name),
			slog.String("error", err.Error()),
		)
		result.Observation = nil
		result.Warning = "observation could not be stored"
	}

	return result, nil
}

// Hourly returns the hourly live series for a named city. Nothing is
// recorded; this is a pure passthrough read.
func (c *Coordinator) Hourly(ctx context.Context, name string) (*types.HourlySeries, error) {
	city, err := c.cities.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.fetcher.FetchLiveBasic(ctx, city.Latitude, city.Longitude)
}

// History returns the recorded observations for a named city, oldest first.
func (c *Coordinator) History(ctx context.Context, name string) ([]types.LiveObservation, error) {
	city, err := c.cities.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.store.History(ctx, city.ID)
}

// FetchAll builds the live board for every registered city. Fetches run
// concurrently under a bounded worker ceiling; each city lands in the row
// matching its registry position, and a failed city yields an error row
// instead of sinking the board. Board fetches record no observations.
func (c *Coordinator) FetchAll(ctx context.Context) ([]BoardRow, error) {
	cities, err := c.cities.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(cities) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeConfigEmptyRegistry,
			"city registry is empty; run registry sync first",
			nil,
		)
	}

	rows := make([]BoardRow, len(cities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(boardWorkers(len(cities)))

	for i, city := range cities {
		g.Go(func() error {
			report, err := c.fetcher.FetchLivePremium(gctx, city.Latitude, city.Longitude)
			if err != nil {
				c.logger.Warn("board fetch failed",
					slog.String("city", city.Name),
					slog.String("error", err.Error()),
				)
				rows[i] = errorRow(city, err)
				return nil
			}
			rows[i] = conditionsRow(city, report)
			return nil
		})
	}

	// Workers never return errors; Wait only surfaces context cancellation.
	if err := g.Wait(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "board fetch canceled", err)
	}

	return rows, nil
}

// boardWorkers bounds board concurrency to min(20, max(2, n)).
func boardWorkers(n int) int {
	workers := n
	if workers < 2 {
		workers = 2
	}
	if workers > 20 {
		workers = 20
	}
	return workers
}

func conditionsRow(city types.City, report *types.LiveReport) BoardRow {
	code := 0
	if report.Current.WeatherCode != nil {
		code = *report.Current.WeatherCode
	}
	cond := meteo.DescribeWeatherCode(code)

	return BoardRow{
		CityID:        city.ID,
		CityName:      city.Name,
		Temperature:   report.Current.Temperature,
		Humidity:      report.Current.Humidity,
		Precipitation: deref(report.Current.Precipitation),
		WindSpeed:     deref(report.Current.WindSpeed),
		WeatherCode:   code,
		Icon:          cond.Icon,
		Label:         cond.Label,
		Alerts:        report.Alerts,
	}
}

func errorRow(city types.City, err error) BoardRow {
	return BoardRow{
		CityID:   city.ID,
		CityName: city.Name,
		Icon:     meteo.ErrorCondition.Icon,
		Label:    meteo.ErrorCondition.Label,
		Alerts:   []types.Alert{},
		Err:      err.Error(),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
