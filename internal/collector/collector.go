// Package collector drives the bulk historical ingestion: for every
// registered city and every requested year it pulls the daily archive from
// the upstream source and lands it in storage. Tasks run sequentially with a
// pacing pause so the free upstream tier is never hammered, and one failed
// city/year never aborts the rest of the run.
package collector

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"haitimeteo/internal/types"
)

// ArchiveFetcher pulls one year of daily records for a coordinate pair.
type ArchiveFetcher interface {
	FetchArchiveYear(ctx context.Context, lat, lon float64, year int) ([]types.DailyMetrics, error)
}

// CityLister exposes the reconciled city registry.
type CityLister interface {
	List(ctx context.Context) ([]types.City, error)
}

// ArchiveWriter persists daily records for a city, skipping duplicates.
type ArchiveWriter interface {
	InsertDaily(ctx context.Context, cityID int64, records []types.DailyMetrics) (int64, error)
}

// Options controls a collection run.
type Options struct {
	StartYear int
	EndYear   int
	// Pause is slept between consecutive upstream fetches.
	Pause time.Duration
	// Cities restricts the run to the named cities (case-insensitive).
	// Empty means every registered city.
	Cities []string
	// OnProgress, when set, is invoked after every finished city/year task
	// with the number of tasks done so far and the fixed task total.
	OnProgress func(done, total int)
}

// Summary reports what a collection run did.
type Summary struct {
	Total     int   // city/year tasks attempted
	Succeeded int   // tasks that stored at least zero rows without error
	Skipped   int   // tasks the upstream had no data for
	Failed    int   // tasks that errored and were isolated
	Inserted  int64 // rows actually written, duplicates excluded
}

// Collector runs archive collection passes.
type Collector struct {
	fetcher ArchiveFetcher
	cities  CityLister
	writer  ArchiveWriter
	clock   types.Clock
	logger  *slog.Logger
	sleepFn func(time.Duration)
}

// New creates a Collector. If clock is nil, types.RealClock is used; if
// logger is nil, slog.Default() is used.
func New(fetcher ArchiveFetcher, cities CityLister, writer ArchiveWriter, clock types.Clock, logger *slog.Logger) *Collector {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		fetcher: fetcher,
		cities:  cities,
		writer:  writer,
		clock:   clock,
		logger:  logger,
		sleepFn: time.Sleep,
	}
}

// WithSleepFunc overrides the pacing sleep. Intended for tests.
func (c *Collector) WithSleepFunc(fn func(time.Duration)) *Collector {
	c.sleepFn = fn
	return c
}

// Run executes one collection pass over city x year tasks. An empty registry
// or an unknown name in the city filter aborts before any fetch; once tasks
// start, each failure is logged and counted without stopping the run. Years
// beyond the current one are clamped away, and records dated in the future
// are dropped before storage.
func (c *Collector) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.EndYear < opts.StartYear {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidRange,
			"end year precedes start year",
			nil,
			map[string]any{"start_year": opts.StartYear, "end_year": opts.EndYear},
		)
	}

	all, err := c.cities.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeConfigEmptyRegistry,
			"city registry is empty; run registry sync first",
			nil,
		)
	}

	targets, err := filterCities(all, opts.Cities)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	endYear := opts.EndYear
	if endYear > now.Year() {
		endYear = now.Year()
	}

	years := endYear - opts.StartYear + 1
	if years < 0 {
		years = 0
	}
	total := len(targets) * years

	summary := &Summary{}
	first := true
	for _, city := range targets {
		for year := opts.StartYear; year <= endYear; year++ {
			if err := ctx.Err(); err != nil {
				return summary, types.NewAppError(types.ErrCodeInternalUnexpected, "collection run canceled", err)
			}

			if !first && opts.Pause > 0 {
				c.sleepFn(opts.Pause)
			}
			first = false

			summary.Total++
			c.collectYear(ctx, city, year, now, summary)

			c.logger.Info("collection progress",
				slog.Int("done", summary.Total),
				slog.Int("total", total),
			)
			if opts.OnProgress != nil {
				opts.OnProgress(summary.Total, total)
			}
		}
	}

	c.logger.Info("collection run finished",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Int64("inserted", summary.Inserted),
	)

	return summary, nil
}

// collectYear handles a single city/year task. Failures are absorbed into
// the summary so the enclosing loop keeps going.
func (c *Collector) collectYear(ctx context.Context, city types.City, year int, now time.Time, summary *Summary) {
	records, err := c.fetcher.FetchArchiveYear(ctx, city.Latitude, city.Longitude, year)
	if err != nil {
		summary.Failed++
		c.logger.Warn("archive fetch failed",
			slog.String("city", city.Name),
			slog.Int("year", year),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(records) == 0 {
		summary.Skipped++
		c.logger.Debug("no archive data for year",
			slog.String("city", city.Name),
			slog.Int("year", year),
		)
		return
	}

	today := now.Truncate(24 * time.Hour)
	kept := records[:0]
	for _, rec := range records {
		if rec.Date.After(today) {
			continue
		}
		kept = append(kept, rec)
	}

	inserted, err := c.writer.InsertDaily(ctx, city.ID, kept)
	if err != nil {
		summary.Failed++
		c.logger.Warn("archive store failed",
			slog.String("city", city.Name),
			slog.Int("year", year),
			slog.String("error", err.Error()),
		)
		return
	}

	summary.Succeeded++
	summary.Inserted += inserted
	c.logger.Info("archive year stored",
		slog.String("city", city.Name),
		slog.Int("year", year),
		slog.Int("fetched", len(records)),
		slog.Int64("inserted", inserted),
	)
}

// filterCities narrows the registry to the requested names. Names match
// case-insensitively; a name with no registered city is a config error.
func filterCities(all []types.City, names []string) ([]types.City, error) {
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]types.City, len(all))
	for _, city := range all {
		byName[strings.ToLower(city.Name)] = city
	}

	targets := make([]types.City, 0, len(names))
	for _, name := range names {
		city, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeConfigUnknownCity,
				"city is not in the registry",
				nil,
				map[string]any{"city": name},
			)
		}
		targets = append(targets, city)
	}

	return targets, nil
}
