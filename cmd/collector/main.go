// Package main is the entrypoint for the archive collector.
//
// The collector is the batch side of the system: it reconciles the declared
// city registry into storage, then walks every city/year combination pulling
// daily history from the upstream archive. It is safe to rerun at any time
// because inserts skip rows that already exist. With --every it stays
// resident and repeats the pass on a fixed interval.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"haitimeteo/internal/collector"
	"haitimeteo/internal/config"
	"haitimeteo/internal/db"
	"haitimeteo/internal/meteo"
	"haitimeteo/internal/registry"
	"haitimeteo/internal/schedule"
)

func main() {
	startYear := flag.Int("start", 0, "first year to collect (default from config)")
	endYear := flag.Int("end", 0, "last year to collect (default from config)")
	pause := flag.Duration("pause", 0, "pause between upstream fetches (default from config)")
	citiesFlag := flag.String("cities", "", "comma-separated city names to collect (default all)")
	noSync := flag.Bool("no-sync", false, "skip registry reconciliation before collecting")
	force := flag.Bool("force", false, "truncate observation tables before collecting")
	every := flag.Duration("every", 0, "stay resident and repeat the pass on this interval")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("failed to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *force {
		logger.Warn("truncating observation tables before collection")
		if err := db.ResetObservations(ctx, pool); err != nil {
			logger.Error("failed to reset observation tables", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	cityRepo := db.NewCityRepository(pool)
	archiveRepo := db.NewArchiveRepository(pool)

	if !*noSync {
		declared, err := registry.LoadSource(cfg.Registry.CitiesFile)
		if err != nil {
			logger.Error("failed to load city source", slog.String("error", err.Error()))
			os.Exit(1)
		}
		inserted, err := cityRepo.Reconcile(ctx, declared)
		if err != nil {
			logger.Error("registry reconciliation failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("registry reconciled",
			slog.Int("declared", len(declared)),
			slog.Int64("inserted", inserted),
		)
	}

	client := meteo.NewClient(cfg.Weather, logger)
	runner := collector.New(client, cityRepo, archiveRepo, nil, logger)

	opts := collector.Options{
		StartYear: cfg.Collector.StartYear,
		EndYear:   cfg.Collector.EndYear,
		Pause:     cfg.Collector.Pause,
	}
	if *startYear > 0 {
		opts.StartYear = *startYear
	}
	if *endYear > 0 {
		opts.EndYear = *endYear
	}
	if *pause > 0 {
		opts.Pause = *pause
	}
	if *citiesFlag != "" {
		opts.Cities = strings.Split(*citiesFlag, ",")
	}

	summary, err := runner.Run(ctx, opts)
	if err != nil {
		logger.Error("collection run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("collection run complete",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Int64("inserted", summary.Inserted),
	)

	if *every <= 0 {
		return
	}

	// Resident mode: keep topping up the current year until interrupted.
	// The bulk pass above already covered the configured range.
	topUp := opts
	topUp.StartYear = time.Now().UTC().Year()
	topUp.EndYear = topUp.StartYear

	// No read cache lives in this process, so there is nothing to invalidate.
	sched := schedule.New(runner, topUp, *every, nil, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start schedule", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sched.Stop()

	logger.Info("resident collection schedule started", slog.Duration("interval", *every))
	<-ctx.Done()
	logger.Info("shutting down")
}
