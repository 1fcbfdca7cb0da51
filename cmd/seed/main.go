// Package main provides a CLI tool for seeding the warehouse with the demo
// retail dataset.
package main

import (
	"context"
	"fmt"
	"os"

	"retaildw/internal/app"
	"retaildw/internal/config"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/loader"
	"retaildw/internal/seed"
	"retaildw/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)

	opts := seed.DefaultOptions()
	opts.Seed = cfg.SeedRandomSeed
	opts.Days = cfg.SeedDays
	if opts.Start, err = dimension.ParseDate(cfg.SeedStartDate); err != nil {
		log.Fatalw("invalid SEED_START_DATE", "value", cfg.SeedStartDate, "error", err)
	}

	a, err := app.New(ctx, cfg, cfg.SeedReset)
	if err != nil {
		log.Fatalw("failed to initialize", "error", err)
	}
	defer a.Close()

	if cfg.SeedReset {
		log.Info("schema reset")
	}
	log.Infow("seeding",
		"start", opts.Start.Format(dimension.DateLayout),
		"days", opts.Days,
		"seed", opts.Seed,
	)

	run, err := a.Loader.Load(ctx, func(ctx context.Context, s *loader.Session) error {
		return seed.Run(ctx, s, opts)
	})
	if err != nil {
		log.Fatalw("seeding failed, nothing was written", "run_id", run.ID, "error", err)
	}

	for table, n := range run.RowCounts {
		log.Infow("seeded table", "table", table, "rows", n)
	}
	log.Infow("seeding completed successfully", "run_id", run.ID, "rows", run.TotalRows())
}
