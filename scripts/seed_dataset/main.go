// Command seed_dataset loads the bundled demo register into the local Postgres dataset
// served while the authority is unreachable.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/noah-isme/station-compliance-api/internal/repository"
	"github.com/noah-isme/station-compliance-api/pkg/config"
	"github.com/noah-isme/station-compliance-api/pkg/database"
	"github.com/noah-isme/station-compliance-api/pkg/logger"
)

func main() {
	var (
		timeout time.Duration
		station string
		dryRun  bool
	)
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout for the load")
	flag.StringVar(&station, "station", "", "only load documents for this station id")
	flag.BoolVar(&dryRun, "dry-run", false, "print what would be loaded without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logr.Sync() }()
	sugar := logr.Sugar()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	seed := repository.NewSeedDataset()
	stations := seed.Stations()
	if station != "" {
		stations = []string{station}
	}

	if dryRun {
		for _, stationID := range stations {
			docs, err := seed.ListByStation(ctx, stationID)
			if err != nil {
				sugar.Fatalw("seed lookup failed", "station", stationID, "error", err)
			}
			sugar.Infow("would load station", "station", stationID, "documents", len(docs))
		}
		return
	}

	db, err := database.OpenDataset(ctx, cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	repo := repository.NewStatutoryRepository(db, nil)
	for _, stationID := range stations {
		docs, err := seed.ListByStation(ctx, stationID)
		if err != nil {
			sugar.Fatalw("seed lookup failed", "station", stationID, "error", err)
		}
		if err := repo.UpsertDocuments(ctx, docs); err != nil {
			sugar.Fatalw("failed to load documents", "station", stationID, "error", err)
		}
		stats, err := seed.StationStatistics(ctx, stationID)
		if err != nil {
			sugar.Fatalw("seed statistics failed", "station", stationID, "error", err)
		}
		if err := repo.UpsertStationStatistics(ctx, stationID, stats); err != nil {
			sugar.Fatalw("failed to load statistics", "station", stationID, "error", err)
		}
		sugar.Infow("station loaded", "station", stationID, "documents", len(docs))
	}
}
