package main

import (
	"context"
	"flag"

	"lane-inventory/internal/config"
	"lane-inventory/internal/model"
	"lane-inventory/internal/seed"
	"lane-inventory/pkg/database"
	"lane-inventory/pkg/logger"
)

func main() {
	reset := flag.Bool("reset", false, "delete all existing data before seeding")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Init("lane-inventory-seed", true, "info")
		logger.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.AppName+"-seed", !cfg.IsProduction(), cfg.LogLevel)
	log := logger.Logger

	// 2. Setup Database
	db, err := database.Connect(cfg.DSN(), log, database.DefaultOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// 3. Seed
	ctx := log.WithContext(context.Background())
	res, err := seed.Run(ctx, db, *reset)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	if res.Skipped {
		log.Info().Msg("database already has users, nothing seeded (use -reset to start over)")
		return
	}

	log.Info().
		Int("users", res.Users).
		Int("products", res.Products).
		Int("sales", res.Sales).
		Msg("seeding complete")
	log.Info().Msgf("login with admin@test.com / %s or staff@test.com / %s", seed.DefaultPassword, seed.DefaultPassword)
}
