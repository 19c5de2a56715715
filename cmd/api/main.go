package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lane-inventory/internal/cache"
	"lane-inventory/internal/config"
	"lane-inventory/internal/model"
	"lane-inventory/internal/router"
	"lane-inventory/internal/ws"
	"lane-inventory/pkg/database"
	"lane-inventory/pkg/logger"
	"lane-inventory/pkg/telemetry"
)

var version = "dev"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Init("lane-inventory", true, "info")
		logger.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.AppName, !cfg.IsProduction(), cfg.LogLevel)
	log := logger.Logger

	// 2. Tracing (exported only when OTEL_EXPORTER_OTLP_ENDPOINT is set)
	tel, err := telemetry.Init(context.Background(), cfg.AppName, version, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}

	// 3. Setup Database
	dbOpts := database.DefaultOptions()
	dbOpts.Debug = cfg.LogLevel == "debug"
	db, err := database.Connect(cfg.DSN(), log, dbOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// 4. Report cache: Redis when configured, otherwise reports are computed on every request
	var reportCache cache.ReportCache = cache.NoopReportCache{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisReportCache(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, report caching disabled")
			_ = rc.Close()
		} else {
			reportCache = rc
			defer rc.Close()
			log.Info().Dur("ttl", cfg.ReportCacheTTL).Msg("report cache enabled")
		}
		cancel()
	}

	// 5. Setup WebSocket Hub
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	// 6. Wiring and routes
	app := router.New(cfg, router.Infra{DB: db, Cache: reportCache, Hub: wsHub})

	// 7. Graceful Shutdown
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	// Stopping the hub first closes open websockets so their handlers return
	// and Fiber can drain.
	stop()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("telemetry shutdown failed")
	}
	cancel()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
