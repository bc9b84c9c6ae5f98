// Package main is the entry point for the quantum-vs-classical portfolio optimizer.
// It serves the optimization API, records every run and optionally
// optimizes a watchlist on a schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/quantum-portfolio/internal/config"
	"github.com/aristath/quantum-portfolio/internal/di"
	"github.com/aristath/quantum-portfolio/internal/server"
	"github.com/aristath/quantum-portfolio/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// main is the application entry point:
// 1. Loads configuration from the environment (.env supported)
// 2. Initializes logging and installs it as the global logger
// 3. Wires all dependencies via the DI container
// 4. Starts the HTTP server and the scheduler
// 5. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("version", version).
		Str("mode", cfg.Pipeline.Mode).
		Str("data_dir", cfg.DataDir).
		Msg("Starting portfolio optimizer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		Version:        version,
		RequestTimeout: cfg.Pipeline.Timeout + 10*time.Second,
		Optimizer:      container.RunService,
		Runs:           container.RunRepo,
		Prices:         container.YahooClient,
		Bus:            container.EventBus,
		Database:       container.HistoryDB,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()
	if container.Jobs.WatchlistJob != nil {
		log.Info().
			Str("schedule", cfg.Schedule.Cron).
			Strs("assets", cfg.Schedule.Assets).
			Msg("Watchlist optimization scheduled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()

	// Waits for a running watchlist optimization to finish
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
