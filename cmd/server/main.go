// Package main is the entry point for the capital ledger and return analytics engine.
// It serves project exposure, fee breakdowns and investor returns computed on demand
// from the capital transaction log in ledger.db.
//
// The application follows the layered structure used throughout:
// - Repository pattern for data access (read-only over ledger.db)
// - Pure computation packages (exposure, fees, xirr) with no infrastructure dependencies
// - Service layer assembling views from one dataset fetch per request
// - HTTP handlers for API endpoints
// - Dependency injection via DI container
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siteledger/capital/internal/config"
	"github.com/siteledger/capital/internal/di"
	"github.com/siteledger/capital/internal/scheduler"
	"github.com/siteledger/capital/internal/server"
	"github.com/siteledger/capital/pkg/logger"
)

// main is the application entry point. It orchestrates the startup sequence:
// 1. Loads configuration from environment variables (and the optional fee policy file)
// 2. Initializes logging
// 3. Wires all dependencies via DI container (ledger database, repository, service, jobs)
// 4. Starts the scheduler and the HTTP server
// 5. Waits for shutdown signal and performs graceful shutdown
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Pretty console output in dev mode, JSON lines otherwise
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("platform_fee_rate", cfg.DefaultTerms.PlatformFeeRate.String()).
		Str("platform_fee_cap", cfg.DefaultTerms.PlatformFeeCap.String()).
		Str("participation_fee_rate_daily", cfg.DefaultTerms.ParticipationFeeRateDaily.String()).
		Msg("Starting capital ledger engine")

	sched := scheduler.New(log)

	// Wire all dependencies using DI container
	container, jobs, err := di.Wire(cfg, log, sched)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// The ledger database must be closed so the WAL is checkpointed
	defer container.Close()

	// Populate platform gauges before the first scheduled tick
	if err := sched.RunNow(jobs.RefreshPlatformSnapshot); err != nil {
		log.Warn().Err(err).Msg("Initial platform snapshot failed")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop scheduler first so no job runs against a closing database
	sched.Stop()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
