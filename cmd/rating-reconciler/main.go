package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wecare-health/wecare/internal/app"
	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/config"
	"github.com/wecare-health/wecare/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel, "rating-reconciler")
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.ReconcileInterval).
		Msg("rating reconciler starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(rootCtx, cfg, logger, "rating-reconciler", false)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a.Appointments, logger)

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reconciler")
			return
		case <-ticker.C:
			runOnce(rootCtx, a.Appointments, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	start := time.Now()
	corrected, err := svc.ReconcileRatings(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("reconcile run failed")
		return
	}
	logger.Info().
		Int("corrected", len(corrected)).
		Dur("elapsed", time.Since(start)).
		Msg("reconcile run complete")
}
