package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wecare-health/wecare/internal/api"
	"github.com/wecare-health/wecare/internal/app"
	"github.com/wecare-health/wecare/internal/auth"
	"github.com/wecare-health/wecare/internal/config"
	"github.com/wecare-health/wecare/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel, "api-server")
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Dur("lock_ttl", cfg.LockTTL).
		Bool("strict_pricing", cfg.StrictPricing).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(rootCtx, cfg, logger, "api-server", true)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	redisPing := api.PingFunc(func(ctx context.Context) error {
		return a.Redis.Ping(ctx).Err()
	})

	router := api.NewRouter(api.RouterConfig{
		Appointments: a.Appointments,
		Identity:     a.Identity,
		Directory:    a.Directory,
		Sessions:     auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.SessionCookie, !cfg.IsDev()),
		Health:       api.NewHealthHandler(a.Pool, redisPing, cfg.Env, cfg.Version),
		Metrics:      a.Metrics,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
		a.Close()
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
