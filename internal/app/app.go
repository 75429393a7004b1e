// Package app connects the stores and builds the services every binary
// shares.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/config"
	"github.com/wecare-health/wecare/internal/db"
	"github.com/wecare-health/wecare/internal/directory"
	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/metrics"
	redisclient "github.com/wecare-health/wecare/internal/redis"
)

type App struct {
	Config config.Config
	Log    zerolog.Logger

	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *metrics.Metrics

	Identity     *identity.Service
	Directory    *directory.Service
	Appointments *appointment.Service
}

// Open connects Postgres and Redis and wires the services. name identifies
// the binary to Postgres. Migrations run first when migrate is set.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger, name string, migrate bool) (*App, error) {
	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, PoolOptions(cfg, name))
	cancelPg()
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	logger.Info().Msg("connected to Postgres")

	if migrate {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		for _, file := range applied {
			logger.Info().Str("migration", file).Msg("migration applied")
		}
	}

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.ClientOptions{
		Addr:       cfg.RedisAddr,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
		PoolSize:   cfg.RedisPoolSize,
		ClientName: "wecare-" + name,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	m := metrics.New()

	dirSvc := directory.NewService(directory.NewPgRepository(pool), logger)
	idSvc := identity.NewService(identity.NewPgRepository(pool), identity.NewBcryptHasher(cfg.BcryptCost), dirSvc, logger)
	apptSvc := appointment.NewService(
		appointment.NewPgRepository(pool),
		redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		dirSvc,
		idSvc,
		cfg,
		m,
		logger,
	)

	return &App{
		Config:       cfg,
		Log:          logger,
		Pool:         pool,
		Redis:        rdb,
		Metrics:      m,
		Identity:     idSvc,
		Directory:    dirSvc,
		Appointments: apptSvc,
	}, nil
}

// PoolOptions derives the pgx pool settings for the named binary.
func PoolOptions(cfg config.Config, name string) db.PoolOptions {
	return db.PoolOptions{
		ApplicationName: "wecare-" + name,
		MaxConns:        cfg.PostgresMaxConns,
		MinConns:        cfg.PostgresMinConns,
	}
}

func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("error closing redis")
	}
	a.Pool.Close()
}
