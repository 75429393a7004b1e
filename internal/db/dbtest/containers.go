//go:build integration

// Package dbtest starts throwaway Postgres and Redis containers for
// integration tests.
package dbtest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wecare-health/wecare/internal/db"
)

// StartPostgres runs postgres:16-alpine, applies the embedded migrations and
// returns a pool plus a cleanup func for TestMain.
func StartPostgres(ctx context.Context) (*pgxpool.Pool, func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "wecare",
			"POSTGRES_PASSWORD": "wecare",
			"POSTGRES_DB":       "wecare_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		terminate()
		return nil, nil, err
	}

	dsn := fmt.Sprintf("postgres://wecare:wecare@%s:%s/wecare_test?sslmode=disable", host, port.Port())
	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{ApplicationName: "wecare-test"})
	if err != nil {
		terminate()
		return nil, nil, err
	}

	if _, err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		terminate()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

// Truncate empties every application table between tests.
func Truncate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE event_logs, nurse_reviews, appointments, nurse_listings, accounts RESTART IDENTITY CASCADE
	`)
	return err
}

// StartRedis runs redis:7-alpine and returns its address.
func StartRedis(ctx context.Context) (string, func(), error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("start redis container: %w", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return "", nil, err
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		terminate()
		return "", nil, err
	}

	return fmt.Sprintf("%s:%s", host, port.Port()), terminate, nil
}
