//go:build integration

package db_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wecare-health/wecare/internal/db"
	"github.com/wecare-health/wecare/internal/db/dbtest"
)

// Replicas starting together must apply each migration exactly once.
func TestMigrate_ConcurrentStartup(t *testing.T) {
	ctx := context.Background()

	pool, cleanup, err := dbtest.StartPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	_, err = pool.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public`)
	require.NoError(t, err)
	// drop connections holding statements prepared against the old tables
	pool.Reset()

	migrations, err := db.LoadMigrations()
	require.NoError(t, err)

	const replicas = 5
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied []string
		errs    []error
	)
	for i := 0; i < replicas; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names, err := db.Migrate(ctx, pool)
			mu.Lock()
			defer mu.Unlock()
			applied = append(applied, names...)
			if err != nil {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Len(t, applied, len(migrations))

	var recorded int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM _migrations`).Scan(&recorded))
	assert.Equal(t, len(migrations), recorded)
}
