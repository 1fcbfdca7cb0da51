//go:build integration

package cache_test

// Run with: go test -tags integration ./internal/infrastructure/cache/... -v

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"retaildw/internal/infrastructure/cache"
	"retaildw/internal/infrastructure/storage/postgres"
)

func TestResultCache_Redis(t *testing.T) {
	ctx := context.Background()

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	rdb, err := cache.NewRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	c := cache.NewResultCache(rdb, "it", time.Minute)
	var got []string
	gen, hit, err := c.Get(ctx, "regions", &got)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, c.Set(ctx, gen, "regions", []string{"Jakarta", "Bandung"}))

	_, hit, err = c.Get(ctx, "regions", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"Jakarta", "Bandung"}, got)

	require.NoError(t, c.Invalidate(ctx))
	_, hit, err = c.Get(ctx, "regions", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

type countingInvalidator struct{ calls atomic.Int32 }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestLoadListener_InvalidatesOnNotify(t *testing.T) {
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("retail_dw_test"),
		tcPostgres.WithUsername("retaildw"),
		tcPostgres.WithPassword("retaildw"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	inv := &countingInvalidator{}
	l := cache.NewLoadListener(pool.Unwrap(), postgres.LoadCompletedChannel)
	l.OnLoad(inv)
	require.NoError(t, l.Start(ctx))
	t.Cleanup(l.Stop)

	// LISTEN is issued asynchronously; keep announcing until it is heard.
	assert.Eventually(t, func() bool {
		if _, err := pool.Exec(ctx, "SELECT pg_notify($1, $2)", postgres.LoadCompletedChannel, "run-1"); err != nil {
			return false
		}
		return inv.calls.Load() > 0
	}, 10*time.Second, 200*time.Millisecond)
}
