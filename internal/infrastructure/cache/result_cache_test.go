package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retaildw/internal/core/types"
	"retaildw/internal/domain/analytics"
)

// fakeRedis implements the handful of commands ResultCache issues.
type fakeRedis struct {
	redis.Cmdable
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func TestResultCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	c := NewResultCache(rdb, "", time.Minute)

	var got []analytics.DailySales
	gen, hit, err := c.Get(ctx, "daily|*..*", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []analytics.DailySales{{
		Date:       time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		TotalSales: types.MustMoney("2000.50"),
	}}
	require.NoError(t, c.Set(ctx, gen, "daily|*..*", want))

	_, hit, err = c.Get(ctx, "daily|*..*", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.True(t, got[0].Date.Equal(want[0].Date))
	assert.True(t, got[0].TotalSales.Equal(want[0].TotalSales))

	for key, ttl := range rdb.ttls {
		assert.Equal(t, time.Minute, ttl, key)
	}
}

func TestResultCache_InvalidateHidesOlderEntries(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache(newFakeRedis(), "test", time.Minute)

	var got map[string]int
	gen, _, err := c.Get(ctx, "summary", &got)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, gen, "summary", map[string]int{"lines": 3}))
	require.NoError(t, c.Invalidate(ctx))

	gen, hit, err := c.Get(ctx, "summary", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, analytics.Generation(1), gen)

	require.NoError(t, c.Set(ctx, gen, "summary", map[string]int{"lines": 4}))
	_, hit, err = c.Get(ctx, "summary", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, got["lines"])
}

func TestResultCache_WriteAfterInvalidateStaysRetired(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache(newFakeRedis(), "test", time.Minute)

	var got string
	gen, hit, err := c.Get(ctx, "daily", &got)
	require.NoError(t, err)
	require.False(t, hit)

	// The load commits before the query that missed writes its result.
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, "daily", "pre-load"))

	_, hit, err = c.Get(ctx, "daily", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, got)
}

func TestResultCache_KeysAreNamespaced(t *testing.T) {
	c := NewResultCache(newFakeRedis(), "dw", time.Minute)

	a := c.entryKey(0, "top-products|5")
	b := c.entryKey(0, "top-products|6")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^dw:0:[0-9a-f]{16}$`, a)
	assert.Equal(t, "dw:1:"+a[len("dw:0:"):], c.entryKey(1, "top-products|5"))
	assert.Equal(t, "dw:generation", c.generationKey())
}

func TestResultCache_BackendErrorIsReturned(t *testing.T) {
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection refused")
	c := NewResultCache(rdb, "", time.Minute)

	var got []analytics.DailySales
	_, hit, err := c.Get(context.Background(), "daily", &got)
	assert.Error(t, err)
	assert.False(t, hit)
}
