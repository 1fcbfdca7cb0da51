// Package app wires the warehouse components from a Config. The server and
// the seed command share it so both see the same storage, cache and loader.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"retaildw/internal/config"
	"retaildw/internal/domain/analytics"
	"retaildw/internal/domain/dimension"
	"retaildw/internal/domain/fact"
	"retaildw/internal/domain/loader"
	"retaildw/internal/infrastructure/cache"
	"retaildw/internal/infrastructure/storage/postgres"
	"retaildw/internal/infrastructure/storage/postgres/analytics_repo"
	"retaildw/internal/infrastructure/storage/postgres/dimension_repo"
	"retaildw/internal/infrastructure/storage/postgres/fact_repo"
	"retaildw/pkg/logger"
	"retaildw/pkg/numerator"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Catalog   *dimension.Catalog
	Analytics *analytics.Service
	Loader    *loader.Loader

	// Redis and Cache are nil when the result cache is disabled.
	Redis *redis.Client
	Cache *cache.ResultCache

	listener *cache.LoadListener
}

// New connects to Postgres (and Redis when configured), bootstraps the
// schema unless reset is requested, and wires the services.
func New(ctx context.Context, cfg *config.Config, resetSchema bool) (*App, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.ApplicationName = cfg.DBAppName

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a := &App{Config: cfg, Pool: pool}

	if resetSchema {
		err = postgres.ResetSchema(ctx, pool)
	} else {
		err = postgres.EnsureSchema(ctx, pool)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	if cfg.CacheEnabled() {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.Redis = rdb
		a.Cache = cache.NewResultCache(rdb, cache.DefaultPrefix, cfg.CacheTTL)
		logger.Info(ctx, "result cache enabled", "ttl", cfg.CacheTTL)
	}

	a.TxManager = postgres.NewTxManager(pool, cfg.QueryTimeout)
	runs, err := postgres.NewLoadRunLog(a.TxManager)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Catalog = dimension.NewCatalog(dimension_repo.NewRepo(a.TxManager))
	ids := numerator.NewWithQuerierFunc(func(ctx context.Context) numerator.Querier {
		return a.TxManager.GetQuerier(ctx)
	})

	deps := loader.Deps{
		TxManager:      a.TxManager.ForLoads(),
		Catalog:        a.Catalog,
		Facts:          fact.NewStore(fact_repo.NewRepo(a.TxManager), a.Catalog),
		Runs:           runs,
		TransactionIDs: ids.Sequence(numerator.TransactionConfig(), numerator.RangeOptions(cfg.TxIDRange)),
	}
	var resultCache analytics.ResultCache
	if a.Cache != nil {
		deps.Cache = a.Cache
		resultCache = a.Cache
	}
	a.Loader = loader.NewLoader(deps, loader.Options{Timeout: cfg.LoadTimeout})

	a.Analytics = analytics.NewService(analytics_repo.NewRepo(a.TxManager), a.TxManager, resultCache, analytics.Options{
		BrowseDefaultLimit:   cfg.BrowseDefaultLimit,
		BrowseMaxLimit:       cfg.BrowseMaxLimit,
		DashboardParallelism: cfg.DashboardParallelism,
	})

	return a, nil
}

// StartLoadListener invalidates the result cache whenever another process
// commits a load. It is a no-op without a cache.
func (a *App) StartLoadListener(ctx context.Context) error {
	if a.Cache == nil {
		return nil
	}
	a.listener = cache.NewLoadListener(a.Pool.Unwrap(), postgres.LoadCompletedChannel)
	a.listener.OnLoad(a.Cache)
	return a.listener.Start(ctx)
}

// PingRedis checks the cache backend.
func (a *App) PingRedis(ctx context.Context) error {
	return a.Redis.Ping(ctx).Err()
}

// Close releases every connection.
func (a *App) Close() {
	if a.listener != nil {
		a.listener.Stop()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
