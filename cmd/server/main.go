// Package main is the entry point for the retail warehouse API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"retaildw/internal/app"
	"retaildw/internal/config"
	v1 "retaildw/internal/infrastructure/http/v1"
	"retaildw/internal/infrastructure/http/v1/handlers"
	"retaildw/internal/infrastructure/storage/postgres"
	"retaildw/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(logger.WithLogger(context.Background(), log), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting retaildw server", "env", cfg.Env, "cache", cfg.CacheEnabled())

	a, err := app.New(ctx, cfg, false)
	if err != nil {
		log.Fatalw("failed to initialize", "error", err)
	}
	defer a.Close()
	postgres.LogPoolStats(ctx, a.Pool.Unwrap())

	health := handlers.NewHealthHandler(a.Pool, version)
	if a.Redis != nil {
		health.AddCheck("cache", a.PingRedis)
		if err := a.StartLoadListener(ctx); err != nil {
			log.Warnw("load listener not started; cache relies on TTL for external loads", "error", err)
		}
	}

	router := v1.NewRouter(v1.RouterConfig{
		Analytics: a.Analytics,
		Loads:     a.Loader,
		Health:    health,
		Logger:    log,
		Debug:     cfg.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.QueryTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
