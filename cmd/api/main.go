// Package main is the entry point for the linkforge API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkforge/linkforge/internal/cache"
	"github.com/linkforge/linkforge/internal/codec"
	"github.com/linkforge/linkforge/internal/config"
	"github.com/linkforge/linkforge/internal/database"
	"github.com/linkforge/linkforge/internal/handlers"
	"github.com/linkforge/linkforge/internal/repository"
	"github.com/linkforge/linkforge/internal/server"
	"github.com/linkforge/linkforge/internal/services"
	"github.com/linkforge/linkforge/internal/sweeper"
	"github.com/linkforge/linkforge/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.App.LogLevel).With("service", "linkforge")

	ctx := context.Background()

	// Database is the source of truth; failing to reach it is fatal.
	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrator, err := database.NewMigrator(pool)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if applied > 0 {
		log.Info("applied migrations", "count", applied)
	}

	repo := repository.NewPostgresLinkRepository(pool)

	// The cache is advisory: a missing or unreachable Redis degrades the
	// service to store-only operation instead of failing startup.
	var linkCache *cache.LinkCache
	var redisCache *cache.RedisCache
	if cfg.RedisEnabled() {
		redisCache, err = cache.NewRedisCache(ctx, &cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, running without cache", "error", err.Error())
		} else {
			defer redisCache.Close()
			linkCache = cache.NewLinkCache(redisCache, cache.DefaultKeyPrefix, cfg.Shortener.CacheOpTimeout)
		}
	}

	generator := codec.NewRandomGenerator(cfg.Shortener.CodeLength)

	var populator services.LinkPopulator
	if linkCache != nil {
		populator = linkCache
	}
	linkService := services.NewLinkService(repo, populator, generator, services.Config{
		BaseURL:    cfg.Shortener.BaseURL,
		MaxRetries: cfg.Shortener.MaxRetries,
	}, log)

	linkHandler := handlers.NewLinkHandler(linkService, cfg.Shortener.BaseURL, log)

	srv := server.New(cfg, log, linkHandler)
	srv.HealthHandler().AddCheck("database", func() bool {
		return pool.HealthCheck(ctx) == nil
	})
	if linkCache != nil {
		srv.HealthHandler().AddCheck("cache", func() bool {
			return linkCache.Ping(ctx) == nil
		})
	}

	var sweep *sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		sweep = sweeper.New(repo, cfg.Sweeper.Interval, log)
		sweep.Start()
		log.Info("expiry sweeper started", "interval", cfg.Sweeper.Interval.String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if sweep != nil {
			sweep.Stop()
		}
		return err
	case sig := <-sigCh:
		log.Info("received signal", "signal", sig.String())
	}

	if sweep != nil {
		sweep.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
