package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/AngelCh415/strategy-engine/internal/analytics"
	"github.com/AngelCh415/strategy-engine/internal/config"
	"github.com/AngelCh415/strategy-engine/internal/ingest"
	"github.com/AngelCh415/strategy-engine/internal/store"
	"github.com/AngelCh415/strategy-engine/internal/strategy"
	"github.com/AngelCh415/strategy-engine/internal/telemetry"
)

// app is everything a subcommand needs, built once from config.
type app struct {
	cfg        config.Config
	log        *slog.Logger
	store      store.MetricsStore
	strategies *strategy.Service
	collector  *ingest.Collector
	telemetry  *telemetry.Metrics
	closers    []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", slog.String("err", err.Error()))
		}
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "engine",
		Short:        "Marketing strategy engine: analyze ad metrics and generate strategy recommendations",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newGenerateCmd(), newIngestCmd())
	return root
}

func buildApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	a := &app{cfg: cfg, log: logger, telemetry: telemetry.New()}

	var st store.MetricsStore
	if cfg.DatabaseURL != "" {
		db, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		st = store.NewPostgresStore(db)
		logger.Info("using postgres store")
	} else {
		st = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		a.closers = append(a.closers, rdb.Close)
		st = store.NewCachedStore(st, rdb, cfg.CacheTTL, logger)
		logger.Info("redis cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	}
	a.store = st

	analysis := analytics.NewService(st, logger)
	a.strategies = strategy.NewService(st, analysis, logger,
		strategy.WithMetrics(a.telemetry),
		strategy.WithPersist(cfg.SaveStrategies))

	if w, ok := st.(store.MeasurementWriter); ok && cfg.AdsURL != "" {
		a.collector = ingest.NewCollector(ingest.NewHTTPClient(cfg.HTTPTimeout), w, logger, cfg.AdsURL, a.telemetry)
	}
	return a, nil
}
