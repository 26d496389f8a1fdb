// -- cmd/provider.go --
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/halcyonsec/vantage/internal/artifacts"
	"github.com/halcyonsec/vantage/internal/config"
	"github.com/halcyonsec/vantage/internal/engine"
	"github.com/halcyonsec/vantage/internal/observability"
	"github.com/halcyonsec/vantage/internal/poller"
	"github.com/halcyonsec/vantage/internal/reportcache"
	"github.com/halcyonsec/vantage/internal/service"
	"github.com/halcyonsec/vantage/internal/store"
)

// serviceProvider assembles the Service and its dependencies. Injecting it
// into commands lets tests substitute an in-memory assembly without touching
// the flag surface. The returned cleanup must be called when the command is
// done with the service.
type serviceProvider func(ctx context.Context, cfg config.Interface) (*service.Service, func(), error)

// NewServiceProvider returns the production provider: a pgx pool against the
// configured database, filesystem artifact storage, and an engine status
// client when one is configured.
func NewServiceProvider() serviceProvider {
	return func(ctx context.Context, cfg config.Interface) (*service.Service, func(), error) {
		logger := observability.GetLogger()

		dbURL := cfg.Database().URL
		if dbURL == "" {
			return nil, nil, fmt.Errorf("database.url is not configured")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		st, err := store.New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		cache := reportcache.New(pool, logger)
		storage, err := artifacts.NewStorage(cfg.Reports().OutputDir, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		var statusClient poller.StatusClient
		if engineCfg := cfg.Engine(); engineCfg.BaseURL != "" {
			client, err := engine.NewClient(engineCfg.BaseURL, engineCfg.Timeout, logger)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			statusClient = client
		}

		svc := service.New(st, cache, storage, statusClient, cfg, logger)
		cleanup := func() {
			pool.Close()
			logger.Debug("Database pool closed", zap.String("component", "provider"))
		}
		return svc, cleanup, nil
	}
}
