// Package app wires configuration into the use cases shared by the server
// and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/wekeepgrowing/medvoa-backend/internal/adapter/cache"
	"github.com/wekeepgrowing/medvoa-backend/internal/config"
	"github.com/wekeepgrowing/medvoa-backend/internal/domain/provider"
	"github.com/wekeepgrowing/medvoa-backend/internal/entitlement"
	redisclient "github.com/wekeepgrowing/medvoa-backend/internal/infrastructure/cache"
	"github.com/wekeepgrowing/medvoa-backend/internal/infrastructure/database"
	providerFactory "github.com/wekeepgrowing/medvoa-backend/internal/infrastructure/provider"
	"github.com/wekeepgrowing/medvoa-backend/internal/usage"
	"github.com/wekeepgrowing/medvoa-backend/internal/usecase"
	"github.com/wekeepgrowing/medvoa-backend/pkg/messaging"
	"go.uber.org/zap"
)

// App holds the wired dependencies of one process
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Repos        *database.Repositories
	Redis        *redis.Client
	Billing      provider.BillingProvider
	Tables       *entitlement.Tables
	UsageStore   usage.Store
	Query        *usecase.SubscriptionQueryService
	Entitlements *usecase.EntitlementService
	Processor    *usecase.WebhookProcessor
}

// Build connects every configured dependency. Redis is optional: without it
// usage counters live in process memory and nothing is cached or published.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	tables, err := entitlement.LoadTables(cfg.Entitlements.TablesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load entitlement tables: %w", err)
	}
	a.Tables = tables

	location, err := usage.LoadLocation(cfg.Entitlements.Timezone)
	if err != nil {
		return nil, err
	}

	a.Billing, err = providerFactory.NewFactory(cfg, logger).GetProvider(provider.ProviderTypeStripe)
	if err != nil {
		return nil, err
	}

	a.Repos, err = database.OpenRepositories(cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		queryOpts     []usecase.QueryOption
		processorOpts []usecase.ProcessorOption
	)
	a.UsageStore = usage.NewMemoryStore()

	if cfg.Redis.Enabled() {
		a.Redis, err = redisclient.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		snapshots := cache.NewRedisSnapshotCache(a.Redis, cfg.Entitlements.SnapshotFreshness)
		queryOpts = append(queryOpts, usecase.WithQueryCache(snapshots, cfg.Entitlements.SnapshotFreshness))
		processorOpts = append(processorOpts,
			usecase.WithSnapshotCache(snapshots),
			usecase.WithPublisher(messaging.NewRedisPublisher(a.Redis)))
		a.UsageStore = usage.NewRedisStore(a.Redis)
	} else {
		logger.Warn("Redis not configured, usage counters are process-local")
	}

	a.Query = usecase.NewSubscriptionQueryService(a.Repos.Subscribers, a.Billing, logger, queryOpts...)
	a.Entitlements = usecase.NewEntitlementService(a.Query, entitlement.NewResolver(tables), a.UsageStore, location)
	a.Processor = usecase.NewWebhookProcessor(a.Billing, a.Repos.ProcessedEvents, a.Repos.UnitOfWork, logger, processorOpts...)

	return a, nil
}

// RedisPing is a health check for the optional Redis connection
func (a *App) RedisPing(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Ping(ctx).Err()
}

// Close releases the datastore and Redis connections
func (a *App) Close() error {
	var errs []error
	if a.Repos != nil {
		errs = append(errs, a.Repos.Close(a.Logger))
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}
