// Package app assembles the offer service components from configuration.
// Both the HTTP server and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/seaward/offer-service/config"
	"github.com/seaward/offer-service/internal/database"
	"github.com/seaward/offer-service/internal/filter"
	apphttp "github.com/seaward/offer-service/internal/http"
	"github.com/seaward/offer-service/internal/itinerary"
	"github.com/seaward/offer-service/internal/pricing"
	"github.com/seaward/offer-service/internal/rowstate"
	"github.com/seaward/offer-service/internal/sailings"
	"github.com/seaward/offer-service/internal/storage"
)

// App holds the wired components
type App struct {
	Store     storage.BlobStore
	Cache     *itinerary.Cache
	Hidden    *filter.HiddenGroups
	Rendered  *rowstate.Table
	Estimator *pricing.Estimator
	Resolver  *filter.Resolver
	Pipeline  *filter.Pipeline

	closers []func() error
}

// Build opens storage, loads the persisted cache and hidden groups, and wires the
// filter pipeline. searcher may be nil to use the configured sailing API.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, searcher sailings.Searcher) (*App, error) {
	a := &App{}

	opts := storage.Options{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BadgerPath: cfg.Storage.BadgerPath,
		Table:      cfg.Storage.Table,
	}
	if storage.StorageType(cfg.Storage.Type) == storage.StorageTypePostgres {
		if err := database.Connect(
			ctx,
			cfg.Database.URL,
			cfg.Database.MaxConnections,
			cfg.Database.MinConnections,
			cfg.Database.MaxConnLifetime,
			cfg.Database.MaxConnIdleTime,
		); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, func() error { database.Close(); return nil })

		if err := database.Migrate(ctx, database.Pool(), cfg.Storage.Table); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to migrate storage table: %w", err)
		}
		opts.Pool = database.Pool()
		logger.Info().Msg("Database connected")
	}

	store, closeStore, err := storage.Open(opts)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	if searcher == nil {
		client := apphttp.NewClient(cfg.SailingAPI.RateLimitConfig(), cfg.SailingAPI.Timeout)
		searcher = sailings.NewClient(cfg.SailingAPI.BaseURL, client, logger)
	}

	a.Cache = itinerary.New(store, searcher, itinerary.Options{
		StalenessWindow: cfg.Hydration.StalenessWindow,
		Concurrency:     cfg.Hydration.Concurrency,
		Logger:          logger,
	})
	if err := a.Cache.EnsureLoaded(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to load itinerary cache: %w", err)
	}

	a.Hidden, err = filter.NewHiddenGroups(store, filter.HiddenOptions{
		MemoSize: cfg.Filter.HiddenMemoSize,
		Logger:   logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.Hidden.EnsureLoaded(ctx); err != nil {
		// the pipeline retries and skips hidden filtering while the store is unavailable
		logger.Warn().Err(err).Msg("Failed to load hidden groups")
	}

	a.Rendered = rowstate.NewTable()
	a.Estimator = pricing.NewEstimator(a.Rendered)
	a.Resolver = filter.NewResolver(a.Cache, a.Estimator, rowstate.TableDepth{Table: a.Rendered})
	a.Pipeline = filter.NewPipeline(a.Resolver, a.Hidden, logger)

	stats := a.Cache.Stats()
	logger.Info().
		Str("storage", cfg.Storage.Type).
		Int("entries", stats.Entries).
		Int("ships", stats.Ships).
		Int("hidden_rules", len(a.Hidden.List())).
		Msg("Offer service components ready")

	return a, nil
}

// Close releases storage and database handles in reverse order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
