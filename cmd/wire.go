package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/collegefinder/internal/adapters/cache"
	"github.com/okian/collegefinder/internal/adapters/http/api"
	"github.com/okian/collegefinder/internal/adapters/http/swagger"
	repository "github.com/okian/collegefinder/internal/adapters/repository"
	app "github.com/okian/collegefinder/internal/app"
	"github.com/okian/collegefinder/internal/config"
	"github.com/okian/collegefinder/pkg/logger"
)

// buildService assembles the service from cfg. The service owns the store
// and the cache and closes them on Stop.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	c, err := openCache(cfg, log)
	if err != nil {
		if closer, ok := store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return nil, err
	}
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithModelPath(cfg.ModelPath),
		app.WithStore(store),
		app.WithCache(c),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
	), nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	seed, err := repository.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	storeLog := log.Named("repository")

	switch cfg.StoreDriver {
	case config.StoreBadger:
		db, err := repository.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, err
		}
		s, err := repository.NewBadgerStore(ctx, db, repository.WithSeed(seed), repository.WithLogger(storeLog))
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed badger store: %w", err)
		}
		log.Info(ctx, "using badger store", logger.String("dir", cfg.BadgerDir))
		return s, nil
	default:
		log.Info(ctx, "using memory store", logger.Int("seed", len(seed)))
		return repository.NewMemoryStore(ctx, repository.WithSeed(seed), repository.WithLogger(storeLog)), nil
	}
}

func openCache(cfg *config.Config, log logger.Logger) (cache.Cache, error) {
	if cfg.RedisURL == "" {
		return cache.Noop{}, nil
	}
	return cache.NewRedisCache(cfg.RedisURL,
		cache.WithTTL(cfg.CacheTTL()),
		cache.WithBreaker(cfg.BreakerMaxFailures, cfg.BreakerTimeout()),
		cache.WithLogger(log.Named("cache")),
	)
}

// newHandler registers the API and documentation routes and wraps them in
// the middleware chain.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	server := api.NewServer(svc, svc,
		api.WithMaxRecommendations(cfg.MaxRecommendations),
		api.WithMaxBatchSize(cfg.MaxBatchSize),
		api.WithCORSOrigins(cfg.Origins()),
		api.WithRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow()),
		api.WithLogger(log.Named("api")),
	)
	server.Register(ctx, mux)
	return server.Handler(mux)
}
