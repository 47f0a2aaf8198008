package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"go-link-shortener/config"
	"go-link-shortener/handlers"
	"go-link-shortener/kv"
	"go-link-shortener/metrics"
	"go-link-shortener/observer"
	"go-link-shortener/services"
	"go-link-shortener/storage"
	"go-link-shortener/urlgen"
	"go-link-shortener/validation"
)

// Core is the shortener wired over its configured backend. The CLI and the
// HTTP server both drive it.
type Core struct {
	Service  services.URLService
	Store    storage.Store
	Observer *observer.Memory
	Metrics  *metrics.Metrics

	backend kv.KeyValue
}

// NewCore opens the configured key-value backend and wires the store,
// allocator and service on top of it. m may be nil.
func NewCore(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Core, error) {
	const op = "server.NewCore"

	backend, err := kv.Open(ctx, cfg.Storage.Driver, cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	obs := observer.NewMemory(logger, cfg.Observer.MaxEntries)
	store := storage.NewCollectionStore(backend, cfg.Storage.Key, obs)
	allocator := urlgen.NewAllocator(store,
		urlgen.WithLength(cfg.Shortener.CodeLength),
		urlgen.WithMaxAttempts(cfg.Shortener.MaxAttempts),
		urlgen.WithReserved(handlers.ReservedShortcodes...),
		urlgen.WithObserver(obs),
	)
	service := services.NewURLService(store, allocator, validation.New(obs),
		services.WithBaseURL(cfg.Shortener.BaseURL),
		services.WithDefaultValidity(cfg.Shortener.DefaultValidityMinutes),
		services.WithMaxBatchSize(cfg.Shortener.MaxBatchSize),
		services.WithObserver(obs),
		services.WithMetrics(m),
		services.WithReservedShortcodes(handlers.ReservedShortcodes...),
	)

	logger.Debug("Core initialized",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("path", cfg.Storage.Path))

	return &Core{
		Service:  service,
		Store:    store,
		Observer: obs,
		Metrics:  m,
		backend:  backend,
	}, nil
}

// Close releases the key-value backend.
func (c *Core) Close() error {
	return c.backend.Close()
}
