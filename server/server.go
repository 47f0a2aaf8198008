// Package server wires the shortener together and runs its HTTP surface.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-link-shortener/config"
	"go-link-shortener/handlers"
	"go-link-shortener/metrics"
	"go-link-shortener/useragent"
)

// Run serves the HTTP surface until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	core, err := NewCore(ctx, cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	urlHandler, err := setupURLHandler(ctx, cfg, core, logger)
	if err != nil {
		return err
	}

	router := setupRouter(ctx, urlHandler, cfg, logger)
	srv := setupServer(ctx, cfg, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
			return err
		}
		logger.Debug("Server stopped")
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv, cfg, logger)
	})

	return g.Wait()
}

func setupURLHandler(ctx context.Context, cfg *config.Config, core *Core, logger *zap.Logger) (handlers.URLHandlerInterface, error) {
	handlerCtx, cancel := context.WithTimeout(ctx, cfg.Server.RequestTimeout)
	defer cancel()

	devices, err := newDeviceParser(cfg, logger)
	if err != nil {
		logger.Error("Failed to create User-Agent parser", zap.Error(err))
		return nil, err
	}

	handler, err := handlers.NewURLHandler(handlerCtx, core.Service, cfg, logger,
		handlers.WithLogSource(core.Observer),
		handlers.WithMetrics(core.Metrics),
		handlers.WithDeviceParser(devices),
	)
	if err != nil {
		logger.Error("Failed to create URL handler", zap.Error(err))
		return nil, err
	}

	logger.Debug("URL handler created successfully")
	return handler, nil
}

// newDeviceParser loads the configured regexes file, or the bundled rules when none is set.
func newDeviceParser(cfg *config.Config, logger *zap.Logger) (*useragent.Parser, error) {
	if cfg.UserAgent.RegexesPath == "" {
		return useragent.New(logger), nil
	}
	return useragent.NewFromFile(cfg.UserAgent.RegexesPath, logger)
}

func setupRouter(ctx context.Context, urlHandler handlers.URLHandlerInterface, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(logger))
	handlers.RegisterRoutes(ctx, router, urlHandler, cfg)
	return router
}

func setupServer(ctx context.Context, cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.RequestTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
}

func shutdown(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Initiating server shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server gracefully stopped")
	return nil
}
