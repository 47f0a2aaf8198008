// Package handlers provides HTTP request handlers for the link shortener.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"go-link-shortener/config"
	"go-link-shortener/metrics"
	"go-link-shortener/observer"
	"go-link-shortener/services"
	"go-link-shortener/types"
	"go-link-shortener/useragent"
)

const (
	invalidRequestBody  = "Invalid request body"
	errorShorteningURLs = "Error shortening URLs"
	errorListingURLs    = "Error listing URLs"
	errorTimeout        = "Request timed out"
	shortcodeExists     = "Shortcode is already in use"
	allocationExhausted = "Could not generate a unique shortcode, please try again"
	shortURLNotFound    = "Short URL not found"
	shortURLExpired     = "This short URL has expired"
	storageFailure      = "Storage is unavailable"
	internalServerError = "Internal server error"
)

// URLHandlerInterface defines the methods that a URL handler should implement.
type URLHandlerInterface interface {
	ShortenURLs(c *gin.Context)
	ListURLs(c *gin.Context)
	GetLogs(c *gin.Context)
	HealthCheck(c *gin.Context)
	Metrics(c *gin.Context)
	RedirectURL(c *gin.Context)
	RateLimitMiddleware(ctx context.Context) gin.HandlerFunc
}

// LogSource exposes the retained diagnostic entries.
type LogSource interface {
	Logs() []observer.Entry
}

// URLHandler holds the dependencies of the HTTP surface.
type URLHandler struct {
	service  services.URLService
	validate *validator.Validate
	config   *config.Config
	logger   *zap.Logger
	logs     LogSource
	devices  *useragent.Parser
	metrics  *metrics.Metrics
}

// Option configures optional handler dependencies.
type Option func(*URLHandler)

// WithLogSource enables the diagnostics endpoint.
func WithLogSource(logs LogSource) Option {
	return func(h *URLHandler) { h.logs = logs }
}

// WithDeviceParser sets the parser used to classify visitors.
func WithDeviceParser(p *useragent.Parser) Option {
	return func(h *URLHandler) { h.devices = p }
}

// WithMetrics enables click counters and the metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *URLHandler) { h.metrics = m }
}

// NewURLHandler creates and returns a new URLHandler instance.
func NewURLHandler(ctx context.Context, service services.URLService, cfg *config.Config, logger *zap.Logger, opts ...Option) (URLHandlerInterface, error) {
	if service == nil {
		return nil, errors.New("service cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if !cfg.Server.DisableRateLimit && (cfg.Server.RateLimit <= 0 || cfg.Server.RatePeriod <= 0) {
		return nil, errors.New("invalid rate limit configuration")
	}

	handler := &URLHandler{
		service:  service,
		validate: validator.New(),
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(handler)
	}
	if handler.devices == nil {
		handler.devices = useragent.New(logger)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return handler, nil
}

// handleError maps a service error to a status code and a JSON error body.
func (h *URLHandler) handleError(c *gin.Context, err error, fallback string) {
	var statusCode int
	var errorMessage string

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errorMessage = err.Error()
	case errors.Is(err, services.ErrDuplicateShortcode):
		statusCode = http.StatusConflict
		errorMessage = shortcodeExists
	case errors.Is(err, services.ErrAllocationExhausted):
		statusCode = http.StatusServiceUnavailable
		errorMessage = allocationExhausted
	case errors.Is(err, services.ErrNotFound):
		statusCode = http.StatusNotFound
		errorMessage = shortURLNotFound
	case errors.Is(err, services.ErrExpired):
		statusCode = http.StatusGone
		errorMessage = shortURLExpired
	case errors.Is(err, services.ErrStorageFailure):
		h.logger.Error("Storage failure", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errorMessage = storageFailure
	case errors.Is(err, context.DeadlineExceeded):
		statusCode = http.StatusRequestTimeout
		errorMessage = errorTimeout
	default:
		h.logger.Error("Unexpected error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errorMessage = fallback
		if errorMessage == "" {
			errorMessage = internalServerError
		}
	}

	c.JSON(statusCode, types.ErrorResponse{Error: errorMessage})
}

// ShortenURLs shortens every entry of a batch submission and reports per-entry results.
func (h *URLHandler) ShortenURLs(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Server.RequestTimeout)
	defer cancel()

	var input types.BatchShortenRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Error("Error decoding request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: invalidRequestBody})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		h.logger.Error("Invalid input", zap.Error(err), zap.Int("entries", len(input.URLs)))
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "At least one URL is required"})
		return
	}

	results, err := h.service.ShortenBatch(ctx, input.URLs)
	if err != nil {
		h.handleError(c, err, errorShorteningURLs)
		return
	}

	status := http.StatusOK
	for _, result := range results {
		if result.Record != nil {
			status = http.StatusCreated
			break
		}
	}

	h.logger.Info("Shorten request handled",
		zap.Int("entries", len(results)),
		zap.String("ip", c.ClientIP()))
	c.JSON(status, types.BatchShortenResponse{Results: results})
}

// ListURLs returns every stored short URL with its click statistics.
func (h *URLHandler) ListURLs(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Server.RequestTimeout)
	defer cancel()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.handleError(c, err, errorListingURLs)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetLogs returns the retained diagnostic entries in insertion order.
func (h *URLHandler) GetLogs(c *gin.Context) {
	if h.logs == nil {
		c.JSON(http.StatusOK, []observer.Entry{})
		return
	}
	c.JSON(http.StatusOK, h.logs.Logs())
}
