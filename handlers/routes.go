package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"go-link-shortener/config"
)

// ReservedShortcodes are root-level paths served by fixed routes; a short URL
// using one of them would never reach RedirectURL.
var ReservedShortcodes = []string{"health", "metrics"}

// RegisterRoutes sets up every route of the HTTP surface and applies CORS
// and, unless disabled, per-IP rate limiting. The limiter's cleanup runs until ctx is done.
func RegisterRoutes(ctx context.Context, r *gin.Engine, handler URLHandlerInterface, cfg *config.Config) {
	r.Use(CORSMiddleware())

	limited := []gin.HandlerFunc{}
	if !cfg.Server.DisableRateLimit {
		limited = append(limited, handler.RateLimitMiddleware(ctx))
	}

	v1 := r.Group("/api/v1", limited...)
	{
		v1.POST("/shorten", handler.ShortenURLs)
		v1.GET("/urls", handler.ListURLs)
		v1.GET("/logs", handler.GetLogs)
	}

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", handler.Metrics)

	// Redirection route (not under /api/v1 as it's user-facing)
	r.GET("/:shortcode", append(limited, handler.RedirectURL)...)
}
