package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-link-shortener/types"
)

const (
	cleanupInterval   = time.Minute
	clientInactiveFor = 3 * time.Minute
)

// client is one visitor IP with its limiter.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CORSMiddleware adds CORS headers to the response.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// RateLimitMiddleware allows each client IP RateLimit requests per RatePeriod,
// answering 429 Too Many Requests beyond that. Idle clients are swept until ctx is done.
func (h *URLHandler) RateLimitMiddleware(ctx context.Context) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	limit := rate.Limit(float64(h.config.Server.RateLimit) / h.config.Server.RatePeriod.Seconds())
	burst := h.config.Server.RateLimit

	go h.cleanupInactiveClients(ctx, &mu, clients, cleanupInterval, clientInactiveFor)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		cl, found := clients[ip]
		if !found {
			cl = &client{limiter: rate.NewLimiter(limit, burst)}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			h.logger.Warn("Rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{Error: "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// cleanupInactiveClients periodically forgets clients that haven't been seen recently.
func (h *URLHandler) cleanupInactiveClients(ctx context.Context, mu *sync.Mutex, clients map[string]*client, interval, inactiveFor time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Stopping rate limiter cleanup")
			return
		case <-ticker.C:
			mu.Lock()
			for ip, cl := range clients {
				if time.Since(cl.lastSeen) > inactiveFor {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()))
	}
}
