package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-link-shortener/services"
	"go-link-shortener/types"
)

// Paths offered to visitors of an unknown or expired short URL.
var recoveryLinks = map[string]string{
	"create":     "/api/v1/shorten",
	"statistics": "/api/v1/urls",
}

// RedirectURL resolves a shortcode, records the click and redirects to the long URL.
func (h *URLHandler) RedirectURL(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Server.RequestTimeout)
	defer cancel()

	shortcode := c.Param("shortcode")
	device := h.devices.DeviceType(c.Request.UserAgent())

	longURL, err := h.service.Resolve(ctx, shortcode, types.Visit{Source: refererHost(c.Request.Referer())})
	if err != nil {
		h.handleRedirectError(c, err, shortcode)
		return
	}

	h.metrics.ObserveClick(device)
	h.logger.Info("Redirecting",
		zap.String("short_url", shortcode),
		zap.String("original_url", longURL),
		zap.String("ip", c.ClientIP()),
		zap.String("device", device))
	c.Redirect(http.StatusFound, longURL)
}

func (h *URLHandler) handleRedirectError(c *gin.Context, err error, shortcode string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		h.logger.Info("Short URL not found", zap.String("short_url", shortcode))
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: shortURLNotFound, Links: recoveryLinks})
	case errors.Is(err, services.ErrExpired):
		h.logger.Info("Short URL expired", zap.String("short_url", shortcode))
		c.JSON(http.StatusGone, types.ErrorResponse{Error: shortURLExpired, Links: recoveryLinks})
	default:
		h.handleError(c, err, "Error retrieving URL")
	}
}

// refererHost returns the host of the Referer header, or "" when absent or unparsable.
func refererHost(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
