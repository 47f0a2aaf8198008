package mocks

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockURLHandler struct {
	mock.Mock
}

func (m *MockURLHandler) ShortenURLs(c *gin.Context) {
	m.Called(c)
}

func (m *MockURLHandler) ListURLs(c *gin.Context) {
	m.Called(c)
}

func (m *MockURLHandler) GetLogs(c *gin.Context) {
	m.Called(c)
}

func (m *MockURLHandler) HealthCheck(c *gin.Context) {
	m.Called(c)
}

func (m *MockURLHandler) Metrics(c *gin.Context) {
	m.Called(c)
}

func (m *MockURLHandler) RedirectURL(c *gin.Context) {
	m.Called(c)
}

func (m *MockURLHandler) RateLimitMiddleware(ctx context.Context) gin.HandlerFunc {
	args := m.Called(ctx)
	return args.Get(0).(gin.HandlerFunc)
}
