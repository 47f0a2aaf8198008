package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-link-shortener/types"
)

// MockURLService is a mock URLService interface
type MockURLService struct {
	mock.Mock
}

func (m *MockURLService) Shorten(ctx context.Context, req types.ShortenRequest) (types.URLRecord, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(types.URLRecord), args.Error(1)
}

func (m *MockURLService) ShortenBatch(ctx context.Context, reqs []types.ShortenRequest) ([]types.ShortenResult, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ShortenResult), args.Error(1)
}

func (m *MockURLService) Resolve(ctx context.Context, shortcode string, visit types.Visit) (string, error) {
	args := m.Called(ctx, shortcode, visit)
	return args.String(0), args.Error(1)
}

func (m *MockURLService) ListAll(ctx context.Context) ([]types.URLRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.URLRecord), args.Error(1)
}

func (m *MockURLService) Stats(ctx context.Context) ([]types.URLStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.URLStats), args.Error(1)
}
