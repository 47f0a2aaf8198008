package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-link-shortener/types"
)

// MockStore is a mock Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByShortcode(ctx context.Context, code string) (types.URLRecord, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(types.URLRecord), args.Error(1)
}

func (m *MockStore) IsAvailable(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, record types.URLRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStore) ListAll(ctx context.Context) ([]types.URLRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.URLRecord), args.Error(1)
}

func (m *MockStore) RecordClick(ctx context.Context, code string, event types.ClickEvent) error {
	args := m.Called(ctx, code, event)
	return args.Error(0)
}
