package kv

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Memory implements KeyValue with an in-process map.
type Memory struct {
	values map[string][]byte
	mu     sync.RWMutex
	closed bool
	logger *zap.Logger
}

// NewMemory creates an empty in-memory store.
func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		values: make(map[string][]byte),
		logger: logger,
	}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		m.logger.Warn("Get operation cancelled", zap.String("key", key))
		return nil, ctx.Err()
	default:
		m.mu.RLock()
		defer m.mu.RUnlock()

		if m.closed {
			return nil, ErrClosed
		}
		value, exists := m.values[key]
		if !exists {
			return nil, ErrKeyNotFound
		}
		return append([]byte(nil), value...), nil
	}
}

// Set stores a copy of value under key.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	select {
	case <-ctx.Done():
		m.logger.Warn("Set operation cancelled", zap.String("key", key))
		return ctx.Err()
	default:
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.closed {
			return ErrClosed
		}
		m.values[key] = append([]byte(nil), value...)
		m.logger.Debug("Value stored", zap.String("key", key), zap.Int("bytes", len(value)))
		return nil
	}
}

// Close marks the store closed; later calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ KeyValue = (*Memory)(nil)
