// Package kv provides the raw key-value primitive the URL collection is persisted in.
package kv

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Common errors returned by key-value backends.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("key-value store closed")
)

// Supported backend drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// KeyValue stores opaque values under string keys.
type KeyValue interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases the backend.
	Close() error
}

// Open creates the backend named by driver. path is ignored by the memory driver.
func Open(ctx context.Context, driver, path string, logger *zap.Logger) (KeyValue, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(logger), nil
	case DriverSQLite:
		s, err := NewSQLite(ctx, path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown key-value driver %q", driver)
	}
}
