// Package storage provides the URL record store and its common errors.
package storage

import (
	"context"
	"errors"

	"go-link-shortener/types"
)

// Common errors returned by storage operations.
var (
	ErrShortcodeExists   = errors.New("shortcode already exists")
	ErrShortcodeNotFound = errors.New("shortcode not found")
	ErrStorageFailure    = errors.New("storage failure")
)

// DefaultKey is the key the URL collection is persisted under.
const DefaultKey = "shortenedUrls"

// Store is the sole query and mutation contract over the persisted URL records.
// Every call re-reads the authoritative collection; callers never hold records across calls.
type Store interface {
	FindByShortcode(ctx context.Context, code string) (types.URLRecord, error)
	IsAvailable(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, record types.URLRecord) error
	ListAll(ctx context.Context) ([]types.URLRecord, error)
	RecordClick(ctx context.Context, code string, event types.ClickEvent) error
}
