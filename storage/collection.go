package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"go-link-shortener/kv"
	"go-link-shortener/observer"
	"go-link-shortener/types"
)

// CollectionStore implements Store by keeping every record in one JSON array
// under a single key of a key-value backend.
//
// Each mutation reads the whole collection, changes it and writes the whole
// collection back. The mutex makes that sequence atomic within the process, so
// Insert is an insert-if-absent. Separate processes sharing one backend are
// last-write-wins.
type CollectionStore struct {
	backend kv.KeyValue
	key     string
	mu      sync.Mutex
	obs     observer.Observer
}

// NewCollectionStore creates a store over backend persisting under key.
func NewCollectionStore(backend kv.KeyValue, key string, obs observer.Observer) *CollectionStore {
	if key == "" {
		key = DefaultKey
	}
	if obs == nil {
		obs = observer.Nop{}
	}
	return &CollectionStore{
		backend: backend,
		key:     key,
		obs:     obs,
	}
}

// FindByShortcode returns the record with the given shortcode.
// An unreadable collection is treated as empty.
func (s *CollectionStore) FindByShortcode(ctx context.Context, code string) (types.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.URLRecord{}, err
	}

	records, err := s.load(ctx)
	if err != nil {
		if isContextErr(err) {
			return types.URLRecord{}, err
		}
		s.obs.Log(observer.LevelError, "Failed to get short URL from storage", zap.String("shortcode", code), zap.Error(err))
		return types.URLRecord{}, ErrShortcodeNotFound
	}

	if i := indexOf(records, code); i >= 0 {
		return records[i], nil
	}
	return types.URLRecord{}, ErrShortcodeNotFound
}

// IsAvailable reports whether no record uses code.
// An unreadable collection reports false together with ErrStorageFailure.
func (s *CollectionStore) IsAvailable(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	records, err := s.load(ctx)
	if err != nil {
		if isContextErr(err) {
			return false, err
		}
		s.obs.Log(observer.LevelError, "Failed to check shortcode availability", zap.String("shortcode", code), zap.Error(err))
		return false, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return indexOf(records, code) < 0, nil
}

// Insert appends record unless its shortcode is already taken.
func (s *CollectionStore) Insert(ctx context.Context, record types.URLRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return s.writeFailure(err, "Failed to save short URL to storage", record.Shortcode)
	}

	if indexOf(records, record.Shortcode) >= 0 {
		s.obs.Log(observer.LevelWarn, "Shortcode already exists in storage", zap.String("shortcode", record.Shortcode))
		return ErrShortcodeExists
	}

	if record.ClickData == nil {
		record.ClickData = []types.ClickEvent{}
	}
	records = append(records, record)

	if err := s.save(ctx, records); err != nil {
		return s.writeFailure(err, "Failed to save short URL to storage", record.Shortcode)
	}

	s.obs.Log(observer.LevelInfo, "Short URL saved to storage", zap.String("shortcode", record.Shortcode))
	return nil
}

// ListAll returns every record in insertion order.
// An unreadable collection is treated as empty.
func (s *CollectionStore) ListAll(ctx context.Context) ([]types.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := s.load(ctx)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		s.obs.Log(observer.LevelError, "Failed to get all short URLs from storage", zap.Error(err))
		return []types.URLRecord{}, nil
	}
	return records, nil
}

// RecordClick increments the click count of the record with the given
// shortcode and appends event to its click data.
func (s *CollectionStore) RecordClick(ctx context.Context, code string, event types.ClickEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return s.writeFailure(err, "Failed to record click", code)
	}

	i := indexOf(records, code)
	if i < 0 {
		return ErrShortcodeNotFound
	}

	records[i].ClickData = append(records[i].ClickData, event)
	records[i].Clicks = len(records[i].ClickData)

	if err := s.save(ctx, records); err != nil {
		return s.writeFailure(err, "Failed to record click", code)
	}

	s.obs.Log(observer.LevelDebug, "Click recorded successfully", zap.String("shortcode", code))
	return nil
}

// load reads and decodes the collection. A missing key is an empty collection.
func (s *CollectionStore) load(ctx context.Context) ([]types.URLRecord, error) {
	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return []types.URLRecord{}, nil
		}
		return nil, err
	}

	var records []types.URLRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	if records == nil {
		records = []types.URLRecord{}
	}
	return records, nil
}

func (s *CollectionStore) save(ctx context.Context, records []types.URLRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	return s.backend.Set(ctx, s.key, raw)
}

func (s *CollectionStore) writeFailure(err error, msg, code string) error {
	if isContextErr(err) {
		return err
	}
	s.obs.Log(observer.LevelError, msg, zap.String("shortcode", code), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

func indexOf(records []types.URLRecord, code string) int {
	for i := range records {
		if records[i].Shortcode == code {
			return i
		}
	}
	return -1
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

var _ Store = (*CollectionStore)(nil)
