package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-link-shortener/kv"
	"go-link-shortener/metrics"
	"go-link-shortener/observer"
	"go-link-shortener/storage"
	"go-link-shortener/storage/mocks"
	"go-link-shortener/types"
	"go-link-shortener/urlgen"
	"go-link-shortener/validation"
)

var generatedPattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)

// fakeClock is a settable clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func minutes(n float64) *float64 { return &n }

// newTestService wires the service over an in-memory collection store.
func newTestService(t *testing.T, opts ...Option) (URLService, storage.Store, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := storage.NewCollectionStore(kv.NewMemory(zap.NewNop()), storage.DefaultKey, nil)
	allocator := urlgen.NewAllocator(store)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewURLService(store, allocator, validation.New(nil), opts...), store, clock
}

func TestShorten(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		service, _, clock := newTestService(t)

		record, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com/path"})

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/path", record.LongURL)
		assert.Regexp(t, generatedPattern, record.Shortcode)
		assert.Equal(t, "http://localhost:3000/"+record.Shortcode, record.ShortURL)
		assert.Equal(t, clock.now, record.Created)
		assert.Equal(t, clock.now.Add(30*time.Minute), record.Expires)
		assert.Equal(t, 0, record.Clicks)
		assert.Empty(t, record.ClickData)
		assert.NotEmpty(t, record.ID)
	})

	t.Run("Custom validity and shortcode", func(t *testing.T) {
		service, store, clock := newTestService(t, WithBaseURL("https://sho.rt/"))

		record, err := service.Shorten(ctx, types.ShortenRequest{
			LongURL:         "https://example.com",
			ValidityMinutes: minutes(90),
			Shortcode:       "MyLink2024",
		})

		require.NoError(t, err)
		assert.Equal(t, "MyLink2024", record.Shortcode)
		assert.Equal(t, "https://sho.rt/MyLink2024", record.ShortURL)
		assert.Equal(t, clock.now.Add(90*time.Minute), record.Expires)

		stored, err := store.FindByShortcode(ctx, "MyLink2024")
		require.NoError(t, err)
		assert.Equal(t, record.ID, stored.ID)
	})

	t.Run("Configured default validity", func(t *testing.T) {
		service, _, clock := newTestService(t, WithDefaultValidity(5))

		record, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com"})

		require.NoError(t, err)
		assert.Equal(t, clock.now.Add(5*time.Minute), record.Expires)
	})

	t.Run("Duplicate custom shortcode", func(t *testing.T) {
		service, _, _ := newTestService(t)

		_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com/1", Shortcode: "abcd"})
		require.NoError(t, err)

		_, err = service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com/2", Shortcode: "abcd"})
		assert.ErrorIs(t, err, ErrDuplicateShortcode)
	})

	t.Run("Invalid input never reaches the store", func(t *testing.T) {
		tests := []struct {
			name string
			req  types.ShortenRequest
		}{
			{"short shortcode", types.ShortenRequest{LongURL: "https://example.com", Shortcode: "ab"}},
			{"symbols in shortcode", types.ShortenRequest{LongURL: "https://example.com", Shortcode: "ab-cd"}},
			{"missing URL", types.ShortenRequest{LongURL: "   "}},
			{"malformed URL", types.ShortenRequest{LongURL: "example.com"}},
			{"zero validity", types.ShortenRequest{LongURL: "https://example.com", ValidityMinutes: minutes(0)}},
			{"negative validity", types.ShortenRequest{LongURL: "https://example.com", ValidityMinutes: minutes(-10)}},
			{"fractional validity", types.ShortenRequest{LongURL: "https://example.com", ValidityMinutes: minutes(2.5)}},
			{"absurd validity", types.ShortenRequest{LongURL: "https://example.com", ValidityMinutes: minutes(1e300)}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := new(mocks.MockStore)
				allocator := urlgen.NewAllocator(store)
				service := NewURLService(store, allocator, validation.New(nil))

				_, err := service.Shorten(ctx, tt.req)

				assert.ErrorIs(t, err, ErrInvalidInput)
				store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
				store.AssertNotCalled(t, "IsAvailable", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("Reserved custom shortcode", func(t *testing.T) {
		service, store, _ := newTestService(t, WithReservedShortcodes("health", "metrics"))

		for _, code := range []string{"health", "metrics"} {
			_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com", Shortcode: code})
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorContains(t, err, "reserved")
		}

		records, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		_, err = service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com", Shortcode: "Health"})
		assert.NoError(t, err)
	})

	t.Run("Allocation exhausted", func(t *testing.T) {
		store := new(mocks.MockStore)
		store.On("IsAvailable", ctx, mock.AnythingOfType("string")).Return(false, nil).Times(5)
		service := NewURLService(store, urlgen.NewAllocator(store), nil)

		_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com"})

		assert.ErrorIs(t, err, ErrAllocationExhausted)
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("Lost insert race", func(t *testing.T) {
		store := new(mocks.MockStore)
		store.On("IsAvailable", ctx, "abcd").Return(true, nil).Once()
		store.On("Insert", ctx, mock.AnythingOfType("types.URLRecord")).Return(storage.ErrShortcodeExists).Once()
		service := NewURLService(store, urlgen.NewAllocator(store), nil)

		_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com", Shortcode: "abcd"})

		assert.ErrorIs(t, err, ErrDuplicateShortcode)
		store.AssertExpectations(t)
	})

	t.Run("Storage failure", func(t *testing.T) {
		store := new(mocks.MockStore)
		store.On("IsAvailable", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()
		store.On("Insert", ctx, mock.AnythingOfType("types.URLRecord")).
			Return(fmt.Errorf("%w: disk full", storage.ErrStorageFailure)).Once()
		service := NewURLService(store, urlgen.NewAllocator(store), nil)

		_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com"})

		assert.ErrorIs(t, err, ErrStorageFailure)
		store.AssertExpectations(t)
	})

	t.Run("Availability check failure", func(t *testing.T) {
		store := new(mocks.MockStore)
		store.On("IsAvailable", ctx, "abcd").Return(false, fmt.Errorf("%w: unreadable", storage.ErrStorageFailure)).Once()
		service := NewURLService(store, urlgen.NewAllocator(store), nil)

		_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com", Shortcode: "abcd"})

		assert.ErrorIs(t, err, ErrStorageFailure)
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("ID generation failure", func(t *testing.T) {
		service, store, _ := newTestService(t, WithIDGenerator(func() (string, error) {
			return "", errors.New("no entropy")
		}))

		_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com"})
		assert.Error(t, err)

		records, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Generated shortcodes are distinct", func(t *testing.T) {
		service, _, _ := newTestService(t)
		seen := make(map[string]bool)

		for i := 0; i < 200; i++ {
			record, err := service.Shorten(ctx, types.ShortenRequest{LongURL: fmt.Sprintf("https://example.com/%d", i)})
			require.NoError(t, err)
			assert.False(t, seen[record.Shortcode], "shortcode %s issued twice", record.Shortcode)
			seen[record.Shortcode] = true
		}
		assert.Len(t, seen, 200)
	})

	t.Run("Diagnostics", func(t *testing.T) {
		obs := observer.NewMemory(zap.NewNop(), 0)
		service, _, _ := newTestService(t, WithObserver(obs))

		_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com"})
		require.NoError(t, err)
		_, err = service.Shorten(ctx, types.ShortenRequest{LongURL: "nope"})
		require.Error(t, err)

		logs := obs.Logs()
		require.Len(t, logs, 2)
		assert.Equal(t, "URL shortened successfully", logs[0].Message)
		assert.Equal(t, observer.LevelError, logs[1].Level)
	})
}

func TestShortenBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Per-item results", func(t *testing.T) {
		service, store, _ := newTestService(t)

		results, err := service.ShortenBatch(ctx, []types.ShortenRequest{
			{LongURL: "https://example.com/a"},
			{LongURL: "not a url"},
			{LongURL: "https://example.com/c", Shortcode: "custom1"},
			{LongURL: "https://example.com/d", Shortcode: "custom1"},
			{LongURL: "https://example.com/e", ValidityMinutes: minutes(-1)},
		})

		require.NoError(t, err)
		require.Len(t, results, 5)

		require.NotNil(t, results[0].Record)
		assert.Empty(t, results[0].Error)

		assert.Nil(t, results[1].Record)
		assert.Contains(t, results[1].Error, "valid URL")

		require.NotNil(t, results[2].Record)
		assert.Equal(t, "custom1", results[2].Record.Shortcode)

		assert.Nil(t, results[3].Record)
		assert.Equal(t, ErrDuplicateShortcode.Error(), results[3].Error)

		assert.Nil(t, results[4].Record)
		assert.Contains(t, results[4].Error, "positive integer")

		records, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("Empty batch", func(t *testing.T) {
		service, _, _ := newTestService(t)

		_, err := service.ShortenBatch(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Too many entries", func(t *testing.T) {
		service, store, _ := newTestService(t)
		reqs := make([]types.ShortenRequest, 6)
		for i := range reqs {
			reqs[i] = types.ShortenRequest{LongURL: fmt.Sprintf("https://example.com/%d", i)}
		}

		_, err := service.ShortenBatch(ctx, reqs)
		assert.ErrorIs(t, err, ErrInvalidInput)

		records, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Configured batch size", func(t *testing.T) {
		service, _, _ := newTestService(t, WithMaxBatchSize(1))

		_, err := service.ShortenBatch(ctx, []types.ShortenRequest{
			{LongURL: "https://example.com/1"},
			{LongURL: "https://example.com/2"},
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		service, _, _ := newTestService(t)
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := service.ShortenBatch(cancelCtx, []types.ShortenRequest{{LongURL: "https://example.com"}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Round trip records one click", func(t *testing.T) {
		service, store, clock := newTestService(t)
		record, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com/path?q=1"})
		require.NoError(t, err)

		clock.now = clock.now.Add(time.Minute)
		longURL, err := service.Resolve(ctx, record.Shortcode, types.Visit{})

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/path?q=1", longURL)

		stored, err := store.FindByShortcode(ctx, record.Shortcode)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Clicks)
		require.Len(t, stored.ClickData, 1)
		assert.Equal(t, clock.now, stored.ClickData[0].Timestamp)
		assert.Equal(t, DefaultSource, stored.ClickData[0].Source)
		assert.Equal(t, DefaultLocation, stored.ClickData[0].Location)
	})

	t.Run("Visit metadata is kept", func(t *testing.T) {
		service, store, _ := newTestService(t)
		record, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com"})
		require.NoError(t, err)

		_, err = service.Resolve(ctx, record.Shortcode, types.Visit{Source: "news.example.org"})
		require.NoError(t, err)

		stored, err := store.FindByShortcode(ctx, record.Shortcode)
		require.NoError(t, err)
		assert.Equal(t, "news.example.org", stored.ClickData[0].Source)
		assert.Equal(t, DefaultLocation, stored.ClickData[0].Location)
	})

	t.Run("Expiry boundary", func(t *testing.T) {
		service, store, clock := newTestService(t)
		record, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com", ValidityMinutes: minutes(1)})
		require.NoError(t, err)

		clock.now = record.Expires.Add(-time.Millisecond)
		_, err = service.Resolve(ctx, record.Shortcode, types.Visit{})
		require.NoError(t, err)

		clock.now = record.Expires.Add(time.Millisecond)
		_, err = service.Resolve(ctx, record.Shortcode, types.Visit{})
		assert.ErrorIs(t, err, ErrExpired)

		stored, err := store.FindByShortcode(ctx, record.Shortcode)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Clicks, "expired resolutions are never counted")
	})

	t.Run("Unknown shortcode", func(t *testing.T) {
		service, store, _ := newTestService(t)
		_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com", Shortcode: "known"})
		require.NoError(t, err)

		_, err = service.Resolve(ctx, "neverMade", types.Visit{})
		assert.ErrorIs(t, err, ErrNotFound)

		records, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 0, records[0].Clicks)
	})

	t.Run("Click persistence failure", func(t *testing.T) {
		store := new(mocks.MockStore)
		record := types.URLRecord{Shortcode: "abcd", LongURL: "https://example.com", Expires: time.Now().Add(time.Hour)}
		store.On("FindByShortcode", ctx, "abcd").Return(record, nil).Once()
		store.On("RecordClick", ctx, "abcd", mock.AnythingOfType("types.ClickEvent")).
			Return(fmt.Errorf("%w: read-only", storage.ErrStorageFailure)).Once()
		service := NewURLService(store, urlgen.NewAllocator(store), nil)

		longURL, err := service.Resolve(ctx, "abcd", types.Visit{})

		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Empty(t, longURL)
		store.AssertExpectations(t)
	})

	t.Run("Click vanished between lookup and record", func(t *testing.T) {
		store := new(mocks.MockStore)
		record := types.URLRecord{Shortcode: "abcd", LongURL: "https://example.com", Expires: time.Now().Add(time.Hour)}
		store.On("FindByShortcode", ctx, "abcd").Return(record, nil).Once()
		store.On("RecordClick", ctx, "abcd", mock.AnythingOfType("types.ClickEvent")).Return(storage.ErrShortcodeNotFound).Once()
		service := NewURLService(store, urlgen.NewAllocator(store), nil)

		_, err := service.Resolve(ctx, "abcd", types.Visit{})

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListAllAndStats(t *testing.T) {
	ctx := context.Background()
	service, _, clock := newTestService(t)

	_, err := service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com/short", ValidityMinutes: minutes(1), Shortcode: "first"})
	require.NoError(t, err)
	_, err = service.Shorten(ctx, types.ShortenRequest{LongURL: "https://example.com/long", ValidityMinutes: minutes(60), Shortcode: "second"})
	require.NoError(t, err)

	first, err := service.ListAll(ctx)
	require.NoError(t, err)
	second, err := service.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "first", first[0].Shortcode)

	clock.now = clock.now.Add(10 * time.Minute)
	stats, err := service.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.True(t, stats[0].Expired)
	assert.False(t, stats[1].Expired)
	assert.Equal(t, "second", stats[1].Shortcode)
}

func TestListAllError(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockStore)
	store.On("ListAll", ctx).Return(nil, context.DeadlineExceeded).Once()
	service := NewURLService(store, urlgen.NewAllocator(store), nil)

	_, err := service.ListAll(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	store.On("ListAll", ctx).Return(nil, context.DeadlineExceeded).Once()
	_, err = service.Stats(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, metrics.OutcomeCreated},
		{invalidInput("x"), metrics.OutcomeInvalidInput},
		{ErrDuplicateShortcode, metrics.OutcomeDuplicate},
		{ErrAllocationExhausted, metrics.OutcomeExhausted},
		{ErrNotFound, metrics.OutcomeNotFound},
		{ErrExpired, metrics.OutcomeExpired},
		{ErrStorageFailure, metrics.OutcomeStorageFailure},
		{errors.New("other"), metrics.OutcomeUnexpected},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, outcome(tt.err, metrics.OutcomeCreated))
	}
}

func TestHandleStorageError(t *testing.T) {
	assert.Equal(t, ErrDuplicateShortcode, handleStorageError(storage.ErrShortcodeExists))
	assert.Equal(t, ErrNotFound, handleStorageError(storage.ErrShortcodeNotFound))
	assert.Equal(t, ErrStorageFailure, handleStorageError(fmt.Errorf("%w: boom", storage.ErrStorageFailure)))
	assert.Equal(t, ErrAllocationExhausted, handleStorageError(fmt.Errorf("op: %w", urlgen.ErrAllocationExhausted)))
	assert.Equal(t, context.Canceled, handleStorageError(context.Canceled))
}
