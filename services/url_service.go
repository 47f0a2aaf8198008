package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-link-shortener/metrics"
	"go-link-shortener/observer"
	"go-link-shortener/storage"
	"go-link-shortener/types"
	"go-link-shortener/urlgen"
	"go-link-shortener/validation"
)

// Click tags used when the visit carries no metadata.
const (
	DefaultSource   = "direct"
	DefaultLocation = "Unknown"
)

const (
	defaultBaseURL         = "http://localhost:3000"
	defaultValidityMinutes = 30
	defaultMaxBatchSize    = 5

	maxValidityMinutes = float64(math.MaxInt64 / int64(time.Minute))
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateShortcode  = errors.New("shortcode is already in use")
	ErrAllocationExhausted = errors.New("could not generate a unique shortcode")
	ErrNotFound            = errors.New("short URL not found")
	ErrExpired             = errors.New("this short URL has expired")
	ErrStorageFailure      = errors.New("storage failure")
)

func handleStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrShortcodeExists):
		return ErrDuplicateShortcode
	case errors.Is(err, storage.ErrShortcodeNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrStorageFailure):
		return ErrStorageFailure
	case errors.Is(err, urlgen.ErrAllocationExhausted):
		return ErrAllocationExhausted
	default:
		return err
	}
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// URLService is the operation surface consumed by the CLI and HTTP layers.
type URLService interface {
	Shorten(ctx context.Context, req types.ShortenRequest) (types.URLRecord, error)
	ShortenBatch(ctx context.Context, reqs []types.ShortenRequest) ([]types.ShortenResult, error)
	Resolve(ctx context.Context, shortcode string, visit types.Visit) (string, error)
	ListAll(ctx context.Context) ([]types.URLRecord, error)
	Stats(ctx context.Context) ([]types.URLStats, error)
}

// ShortcodeAllocator produces shortcodes that are free at the time of the call.
type ShortcodeAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

type urlService struct {
	store           storage.Store
	allocator       ShortcodeAllocator
	validator       *validation.Validator
	obs             observer.Observer
	metrics         *metrics.Metrics
	clock           func() time.Time
	newID           func() (string, error)
	baseURL         string
	defaultValidity time.Duration
	maxBatchSize    int
	reserved        map[string]struct{}
}

// Option configures the URL service.
type Option func(*urlService)

// WithClock replaces the wall clock used for creation, expiry and click timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *urlService) { s.clock = clock }
}

// WithBaseURL sets the origin short URLs are built on.
func WithBaseURL(baseURL string) Option {
	return func(s *urlService) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithDefaultValidity sets the validity used when a request omits it.
func WithDefaultValidity(minutes int) Option {
	return func(s *urlService) {
		if minutes > 0 {
			s.defaultValidity = time.Duration(minutes) * time.Minute
		}
	}
}

// WithMaxBatchSize bounds the number of entries in one batch.
func WithMaxBatchSize(n int) Option {
	return func(s *urlService) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithReservedShortcodes rejects custom shortcodes that collide with fixed paths.
func WithReservedShortcodes(codes ...string) Option {
	return func(s *urlService) {
		for _, code := range codes {
			s.reserved[code] = struct{}{}
		}
	}
}

// WithObserver sets the diagnostics sink.
func WithObserver(obs observer.Observer) Option {
	return func(s *urlService) {
		if obs != nil {
			s.obs = obs
		}
	}
}

// WithMetrics enables outcome counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *urlService) { s.metrics = m }
}

// WithIDGenerator replaces the record id source.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *urlService) { s.newID = newID }
}

// NewURLService creates the service over store. Shortcodes are drawn from allocator
// and user input is checked with validator.
func NewURLService(store storage.Store, allocator ShortcodeAllocator, validator *validation.Validator, opts ...Option) URLService {
	s := &urlService{
		store:           store,
		allocator:       allocator,
		validator:       validator,
		obs:             observer.Nop{},
		clock:           func() time.Time { return time.Now().UTC() },
		newID:           urlgen.NewID,
		baseURL:         defaultBaseURL,
		defaultValidity: defaultValidityMinutes * time.Minute,
		maxBatchSize:    defaultMaxBatchSize,
		reserved:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = validation.New(s.obs)
	}
	return s
}

// Shorten validates req, picks or checks the shortcode and stores a new record.
// Nothing is written unless every check passes.
func (s *urlService) Shorten(ctx context.Context, req types.ShortenRequest) (types.URLRecord, error) {
	record, err := s.shorten(ctx, req)
	s.metrics.ObserveShorten(outcome(err, metrics.OutcomeCreated))
	if err != nil {
		s.obs.Log(observer.LevelError, "Failed to shorten URL",
			zap.String("longUrl", req.LongURL),
			zap.String("shortcode", req.Shortcode),
			zap.Error(err))
		return types.URLRecord{}, err
	}

	s.obs.Log(observer.LevelInfo, "URL shortened successfully", zap.String("shortcode", record.Shortcode))
	return record, nil
}

func (s *urlService) shorten(ctx context.Context, req types.ShortenRequest) (types.URLRecord, error) {
	if strings.TrimSpace(req.LongURL) == "" {
		return types.URLRecord{}, invalidInput("URL is required")
	}
	if !s.validator.IsValidURL(req.LongURL) {
		return types.URLRecord{}, invalidInput("please enter a valid URL")
	}

	validity := s.defaultValidity
	if req.ValidityMinutes != nil {
		if !s.validator.IsValidValidityMinutes(*req.ValidityMinutes) || *req.ValidityMinutes > maxValidityMinutes {
			return types.URLRecord{}, invalidInput("validity must be a positive integer number of minutes")
		}
		validity = time.Duration(*req.ValidityMinutes) * time.Minute
	}

	code := req.Shortcode
	if code != "" {
		if !s.validator.IsValidShortcode(code) {
			return types.URLRecord{}, invalidInput("shortcode must be 4-20 alphanumeric characters")
		}
		if _, ok := s.reserved[code]; ok {
			return types.URLRecord{}, invalidInput(fmt.Sprintf("shortcode %q is reserved", code))
		}
		available, err := s.store.IsAvailable(ctx, code)
		if err != nil {
			return types.URLRecord{}, handleStorageError(err)
		}
		if !available {
			return types.URLRecord{}, ErrDuplicateShortcode
		}
	} else {
		var err error
		code, err = s.allocator.Allocate(ctx)
		if err != nil {
			return types.URLRecord{}, handleStorageError(err)
		}
	}

	id, err := s.newID()
	if err != nil {
		return types.URLRecord{}, fmt.Errorf("failed to generate record id: %w", err)
	}

	created := s.clock()
	record := types.URLRecord{
		ID:        id,
		LongURL:   req.LongURL,
		Shortcode: code,
		ShortURL:  s.baseURL + "/" + code,
		Created:   created,
		Expires:   created.Add(validity),
		Clicks:    0,
		ClickData: []types.ClickEvent{},
	}

	if err := s.store.Insert(ctx, record); err != nil {
		return types.URLRecord{}, handleStorageError(err)
	}
	return record, nil
}

// ShortenBatch shortens every entry independently; one failure never aborts the others.
func (s *urlService) ShortenBatch(ctx context.Context, reqs []types.ShortenRequest) ([]types.ShortenResult, error) {
	if len(reqs) == 0 {
		return nil, invalidInput("at least one URL is required")
	}
	if len(reqs) > s.maxBatchSize {
		return nil, invalidInput(fmt.Sprintf("at most %d URLs can be shortened at once", s.maxBatchSize))
	}

	results := make([]types.ShortenResult, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := s.Shorten(ctx, req)
		if err != nil {
			results = append(results, types.ShortenResult{Error: err.Error()})
			continue
		}
		results = append(results, types.ShortenResult{Record: &record})
	}
	return results, nil
}

// Resolve returns the long URL for shortcode and records exactly one click.
// Unknown and expired shortcodes record nothing.
func (s *urlService) Resolve(ctx context.Context, shortcode string, visit types.Visit) (string, error) {
	longURL, err := s.resolve(ctx, shortcode, visit)
	s.metrics.ObserveResolve(outcome(err, metrics.OutcomeFound))
	return longURL, err
}

func (s *urlService) resolve(ctx context.Context, shortcode string, visit types.Visit) (string, error) {
	s.obs.Log(observer.LevelInfo, "Handling redirect", zap.String("shortcode", shortcode))

	record, err := s.store.FindByShortcode(ctx, shortcode)
	if err != nil {
		err = handleStorageError(err)
		if errors.Is(err, ErrNotFound) {
			s.obs.Log(observer.LevelWarn, "Short URL not found", zap.String("shortcode", shortcode))
		}
		return "", err
	}

	now := s.clock()
	if record.IsExpired(now) {
		s.obs.Log(observer.LevelWarn, "Short URL expired",
			zap.String("shortcode", shortcode),
			zap.Time("expires", record.Expires))
		return "", ErrExpired
	}

	event := types.ClickEvent{
		Timestamp: now,
		Source:    visit.Source,
		Location:  visit.Location,
	}
	if event.Source == "" {
		event.Source = DefaultSource
	}
	if event.Location == "" {
		event.Location = DefaultLocation
	}

	if err := s.store.RecordClick(ctx, shortcode, event); err != nil {
		err = handleStorageError(err)
		s.obs.Log(observer.LevelError, "Redirect failed", zap.String("shortcode", shortcode), zap.Error(err))
		return "", err
	}

	s.obs.Log(observer.LevelInfo, "Redirecting to original URL",
		zap.String("shortcode", shortcode),
		zap.String("longUrl", record.LongURL))
	return record.LongURL, nil
}

// ListAll returns every record in insertion order.
func (s *urlService) ListAll(ctx context.Context) ([]types.URLRecord, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, handleStorageError(err)
	}
	return records, nil
}

// Stats returns every record marked with whether it has expired at the current clock.
func (s *urlService) Stats(ctx context.Context) ([]types.URLStats, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	stats := make([]types.URLStats, len(records))
	for i, record := range records {
		stats[i] = types.URLStats{URLRecord: record, Expired: record.IsExpired(now)}
	}
	return stats, nil
}

func outcome(err error, success string) string {
	switch {
	case err == nil:
		return success
	case errors.Is(err, ErrInvalidInput):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, ErrDuplicateShortcode):
		return metrics.OutcomeDuplicate
	case errors.Is(err, ErrAllocationExhausted):
		return metrics.OutcomeExhausted
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, ErrStorageFailure):
		return metrics.OutcomeStorageFailure
	default:
		return metrics.OutcomeUnexpected
	}
}
