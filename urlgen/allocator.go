package urlgen

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go-link-shortener/observer"
)

// ErrAllocationExhausted is returned when every generated candidate was already taken.
var ErrAllocationExhausted = errors.New("could not allocate unique shortcode")

// DefaultMaxAttempts is the number of candidates tried before giving up.
const DefaultMaxAttempts = 5

// AvailabilityChecker reports whether a shortcode is still free.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, code string) (bool, error)
}

// Allocator draws random shortcodes until it finds one the checker reports free.
type Allocator struct {
	checker     AvailabilityChecker
	generate    func() (string, error)
	maxAttempts int
	reserved    map[string]struct{}
	obs         observer.Observer
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLength sets the length of generated candidates.
func WithLength(length int) Option {
	return func(a *Allocator) {
		a.generate = func() (string, error) { return Generate(length) }
	}
}

// WithMaxAttempts sets how many candidates are tried.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithGenerator replaces the candidate source.
func WithGenerator(generate func() (string, error)) Option {
	return func(a *Allocator) {
		a.generate = generate
	}
}

// WithReserved marks codes that are never handed out.
func WithReserved(codes ...string) Option {
	return func(a *Allocator) {
		for _, code := range codes {
			a.reserved[code] = struct{}{}
		}
	}
}

// WithObserver sets the diagnostics sink.
func WithObserver(obs observer.Observer) Option {
	return func(a *Allocator) {
		if obs != nil {
			a.obs = obs
		}
	}
}

// NewAllocator creates an Allocator checking candidates against checker.
func NewAllocator(checker AvailabilityChecker, opts ...Option) *Allocator {
	a := &Allocator{
		checker:     checker,
		generate:    func() (string, error) { return Generate(DefaultLength) },
		maxAttempts: DefaultMaxAttempts,
		reserved:    make(map[string]struct{}),
		obs:         observer.Nop{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a shortcode that was free at the time of the check.
// The caller still has to insert it; the store rejects a code taken in between.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	const op = "urlgen.Allocator.Allocate"

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.generate()
		if err != nil {
			return "", fmt.Errorf("%s: failed to generate shortcode: %w", op, err)
		}

		available, err := a.isAvailable(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%s: failed to check shortcode availability: %w", op, err)
		}
		if available {
			return code, nil
		}

		a.obs.Log(observer.LevelDebug, "Generated shortcode already taken",
			zap.String("shortcode", code),
			zap.Int("attempt", attempt))
	}

	a.obs.Log(observer.LevelWarn, "Could not generate a unique shortcode", zap.Int("attempts", a.maxAttempts))
	return "", fmt.Errorf("%s: %w", op, ErrAllocationExhausted)
}

// isAvailable treats reserved codes as taken without asking the checker.
func (a *Allocator) isAvailable(ctx context.Context, code string) (bool, error) {
	if _, ok := a.reserved[code]; ok {
		return false, nil
	}
	return a.checker.IsAvailable(ctx, code)
}
