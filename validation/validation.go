// Package validation provides the input predicates used before anything is stored.
package validation

import (
	"math"
	"net/url"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"go-link-shortener/observer"
)

const (
	urlTag       = "required,url"
	shortcodeTag = "required,alphanum,min=4,max=20"
)

// Validator checks user supplied URLs, shortcodes and validity windows.
// Every rejected candidate is reported to the observer at debug level.
type Validator struct {
	validate *validator.Validate
	obs      observer.Observer
}

// New creates a Validator reporting to obs.
func New(obs observer.Observer) *Validator {
	if obs == nil {
		obs = observer.Nop{}
	}
	return &Validator{
		validate: validator.New(),
		obs:      obs,
	}
}

// IsValidURL reports whether candidate is an absolute URL with a scheme and a host.
func (v *Validator) IsValidURL(candidate string) bool {
	if err := v.validate.Var(candidate, urlTag); err != nil {
		v.obs.Log(observer.LevelDebug, "URL validation failed", zap.String("url", candidate), zap.Error(err))
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.obs.Log(observer.LevelDebug, "URL validation failed", zap.String("url", candidate))
		return false
	}
	return true
}

// IsValidShortcode reports whether candidate is 4 to 20 ASCII letters or digits.
func (v *Validator) IsValidShortcode(candidate string) bool {
	if err := v.validate.Var(candidate, shortcodeTag); err != nil {
		v.obs.Log(observer.LevelDebug, "Shortcode validation failed", zap.String("shortcode", candidate))
		return false
	}
	return true
}

// IsValidValidityMinutes reports whether n is a positive integer.
func (v *Validator) IsValidValidityMinutes(n float64) bool {
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n <= 0 {
		v.obs.Log(observer.LevelDebug, "Validity minutes validation failed", zap.Float64("minutes", n))
		return false
	}
	return true
}
