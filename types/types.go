// Package types defines the data structures used in the URL shortener service.
package types

import "time"

// ClickEvent is one recorded visit of a short URL.
type ClickEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Location  string    `json:"location"`
}

// URLRecord is the persisted unit: one short URL and its click history.
type URLRecord struct {
	ID        string       `json:"id"`
	LongURL   string       `json:"longUrl"`
	Shortcode string       `json:"shortcode"`
	ShortURL  string       `json:"shortUrl"`
	Created   time.Time    `json:"created"`
	Expires   time.Time    `json:"expires"`
	Clicks    int          `json:"clicks"`
	ClickData []ClickEvent `json:"clickData"`
}

// IsExpired reports whether the record no longer resolves at the given instant.
func (r URLRecord) IsExpired(now time.Time) bool {
	return now.After(r.Expires)
}

// Visit carries the request metadata attached to a click.
type Visit struct {
	Source   string
	Location string
}

// ShortenRequest represents one entry of a shorten submission.
// A nil ValidityMinutes means the configured default.
type ShortenRequest struct {
	LongURL         string   `json:"longUrl"`
	ValidityMinutes *float64 `json:"validityMinutes,omitempty"`
	Shortcode       string   `json:"shortcode,omitempty"`
}

// BatchShortenRequest is the body accepted by the shorten endpoint.
type BatchShortenRequest struct {
	URLs []ShortenRequest `json:"urls" validate:"required,min=1"`
}

// ShortenResult is the per-entry outcome of a batch submission.
type ShortenResult struct {
	Record *URLRecord `json:"record,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// BatchShortenResponse is returned by the shorten endpoint.
type BatchShortenResponse struct {
	Results []ShortenResult `json:"results"`
}

// URLStats is a URLRecord annotated for the statistics view.
type URLStats struct {
	URLRecord
	Expired bool `json:"expired"`
}

// ErrorResponse is the body of every failed HTTP call.
type ErrorResponse struct {
	Error string            `json:"error"`
	Links map[string]string `json:"links,omitempty"`
}
