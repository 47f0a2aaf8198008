// Package urlgen generates shortcodes and allocates unique ones.
package urlgen

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// charset defines the character set used for generating shortcodes.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the length of generated shortcodes.
const DefaultLength = 6

// Generate returns a random shortcode of the given length drawn uniformly from charset.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	return gonanoid.Generate(charset, length)
}

// NewID returns an opaque unique record identifier.
func NewID() (string, error) {
	return gonanoid.New()
}
