package models

import "errors"

var (
	// ErrDataUnavailable marks a missing or malformed snapshot or sentiment.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrModelUnavailable means the predictor could not produce a probability.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrConfigCorrupt means persisted strategy state could not be decoded.
	ErrConfigCorrupt = errors.New("config corrupt")
	// ErrNotFound is returned by stores for absent documents.
	ErrNotFound = errors.New("not found")
)
