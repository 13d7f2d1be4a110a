package models

import "errors"

var (
	// ErrInvalidConfig indicates malformed timeline tunables (negative thresholds,
	// ratios outside [0,1], unknown algorithm names). Raised before any point processing.
	ErrInvalidConfig = errors.New("invalid timeline config")

	// ErrInvalidInput indicates a violated call contract: empty required collections,
	// inverted time ranges, or windows exceeding the maximum span.
	ErrInvalidInput = errors.New("invalid input")
)
