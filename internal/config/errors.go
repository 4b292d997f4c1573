package config

import "errors"

// Validation errors returned by Config.Validate. Sentinel values allow
// callers to branch with errors.Is while keeping readable messages.
var (
	// ErrInvalidChunkSize is returned when the snapshot chunk size is not
	// positive.
	ErrInvalidChunkSize = errors.New("invalid chunk size: must be positive")

	// ErrInvalidEditCap is returned when the per-project edit cap is not
	// positive.
	ErrInvalidEditCap = errors.New("invalid edit cap: must be positive")

	// ErrInvalidConcurrency is returned when the project concurrency is
	// not positive.
	ErrInvalidConcurrency = errors.New("invalid project concurrency: must be positive")

	// ErrInvalidTouchDelay is returned when the touch delay is negative.
	ErrInvalidTouchDelay = errors.New("invalid touch delay: must be non-negative")

	// ErrInvalidRange is returned when the lexicographic project range is
	// inverted.
	ErrInvalidRange = errors.New("invalid project range: min is greater than max")

	// ErrNoCacheDir is returned when no snapshot cache directory is set.
	ErrNoCacheDir = errors.New("no cache directory configured")
)
