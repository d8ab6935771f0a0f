package models

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by friend sources.
var (
	ErrSourceUnavailable = errors.New("friend source unavailable")
	ErrNotFound          = errors.New("user not found")
)

// Sentinel errors for traversal.
var (
	ErrSeedUnreachable = errors.New("seed unreachable")
	ErrInvalidBudget   = errors.New("max nodes must be positive")
	ErrEmptyFrontier   = errors.New("frontier is empty")
)

// ErrEmptyGraph is returned by analytics that are undefined on a graph without nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// ErrRunNotFound indicates an unknown crawl run ID.
var ErrRunNotFound = errors.New("crawl run not found")

// ErrInvalidRequest wraps every crawl request validation failure.
var ErrInvalidRequest = errors.New("invalid crawl request")

// ErrQueueFull is returned when an asynchronous crawl cannot be queued.
var ErrQueueFull = errors.New("crawl queue full")

// Sentinel errors for request validation.
var (
	ErrMissingSeed = errors.New("seed is required")
	errWorkers     = errors.New("workers must be between 0 and 16")
	errOrder       = errors.New("order must be dfs or bfs")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

func errNegative(field string) error {
	return fmt.Errorf("%s must not be negative", field)
}
