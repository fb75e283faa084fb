package query

import "errors"

var (
	// ErrSourceTimeout indicates a source exceeded its per-call timeout.
	ErrSourceTimeout = errors.New("source query timed out")

	// ErrSourceFailed indicates a source returned an error.
	ErrSourceFailed = errors.New("source query failed")

	// ErrSourceRequired is returned when a source list entry is nil.
	ErrSourceRequired = errors.New("source required")
)
