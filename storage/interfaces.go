package storage

import (
	"context"

	"github.com/poiesic/regsearch/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// RecordRepository provides operations for managing registry records held in
// the local source, keyed by business key.
type RecordRepository interface {
	Repository
	// AddRecords adds one or more registry records to storage.
	// Each record must carry an identifier from which a business key can be
	// extracted; records that already exist are overwritten.
	AddRecords(ctx context.Context, records ...*core.RegistryRecord) error

	// DeleteRecords removes registry records by their business keys.
	// Returns ErrNotFound if any record doesn't exist.
	DeleteRecords(ctx context.Context, businessKeys ...string) error

	// GetByBusinessKey retrieves a single record by its 9-digit business key.
	// Returns ErrNotFound if the record doesn't exist.
	GetByBusinessKey(ctx context.Context, businessKey string) (*core.RegistryRecord, error)

	// SearchByName retrieves records whose name matches the given term,
	// up to limit results. Matching is case-insensitive on whole tokens.
	SearchByName(ctx context.Context, term string, limit int) ([]*core.RegistryRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
