package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/regsearch/core"
	"github.com/poiesic/regsearch/reconcile"
	"github.com/poiesic/regsearch/storage"
)

// RecordRepository implements storage.RecordRepository for BadgerDB.
type RecordRepository struct {
	backend *Backend
}

var _ storage.RecordRepository = (*RecordRepository)(nil)

// NewRecordRepository creates a new RecordRepository over backend. The
// backend may be shared with other repositories; closing the repository
// does not close it.
func NewRecordRepository(backend *Backend) *RecordRepository {
	return &RecordRepository{backend: backend}
}

// Close releases repository resources. The shared backend is closed by
// its owner.
func (r *RecordRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *RecordRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddRecords adds one or more registry records to storage, keyed by the
// business key extracted from each record's identifier. Existing records
// are overwritten.
func (r *RecordRepository) AddRecords(ctx context.Context, records ...*core.RegistryRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if err := core.ValidateRegistryRecord(record); err != nil {
				return err
			}
			businessKey, err := reconcile.ExtractBusinessKey(*record)
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
			}

			key := makeRecordKey(businessKey)
			value := storage.MarshalRecord(record)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteRecords removes registry records by their business keys.
func (r *RecordRepository) DeleteRecords(ctx context.Context, businessKeys ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, businessKey := range businessKeys {
			key := makeRecordKey(businessKey)

			// Read first so deleting an absent key reports ErrNotFound.
			record, err := r.readRecord(tx, key)
			if err != nil {
				return err
			}
			if record == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetByBusinessKey retrieves a single record by its business key.
func (r *RecordRepository) GetByBusinessKey(ctx context.Context, businessKey string) (*core.RegistryRecord, error) {
	if err := core.ValidateBusinessKey(businessKey); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}

	var result *core.RegistryRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(businessKey)
		var err error
		result, err = r.readRecord(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// SearchByName retrieves records whose name contains all words of the
// given term, up to limit results.
func (r *RecordRepository) SearchByName(ctx context.Context, term string, limit int) ([]*core.RegistryRecord, error) {
	var results []*core.RegistryRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(registryRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.RegistryRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}

			if nameMatches(record.Name, term) {
				results = append(results, record)
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// Count returns the number of stored registry records.
func (r *RecordRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(registryRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readRecord reads a registry record from the transaction.
func (r *RecordRepository) readRecord(tx *badger.Txn, key []byte) (*core.RegistryRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.RegistryRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecord(val)
		return unmarshalErr
	})
	return record, err
}
