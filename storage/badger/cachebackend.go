package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/regsearch/pool"
	"github.com/poiesic/regsearch/storage"
)

// cacheConn adapts a shared Backend to the pool.Conn contract. Cache keys
// live under their own prefix so the connection never touches registry
// records. All connections from one factory share the same database; the
// pool's exclusivity guarantee still applies per connection handle.
type cacheConn struct {
	backend *Backend
	closed  bool
}

var _ pool.Conn = (*cacheConn)(nil)

// NewCacheFactory returns a pool.Factory producing connections to the
// given backend. The backend outlives the connections; closing a
// connection does not close the database.
func NewCacheFactory(backend *Backend) pool.Factory {
	return func(ctx context.Context) (pool.Conn, error) {
		if backend.IsClosed() {
			return nil, storage.ErrStorageClosed
		}
		return &cacheConn{backend: backend}, nil
	}
}

func (c *cacheConn) Ping(ctx context.Context) error {
	if c.closed || c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

func (c *cacheConn) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, pool.ErrKeyNotFound
		}
		return nil, err
	}
	return value, nil
}

func (c *cacheConn) Set(ctx context.Context, key string, value []byte) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCacheKey(key), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (c *cacheConn) Delete(ctx context.Context, key string) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCacheKey(key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (c *cacheConn) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	values := make(map[string][]byte, len(keys))
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			item, err := tx.Get(makeCacheKey(key))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			values[key] = value
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (c *cacheConn) Close() error {
	c.closed = true
	return nil
}
