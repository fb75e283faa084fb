package badger

import (
	"context"
	"testing"

	"github.com/poiesic/regsearch/core"
	"github.com/poiesic/regsearch/pool"
	"github.com/poiesic/regsearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheConn(t *testing.T) (pool.Conn, *Backend) {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	conn, err := NewCacheFactory(backend)(context.Background())
	require.NoError(t, err)
	return conn, backend
}

func TestCacheConnSetGet(t *testing.T) {
	conn, _ := newTestCacheConn(t)
	ctx := context.Background()

	require.NoError(t, conn.Set(ctx, "search:abc", []byte("payload")))

	value, err := conn.Get(ctx, "search:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)
}

func TestCacheConnGetMissing(t *testing.T) {
	conn, _ := newTestCacheConn(t)

	_, err := conn.Get(context.Background(), "search:missing")
	assert.ErrorIs(t, err, pool.ErrKeyNotFound)
}

func TestCacheConnDelete(t *testing.T) {
	conn, _ := newTestCacheConn(t)
	ctx := context.Background()

	require.NoError(t, conn.Set(ctx, "search:abc", []byte("payload")))
	require.NoError(t, conn.Delete(ctx, "search:abc"))

	_, err := conn.Get(ctx, "search:abc")
	assert.ErrorIs(t, err, pool.ErrKeyNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, conn.Delete(ctx, "search:abc"))
}

func TestCacheConnMGet(t *testing.T) {
	conn, _ := newTestCacheConn(t)
	ctx := context.Background()

	require.NoError(t, conn.Set(ctx, "a", []byte("1")))
	require.NoError(t, conn.Set(ctx, "b", []byte("2")))

	values, err := conn.MGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, values)
}

func TestCacheConnPing(t *testing.T) {
	conn, backend := newTestCacheConn(t)
	ctx := context.Background()

	assert.NoError(t, conn.Ping(ctx))

	require.NoError(t, backend.Close())
	assert.ErrorIs(t, conn.Ping(ctx), storage.ErrStorageClosed)
}

func TestCacheFactoryClosedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = NewCacheFactory(backend)(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCacheKeysIsolatedFromRecords(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	repo := NewRecordRepository(backend)
	ctx := context.Background()

	require.NoError(t, repo.AddRecords(ctx, &core.RegistryRecord{
		Ident: "542107651", Name: "Acme", Source: "local",
	}))

	conn, err := NewCacheFactory(backend)(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Set(ctx, "search:acme", []byte("payload")))

	// Cache writes must not show up as registry records.
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
