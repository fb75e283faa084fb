package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/regsearch/pool"
)

// memBackend is a shared in-memory backend; every conn dialed from its
// factory sees the same data. Setting fail makes all operations error,
// simulating an unreachable backend.
type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (b *memBackend) setFailing(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = fail
}

func (b *memBackend) factory(_ context.Context) (pool.Conn, error) {
	return &memConn{backend: b}, nil
}

type memConn struct {
	backend *memBackend
}

var errBackendDown = errors.New("backend down")

func (c *memConn) Ping(_ context.Context) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.backend.fail {
		return errBackendDown
	}
	return nil
}

func (c *memConn) Get(_ context.Context, key string) ([]byte, error) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.backend.fail {
		return nil, errBackendDown
	}
	v, ok := c.backend.data[key]
	if !ok {
		return nil, pool.ErrKeyNotFound
	}
	return v, nil
}

func (c *memConn) Set(_ context.Context, key string, value []byte) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.backend.fail {
		return errBackendDown
	}
	c.backend.data[key] = value
	return nil
}

func (c *memConn) Delete(_ context.Context, key string) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.backend.fail {
		return errBackendDown
	}
	delete(c.backend.data, key)
	return nil
}

func (c *memConn) MGet(_ context.Context, keys []string) (map[string][]byte, error) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if c.backend.fail {
		return nil, errBackendDown
	}
	out := make(map[string][]byte)
	for _, k := range keys {
		if v, ok := c.backend.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (c *memConn) Close() error { return nil }

func newTestCache(t *testing.T, backend *memBackend, opts ...Option) *Cache {
	t.Helper()
	p, err := pool.New(backend.factory, pool.WithBounds(0, 2))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	c, err := New(p, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_NilPool(t *testing.T) {
	_, err := New(nil)
	assert.Equal(t, ErrPoolRequired, err)
}

func TestRoundTrip(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)

	res := c.Get(ctx, "k")
	assert.True(t, res.Found)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, []byte("v"), res.Value)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 0, stats.BackendErrors)
}

func TestGet_Miss(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)

	res := c.Get(context.Background(), "absent")
	assert.False(t, res.Found)
	assert.False(t, res.UsedFallback)
	assert.EqualValues(t, 1, c.Stats().Misses)
}

func TestGet_ExpiredEntryIsDeleted(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	res := c.Get(ctx, "k")
	assert.False(t, res.Found)

	backend.mu.Lock()
	_, stillThere := backend.data["k"]
	backend.mu.Unlock()
	assert.False(t, stillThere, "expired entry should be deleted on read")
}

func TestDelete(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")

	assert.False(t, c.Get(ctx, "k").Found)
}

func TestMGet(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	got := c.MGet(ctx, []string{"a", "b", "absent"})
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, got)
}

func TestFallback_BackendDown(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)
	ctx := context.Background()

	backend.setFailing(true)

	c.Set(ctx, "k", []byte("v"), time.Minute)

	res := c.Get(ctx, "k")
	assert.True(t, res.Found)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, []byte("v"), res.Value)

	got := c.MGet(ctx, []string{"k", "absent"})
	assert.Equal(t, map[string][]byte{"k": []byte("v")}, got)

	stats := c.Stats()
	assert.NotZero(t, stats.BackendErrors)
	assert.NotZero(t, stats.FallbackOps)
	assert.Equal(t, 1, stats.FallbackSize)
}

func TestFallback_TTLSemantics(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)
	ctx := context.Background()

	backend.setFailing(true)
	c.Set(ctx, "k", []byte("v"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	res := c.Get(ctx, "k")
	assert.False(t, res.Found)
	assert.True(t, res.UsedFallback)
}

func TestFallback_SweepOnThreshold(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend, WithSweepThreshold(2))
	ctx := context.Background()

	backend.setFailing(true)
	c.Set(ctx, "a", []byte("1"), 10*time.Millisecond)
	c.Set(ctx, "b", []byte("2"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	// This write finds the map at the threshold and sweeps the expired
	// entries before inserting.
	c.Set(ctx, "c", []byte("3"), time.Minute)
	assert.Equal(t, 1, c.Stats().FallbackSize)
}

func TestClear(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)
	ctx := context.Background()

	backend.setFailing(true)
	c.Set(ctx, "k", []byte("v"), time.Minute)
	require.Equal(t, 1, c.Stats().FallbackSize)

	c.Clear()
	assert.Equal(t, 0, c.Stats().FallbackSize)
}

func TestEffectiveTTL(t *testing.T) {
	backend := newMemBackend()
	c := newTestCache(t, backend)
	base := time.Minute

	t.Run("no history uses base", func(t *testing.T) {
		assert.Equal(t, base, c.effectiveTTL("fresh", base))
	})

	t.Run("hits scale up, bounded", func(t *testing.T) {
		c.mu.Lock()
		c.history["hot"] = &keyHistory{hits: 1000}
		c.mu.Unlock()

		ttl := c.effectiveTTL("hot", base)
		assert.Greater(t, ttl, base)
		assert.LessOrEqual(t, ttl, time.Duration(float64(base)*maxTTLFactor))
	})

	t.Run("errors scale down, bounded", func(t *testing.T) {
		c.mu.Lock()
		c.history["flaky"] = &keyHistory{errors: 1000}
		c.mu.Unlock()

		ttl := c.effectiveTTL("flaky", base)
		assert.Less(t, ttl, base)
		assert.GreaterOrEqual(t, ttl, time.Duration(float64(base)*minTTLFactor))
	})
}

func TestEntrySerializationRoundTrip(t *testing.T) {
	e := entry{Data: []byte("payload"), ExpiresAt: time.Now().Add(time.Hour).UnixMilli()}
	got, err := unmarshalEntry(marshalEntry(e))
	require.NoError(t, err)
	assert.Equal(t, e, got)
}
