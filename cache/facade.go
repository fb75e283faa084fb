package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/regsearch/pool"
)

const (
	defaultSweepThreshold = 1024

	// Adaptive TTL bounds: a key's effective TTL never strays further
	// than this from the caller's base TTL.
	minTTLFactor = 0.5
	maxTTLFactor = 2.0
	ttlStep      = 0.05

	historyHitCap   = 20
	historyErrorCap = 10
)

// Cache is the TTL cache facade over the connection pool.
type Cache struct {
	pool   *pool.Pool
	local  *localStore
	logger *slog.Logger

	mu            sync.Mutex
	history       map[string]*keyHistory
	hits          uint64
	misses        uint64
	fallbackOps   uint64
	backendErrors uint64
}

// keyHistory tracks observed hits and backend errors per key, feeding
// the adaptive TTL calculation.
type keyHistory struct {
	hits   int
	errors int
}

// Result is the outcome of a Get. UsedFallback reports that the local
// map answered because the backend was unavailable.
type Result struct {
	Value        []byte
	Found        bool
	UsedFallback bool
}

// Stats is a snapshot of cache counters, for operational visibility only.
type Stats struct {
	Hits          uint64
	Misses        uint64
	FallbackOps   uint64
	BackendErrors uint64
	FallbackSize  int
}

// Option configures a Cache.
type Option func(*Cache) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithSweepThreshold sets the fallback map size that triggers a sweep
// of expired entries on write.
func WithSweepThreshold(n int) Option {
	return func(c *Cache) error {
		if n < 1 {
			n = 1
		}
		c.local.sweepThreshold = n
		return nil
	}
}

// New creates a cache facade over p.
func New(p *pool.Pool, opts ...Option) (*Cache, error) {
	if p == nil {
		return nil, ErrPoolRequired
	}

	c := &Cache{
		pool:    p,
		local:   newLocalStore(defaultSweepThreshold),
		logger:  slog.Default(),
		history: make(map[string]*keyHistory),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Get retrieves the value stored under key. A backend failure is
// answered from the local fallback and flagged on the result; callers
// never see the backend error.
func (c *Cache) Get(ctx context.Context, key string) Result {
	now := time.Now()

	var raw []byte
	err := c.pool.Execute(ctx, func(conn pool.Conn) error {
		var getErr error
		raw, getErr = conn.Get(ctx, key)
		return getErr
	})

	switch {
	case err == nil:
		e, decErr := unmarshalEntry(raw)
		if decErr != nil {
			c.logger.Warn("discarding undecodable cache entry", "key", key, "err", decErr)
			c.Delete(ctx, key)
			c.recordMiss(key)
			return Result{}
		}
		if e.expired(now) {
			c.Delete(ctx, key)
			c.recordMiss(key)
			return Result{}
		}
		c.recordHit(key)
		return Result{Value: e.Data, Found: true}

	case errors.Is(err, pool.ErrKeyNotFound):
		c.recordMiss(key)
		return Result{}

	default:
		c.recordBackendError(key, err)
		value, found := c.local.get(key, now)
		return Result{Value: value, Found: found, UsedFallback: true}
	}
}

// Set stores value under key for roughly ttl, adjusted by the key's
// adaptive TTL factor. A backend failure falls back to the local map.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	now := time.Now()
	expiresAt := now.Add(c.effectiveTTL(key, ttl))
	raw := marshalEntry(entry{Data: value, ExpiresAt: expiresAt.UnixMilli()})

	err := c.pool.Execute(ctx, func(conn pool.Conn) error {
		return conn.Set(ctx, key, raw)
	})
	if err != nil {
		c.recordBackendError(key, err)
		c.local.set(key, value, expiresAt, now)
	}
}

// Delete removes key from the backend and the local fallback.
func (c *Cache) Delete(ctx context.Context, key string) {
	err := c.pool.Execute(ctx, func(conn pool.Conn) error {
		return conn.Delete(ctx, key)
	})
	if err != nil {
		c.recordBackendError(key, err)
	}
	c.local.delete(key)
}

// MGet retrieves multiple keys. The returned map holds only keys that
// were present and unexpired; absent keys are omitted. A backend
// failure is answered from the local fallback.
func (c *Cache) MGet(ctx context.Context, keys []string) map[string][]byte {
	now := time.Now()

	var raw map[string][]byte
	err := c.pool.Execute(ctx, func(conn pool.Conn) error {
		var mgetErr error
		raw, mgetErr = conn.MGet(ctx, keys)
		return mgetErr
	})
	if err != nil {
		c.recordBackendError("", err)
		return c.local.mget(keys, now)
	}

	out := make(map[string][]byte, len(raw))
	for key, bs := range raw {
		e, decErr := unmarshalEntry(bs)
		if decErr != nil {
			c.logger.Warn("discarding undecodable cache entry", "key", key, "err", decErr)
			c.Delete(ctx, key)
			continue
		}
		if e.expired(now) {
			c.Delete(ctx, key)
			c.recordMiss(key)
			continue
		}
		c.recordHit(key)
		out[key] = e.Data
	}
	return out
}

// Clear empties the local fallback map. Backend contents are untouched.
func (c *Cache) Clear() {
	c.local.clear()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		FallbackOps:   c.fallbackOps,
		BackendErrors: c.backendErrors,
		FallbackSize:  c.local.size(),
	}
}

// effectiveTTL scales base by the key's hit/error history, bounded to
// [minTTLFactor, maxTTLFactor] of base. Keys that hit often and fail
// rarely keep their entries longer; keys seen failing are kept shorter.
func (c *Cache) effectiveTTL(key string, base time.Duration) time.Duration {
	c.mu.Lock()
	h := c.history[key]
	if h == nil {
		c.mu.Unlock()
		return base
	}
	hits := min(h.hits, historyHitCap)
	errs := min(h.errors, historyErrorCap)
	c.mu.Unlock()

	factor := 1.0 + float64(hits)*ttlStep - float64(errs)*2*ttlStep
	if factor < minTTLFactor {
		factor = minTTLFactor
	}
	if factor > maxTTLFactor {
		factor = maxTTLFactor
	}
	return time.Duration(float64(base) * factor)
}

func (c *Cache) recordHit(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits++
	c.historyLocked(key).hits++
}

func (c *Cache) recordMiss(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
}

func (c *Cache) recordBackendError(key string, err error) {
	c.logger.Debug("falling back to local cache", "key", key, "err", errors.Join(ErrBackendUnavailable, err))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backendErrors++
	c.fallbackOps++
	if key != "" {
		c.historyLocked(key).errors++
	}
}

func (c *Cache) historyLocked(key string) *keyHistory {
	h := c.history[key]
	if h == nil {
		h = &keyHistory{}
		c.history[key] = h
	}
	return h
}
