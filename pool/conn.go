package pool

import (
	"context"
	"sync"
	"time"
)

// Conn is the protocol contract the shared cache backend must satisfy.
// Implementations must be safe for use by one goroutine at a time; the
// pool guarantees a connection is held by at most one caller.
type Conn interface {
	// Ping checks connection liveness.
	Ping(ctx context.Context) error

	// Get retrieves the value stored under key.
	// Returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// MGet retrieves multiple keys in one round trip. Absent keys are
	// omitted from the returned map.
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// Close releases the connection.
	Close() error
}

// Factory creates a new backend connection.
type Factory func(ctx context.Context) (Conn, error)

// PooledConn wraps a Conn with pool bookkeeping. It is owned exclusively
// by the pool and handed to one caller at a time between Acquire and
// Release.
type PooledConn struct {
	conn      Conn
	id        uint64
	createdAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
	healthy  bool
	released bool
}

// ID returns the pool-assigned connection identity.
func (pc *PooledConn) ID() uint64 { return pc.id }

// CreatedAt returns when the connection was dialed.
func (pc *PooledConn) CreatedAt() time.Time { return pc.createdAt }

// Conn returns the underlying backend connection, or ErrConnReleased if
// the caller no longer holds it.
func (pc *PooledConn) Conn() (Conn, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.released {
		return nil, ErrConnReleased
	}
	return pc.conn, nil
}

// MarkUnhealthy flags the connection so the pool closes it on release
// instead of reusing it.
func (pc *PooledConn) MarkUnhealthy() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.healthy = false
}

func (pc *PooledConn) isHealthy() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.healthy
}

func (pc *PooledConn) touch(now time.Time) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.lastUsed = now
	pc.released = false
}

func (pc *PooledConn) markReleased() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.released = true
}
