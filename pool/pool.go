package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultMinConns       = 1
	defaultMaxConns       = 10
	defaultAcquireTimeout = 5 * time.Second
	defaultMaxConnAge     = 30 * time.Minute
	defaultHealthInterval = 30 * time.Second
	defaultPingTimeout    = 2 * time.Second
)

// Pool is a bounded pool of backend connections.
type Pool struct {
	factory        Factory
	minConns       int
	maxConns       int
	acquireTimeout time.Duration
	maxConnAge     time.Duration
	healthInterval time.Duration
	logger         *slog.Logger

	mu           sync.Mutex
	idle         []*PooledConn
	active       map[*PooledConn]struct{}
	waiters      []*waiter
	dialing      int
	checking     int
	nextID       uint64
	dialFailures uint64
	closed       bool

	stop chan struct{}
	wg   sync.WaitGroup
}

type waiter struct {
	ch chan *PooledConn
}

// Stats is a point-in-time snapshot of pool state, for operational
// visibility only.
type Stats struct {
	Size         int
	Active       int
	Idle         int
	Waiting      int
	DialFailures uint64
}

// Option configures a Pool.
type Option func(*Pool) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithBounds sets the minimum and maximum pool size.
func WithBounds(minConns, maxConns int) Option {
	return func(p *Pool) error {
		if minConns < 0 || maxConns < 1 || minConns > maxConns {
			return fmt.Errorf("invalid pool bounds [%d, %d]", minConns, maxConns)
		}
		p.minConns = minConns
		p.maxConns = maxConns
		return nil
	}
}

// WithAcquireTimeout sets how long Acquire waits in the queue before
// failing with ErrAcquireTimeout.
func WithAcquireTimeout(d time.Duration) Option {
	return func(p *Pool) error {
		if d <= 0 {
			return fmt.Errorf("acquire timeout must be positive, got %v", d)
		}
		p.acquireTimeout = d
		return nil
	}
}

// WithMaxConnAge sets the age after which a connection is retired.
func WithMaxConnAge(d time.Duration) Option {
	return func(p *Pool) error {
		if d <= 0 {
			return fmt.Errorf("max connection age must be positive, got %v", d)
		}
		p.maxConnAge = d
		return nil
	}
}

// WithHealthInterval sets the period of the background health check.
func WithHealthInterval(d time.Duration) Option {
	return func(p *Pool) error {
		if d <= 0 {
			return fmt.Errorf("health interval must be positive, got %v", d)
		}
		p.healthInterval = d
		return nil
	}
}

// New creates a connection pool around factory and starts its health
// loop. The pool dials up to the configured minimum eagerly; failures
// there are logged, not fatal, and the health loop retries.
func New(factory Factory, opts ...Option) (*Pool, error) {
	if factory == nil {
		return nil, ErrFactoryRequired
	}

	p := &Pool{
		factory:        factory,
		minConns:       defaultMinConns,
		maxConns:       defaultMaxConns,
		acquireTimeout: defaultAcquireTimeout,
		maxConnAge:     defaultMaxConnAge,
		healthInterval: defaultHealthInterval,
		logger:         slog.Default(),
		active:         make(map[*PooledConn]struct{}),
		stop:           make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	p.topUp(context.Background())

	p.wg.Add(1)
	go p.healthLoop()

	return p, nil
}

// Acquire returns a connection for exclusive use by the caller. It
// reuses an idle healthy connection when one exists, dials a new one
// while the pool is under its maximum, and otherwise waits FIFO until a
// connection is released or the acquire timeout elapses.
func (p *Pool) Acquire(ctx context.Context) (*PooledConn, error) {
	now := time.Now()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	if pc := p.popIdleLocked(now); pc != nil {
		p.active[pc] = struct{}{}
		p.mu.Unlock()
		pc.touch(now)
		return pc, nil
	}

	if p.sizeLocked() < p.maxConns {
		p.dialing++
		p.mu.Unlock()
		return p.dialActive(ctx)
	}

	w := &waiter{ch: make(chan *PooledConn, 1)}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case pc, ok := <-w.ch:
		if !ok {
			return nil, ErrPoolClosed
		}
		return pc, nil
	case <-ctx.Done():
		p.abandonWaiter(w)
		return nil, ctx.Err()
	case <-timer.C:
		p.abandonWaiter(w)
		return nil, ErrAcquireTimeout
	}
}

// Release returns a connection to the pool. The longest-waiting queued
// caller, if any, is granted the connection immediately; otherwise it
// goes back to the idle set. Unhealthy or over-age connections are
// closed instead of reused.
func (p *Pool) Release(pc *PooledConn) {
	if pc == nil {
		return
	}
	now := time.Now()

	p.mu.Lock()
	delete(p.active, pc)
	pc.markReleased()

	if p.closed || !pc.isHealthy() || now.Sub(pc.createdAt) > p.maxConnAge {
		p.mu.Unlock()
		p.closeConn(pc)
		return
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.active[pc] = struct{}{}
		pc.touch(now)
		// Granting under the lock keeps the pop-from-queue and the send
		// atomic with respect to abandonWaiter: once a waiter is gone
		// from the queue its buffered channel already holds the grant.
		w.ch <- pc
		p.mu.Unlock()
		return
	}

	p.idle = append(p.idle, pc)
	p.mu.Unlock()
}

// Execute runs fn with a pooled connection, releasing it on both the
// success and error paths.
func (p *Pool) Execute(ctx context.Context, fn func(conn Conn) error) error {
	pc, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(pc)

	conn, err := pc.Conn()
	if err != nil {
		return err
	}
	if err := fn(conn); err != nil {
		return err
	}
	return nil
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:         p.sizeLocked(),
		Active:       len(p.active),
		Idle:         len(p.idle),
		Waiting:      len(p.waiters),
		DialFailures: p.dialFailures,
	}
}

// Close shuts the pool down. Queued callers fail with ErrPoolClosed,
// idle connections are closed, and active connections are closed as
// they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)

	for _, w := range p.waiters {
		close(w.ch)
	}
	p.waiters = nil
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	p.wg.Wait()

	for _, pc := range idle {
		p.closeConn(pc)
	}
	return nil
}

// sizeLocked counts every connection the pool is responsible for,
// including ones mid-dial and ones held out for a health check.
func (p *Pool) sizeLocked() int {
	return len(p.idle) + len(p.active) + p.dialing + p.checking
}

// popIdleLocked removes and returns a usable idle connection, closing
// stale ones it encounters along the way.
func (p *Pool) popIdleLocked(now time.Time) *PooledConn {
	for len(p.idle) > 0 {
		last := len(p.idle) - 1
		pc := p.idle[last]
		p.idle = p.idle[:last]
		if pc.isHealthy() && now.Sub(pc.createdAt) <= p.maxConnAge {
			return pc
		}
		go p.closeConn(pc)
	}
	return nil
}

// dialActive completes an Acquire that reserved a dial slot. The caller
// must have incremented p.dialing.
func (p *Pool) dialActive(ctx context.Context) (*PooledConn, error) {
	conn, err := p.factory(ctx)

	p.mu.Lock()
	p.dialing--
	if err != nil {
		p.dialFailures++
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrDialFailed, err)
	}
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return nil, ErrPoolClosed
	}
	p.nextID++
	pc := &PooledConn{
		conn:      conn,
		id:        p.nextID,
		createdAt: time.Now(),
		healthy:   true,
	}
	p.active[pc] = struct{}{}
	p.mu.Unlock()

	pc.touch(time.Now())
	return pc, nil
}

// abandonWaiter removes w from the queue after a timeout or
// cancellation. Grants are sent while the granting goroutine holds the
// pool mutex, so if w is no longer queued its channel already carries a
// connection (or was closed by Close); that connection is put back.
func (p *Pool) abandonWaiter(w *waiter) {
	p.mu.Lock()
	for i, queued := range p.waiters {
		if queued == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()

	if pc, ok := <-w.ch; ok {
		p.Release(pc)
	}
}

func (p *Pool) closeConn(pc *PooledConn) {
	if err := pc.conn.Close(); err != nil {
		p.logger.Warn("error closing connection", "connID", pc.id, "err", err)
	}
}

func (p *Pool) healthLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.checkIdle()
			p.topUp(context.Background())
		}
	}
}

// checkIdle pings every idle connection and evicts the ones that fail
// or have exceeded the maximum age.
func (p *Pool) checkIdle() {
	now := time.Now()

	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.checking += len(idle)
	p.mu.Unlock()

	keep := make([]*PooledConn, 0, len(idle))
	for _, pc := range idle {
		if !pc.isHealthy() || now.Sub(pc.createdAt) > p.maxConnAge {
			p.evictChecked(pc)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
		err := pc.conn.Ping(ctx)
		cancel()
		if err != nil {
			p.logger.Warn("evicting unhealthy connection", "connID", pc.id, "err", err)
			p.evictChecked(pc)
			continue
		}
		keep = append(keep, pc)
	}

	p.mu.Lock()
	p.checking -= len(keep)
	if p.closed {
		p.mu.Unlock()
		for _, pc := range keep {
			p.closeConn(pc)
		}
		return
	}
	// Grant survivors to queued callers before parking them.
	for len(keep) > 0 && len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		pc := keep[0]
		keep = keep[1:]
		p.active[pc] = struct{}{}
		pc.touch(now)
		w.ch <- pc
	}
	p.idle = append(p.idle, keep...)
	p.mu.Unlock()
}

func (p *Pool) evictChecked(pc *PooledConn) {
	p.mu.Lock()
	p.checking--
	p.mu.Unlock()
	p.closeConn(pc)
}

// topUp dials new idle connections until the pool reaches its minimum
// size. Dial failures are counted and logged.
func (p *Pool) topUp(ctx context.Context) {
	for {
		p.mu.Lock()
		if p.closed || p.sizeLocked() >= p.minConns {
			p.mu.Unlock()
			return
		}
		p.dialing++
		p.mu.Unlock()

		dialCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
		conn, err := p.factory(dialCtx)
		cancel()

		p.mu.Lock()
		p.dialing--
		if err != nil {
			p.dialFailures++
			p.mu.Unlock()
			p.logger.Warn("error dialing backend connection", "err", err)
			return
		}
		if p.closed {
			p.mu.Unlock()
			conn.Close()
			return
		}
		p.nextID++
		pc := &PooledConn{
			conn:      conn,
			id:        p.nextID,
			createdAt: time.Now(),
			healthy:   true,
		}
		if len(p.waiters) > 0 {
			w := p.waiters[0]
			p.waiters = p.waiters[1:]
			p.active[pc] = struct{}{}
			pc.touch(time.Now())
			w.ch <- pc
			p.mu.Unlock()
			continue
		}
		p.idle = append(p.idle, pc)
		p.mu.Unlock()
	}
}
