package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/regsearch/core"
)

const (
	defaultBreakerThreshold = 5
	defaultOpenTimeout      = 30 * time.Second

	// Adaptive scaling bounds and triggers. Scaling changes only the
	// effective ceilings, never the counters.
	scaleUpFactor    = 1.5
	scaleDownFactor  = 0.5
	scaleUpLoad      = 0.8
	lowErrorRate     = 0.05
	highErrorRate    = 0.30
	adaptMinOutcomes = 10

	recordSweepThreshold = 4096
)

// Reason names the admission-control rule that rejected a request.
type Reason string

const (
	ReasonRateLimit      Reason = "rate_limit"
	ReasonBurstLimit     Reason = "burst_limit"
	ReasonCircuitBreaker Reason = "circuit_breaker"
)

// TierLimits are the base ceilings for one caller tier.
type TierLimits struct {
	MainLimit   int
	MainWindow  time.Duration
	BurstLimit  int
	BurstWindow time.Duration
}

// DefaultTierLimits returns the built-in per-tier ceilings.
func DefaultTierLimits() map[core.Tier]TierLimits {
	return map[core.Tier]TierLimits{
		core.TierDefault:    {MainLimit: 100, MainWindow: time.Minute, BurstLimit: 20, BurstWindow: 10 * time.Second},
		core.TierPremium:    {MainLimit: 300, MainWindow: time.Minute, BurstLimit: 50, BurstWindow: 10 * time.Second},
		core.TierEnterprise: {MainLimit: 1000, MainWindow: time.Minute, BurstLimit: 150, BurstWindow: 10 * time.Second},
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
	Reason     Reason
}

// Err maps a rejection to its sentinel error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonBurstLimit:
		return fmt.Errorf("%w: retry after %s", ErrBurstLimited, d.RetryAfter.Round(time.Second))
	case ReasonCircuitBreaker:
		return fmt.Errorf("%w: retry after %s", ErrCircuitOpen, d.RetryAfter.Round(time.Second))
	default:
		return fmt.Errorf("%w: retry after %s", ErrRateLimited, d.RetryAfter.Round(time.Second))
	}
}

// record holds both admission windows and the outcome history for one
// key. Created lazily on the key's first request.
type record struct {
	mainCount  int
	mainReset  time.Time
	burstCount int
	burstReset time.Time

	successes uint64
	failures  uint64
}

func (r *record) errorRate() (float64, bool) {
	total := r.successes + r.failures
	if total < adaptMinOutcomes {
		return 0, false
	}
	return float64(r.failures) / float64(total), true
}

// Limiter is the adaptive per-key rate limiter with circuit breaking.
// All state is mutex-guarded; a check-and-increment is atomic with
// respect to concurrent callers.
type Limiter struct {
	tiers            map[core.Tier]TierLimits
	breakerThreshold int
	openTimeout      time.Duration
	now              func() time.Time
	logger           *slog.Logger

	mu       sync.Mutex
	records  map[string]*record
	breakers map[string]*breaker
}

// Option configures a Limiter.
type Option func(*Limiter) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// WithTierLimits overrides the ceilings for one tier.
func WithTierLimits(tier core.Tier, limits TierLimits) Option {
	return func(l *Limiter) error {
		if limits.MainLimit < 1 || limits.BurstLimit < 1 || limits.MainWindow <= 0 || limits.BurstWindow <= 0 {
			return fmt.Errorf("invalid limits for tier %s", tier)
		}
		l.tiers[tier] = limits
		return nil
	}
}

// WithBreaker sets the consecutive-failure threshold and the open
// period of the circuit breaker.
func WithBreaker(threshold int, openTimeout time.Duration) Option {
	return func(l *Limiter) error {
		if threshold < 1 || openTimeout <= 0 {
			return fmt.Errorf("invalid breaker settings: threshold %d, open timeout %v", threshold, openTimeout)
		}
		l.breakerThreshold = threshold
		l.openTimeout = openTimeout
		return nil
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) error {
		if now == nil {
			now = time.Now
		}
		l.now = now
		return nil
	}
}

// New creates a Limiter with the default tier ceilings.
func New(opts ...Option) (*Limiter, error) {
	l := &Limiter{
		tiers:            DefaultTierLimits(),
		breakerThreshold: defaultBreakerThreshold,
		openTimeout:      defaultOpenTimeout,
		now:              time.Now,
		logger:           slog.Default(),
		records:          make(map[string]*record),
		breakers:         make(map[string]*breaker),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Check runs the admission algorithm for key at tier: circuit gate,
// adaptive ceilings, burst window, then main window. A rejection also
// counts as a circuit-breaker failure for the key.
func (l *Limiter) Check(key string, tier core.Tier) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// 1. Circuit gate.
	if b := l.breakers[key]; b != nil {
		if remaining := b.gate(now); remaining > 0 {
			b.failure(now, l.breakerThreshold, l.openTimeout)
			return Decision{
				Allowed:    false,
				Reason:     ReasonCircuitBreaker,
				RetryAfter: remaining,
				ResetTime:  b.probeAt,
			}
		}
	}

	rec := l.recordLocked(key, now)
	limits := l.limitsFor(tier)

	// Wholesale window replacement runs before adaptation so the load
	// calculation never judges this request against an expired window's
	// counts.
	if now.After(rec.burstReset) {
		rec.burstCount = 0
		rec.burstReset = now.Add(limits.BurstWindow)
	}
	if now.After(rec.mainReset) {
		rec.mainCount = 0
		rec.mainReset = now.Add(limits.MainWindow)
	}

	// 2. Effective ceilings for the tier, scaled by history.
	effMain, effBurst := l.adaptLocked(rec, limits)

	// 3. Burst window: short duration, higher ceiling, checked first.
	if rec.burstCount >= effBurst {
		l.failureLocked(key, now)
		return Decision{
			Allowed:    false,
			Reason:     ReasonBurstLimit,
			Remaining:  max(effMain-rec.mainCount, 0),
			RetryAfter: rec.burstReset.Sub(now),
			ResetTime:  rec.burstReset,
		}
	}
	rec.burstCount++

	// 4. Main window.
	if rec.mainCount >= effMain {
		l.failureLocked(key, now)
		return Decision{
			Allowed:    false,
			Reason:     ReasonRateLimit,
			RetryAfter: rec.mainReset.Sub(now),
			ResetTime:  rec.mainReset,
		}
	}
	rec.mainCount++

	return Decision{
		Allowed:   true,
		Remaining: effMain - rec.mainCount,
		ResetTime: rec.mainReset,
	}
}

// ReportSuccess records that an admitted request for key completed
// successfully. A success closes a half-open circuit and resets the
// failure streak; breakers with nothing left to remember are dropped.
func (l *Limiter) ReportSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec := l.records[key]; rec != nil {
		rec.successes++
	}
	if b := l.breakers[key]; b != nil {
		b.success()
		if b.idle() {
			delete(l.breakers, key)
		}
	}
}

// ReportFailure records that an admitted request for key failed
// downstream. It feeds both the breaker and the error-rate history.
func (l *Limiter) ReportFailure(key string) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if rec := l.records[key]; rec != nil {
		rec.failures++
	}
	l.failureLocked(key, now)
}

// BreakerState returns the breaker position for key, for visibility.
func (l *Limiter) BreakerState(key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b := l.breakers[key]; b != nil {
		return b.state.String()
	}
	return breakerClosed.String()
}

// Keys returns the number of tracked rate-limit records.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Limiter) limitsFor(tier core.Tier) TierLimits {
	if limits, ok := l.tiers[tier]; ok {
		return limits
	}
	return l.tiers[core.TierDefault]
}

// adaptLocked derives the effective ceilings: near-capacity keys with a
// clean history earn headroom, error-prone keys are squeezed. Both
// directions are bounded and the floor is one request.
func (l *Limiter) adaptLocked(rec *record, limits TierLimits) (effMain, effBurst int) {
	effMain, effBurst = limits.MainLimit, limits.BurstLimit

	rate, ok := rec.errorRate()
	if !ok {
		return effMain, effBurst
	}

	load := float64(rec.mainCount) / float64(limits.MainLimit)
	switch {
	case rate <= lowErrorRate && load >= scaleUpLoad:
		effMain = int(float64(limits.MainLimit) * scaleUpFactor)
		effBurst = int(float64(limits.BurstLimit) * scaleUpFactor)
	case rate >= highErrorRate:
		effMain = max(int(float64(limits.MainLimit)*scaleDownFactor), 1)
		effBurst = max(int(float64(limits.BurstLimit)*scaleDownFactor), 1)
	}
	return effMain, effBurst
}

// recordLocked returns the window record for key, creating it on first
// use and opportunistically sweeping stale records when the map has
// grown past the threshold.
func (l *Limiter) recordLocked(key string, now time.Time) *record {
	rec := l.records[key]
	if rec != nil {
		return rec
	}

	if len(l.records) >= recordSweepThreshold {
		l.sweepLocked(now)
	}

	rec = &record{}
	l.records[key] = rec
	return rec
}

func (l *Limiter) failureLocked(key string, now time.Time) {
	b := l.breakers[key]
	if b == nil {
		b = &breaker{}
		l.breakers[key] = b
	}
	prev := b.state
	if state := b.failure(now, l.breakerThreshold, l.openTimeout); state != prev {
		l.logger.Warn("circuit breaker transition", "key", key, "from", prev.String(), "to", state.String())
	}
}

// sweepLocked drops records for keys whose windows have both expired,
// meaning the key has been quiet for at least a full window.
func (l *Limiter) sweepLocked(now time.Time) {
	for key, rec := range l.records {
		if now.After(rec.mainReset) && now.After(rec.burstReset) {
			delete(l.records, key)
		}
	}
}
