package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/regsearch/core"
)

// testClock is a manually advanced time source.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(t *testing.T, clock *testClock, opts ...Option) *Limiter {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	l, err := New(opts...)
	require.NoError(t, err)
	return l
}

func TestCheck_AllowsUnderLimits(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock)

	d := l.Check("acme", core.TierDefault)
	assert.True(t, d.Allowed)
	assert.Equal(t, 99, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetTime)
	assert.NoError(t, d.Err())
}

func TestCheck_BurstLimit(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock, WithTierLimits(core.TierDefault, TierLimits{
		MainLimit: 100, MainWindow: time.Minute,
		BurstLimit: 5, BurstWindow: 10 * time.Second,
	}))

	for i := 0; i < 5; i++ {
		d := l.Check("acme", core.TierDefault)
		require.True(t, d.Allowed, "call %d should be allowed", i+1)
	}

	d := l.Check("acme", core.TierDefault)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonBurstLimit, d.Reason)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.ErrorIs(t, d.Err(), ErrBurstLimited)

	// The burst window resets wholesale once its reset time passes.
	clock.Advance(11 * time.Second)
	d = l.Check("acme", core.TierDefault)
	assert.True(t, d.Allowed)
}

func TestCheck_MainLimit(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock, WithTierLimits(core.TierDefault, TierLimits{
		MainLimit: 100, MainWindow: time.Minute,
		BurstLimit: 200, BurstWindow: 10 * time.Second,
	}))

	for i := 0; i < 100; i++ {
		d := l.Check("acme", core.TierDefault)
		require.True(t, d.Allowed, "call %d should be allowed", i+1)
	}

	// The 101st request within the main window is rejected.
	d := l.Check("acme", core.TierDefault)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRateLimit, d.Reason)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.ErrorIs(t, d.Err(), ErrRateLimited)

	clock.Advance(61 * time.Second)
	d = l.Check("acme", core.TierDefault)
	assert.True(t, d.Allowed)
	assert.Equal(t, 99, d.Remaining)
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock, WithTierLimits(core.TierDefault, TierLimits{
		MainLimit: 2, MainWindow: time.Minute,
		BurstLimit: 10, BurstWindow: 10 * time.Second,
	}))

	l.Check("a", core.TierDefault)
	l.Check("a", core.TierDefault)
	assert.False(t, l.Check("a", core.TierDefault).Allowed)
	assert.True(t, l.Check("b", core.TierDefault).Allowed)
}

func TestCheck_TierCeilings(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock)

	d := l.Check("acme", core.TierEnterprise)
	require.True(t, d.Allowed)
	assert.Equal(t, 999, d.Remaining)

	// An unknown tier falls back to the default ceilings.
	d = l.Check("other", core.Tier(99))
	require.True(t, d.Allowed)
	assert.Equal(t, 99, d.Remaining)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock, WithBreaker(3, 30*time.Second))

	require.True(t, l.Check("acme", core.TierDefault).Allowed)
	for i := 0; i < 3; i++ {
		l.ReportFailure("acme")
	}
	assert.Equal(t, "open", l.BreakerState("acme"))

	// Rejected regardless of remaining window quota.
	d := l.Check("acme", core.TierDefault)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCircuitBreaker, d.Reason)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
	assert.ErrorIs(t, d.Err(), ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock, WithBreaker(3, 30*time.Second))

	for i := 0; i < 3; i++ {
		l.ReportFailure("acme")
	}
	require.False(t, l.Check("acme", core.TierDefault).Allowed)

	// After the open timeout the next call is allowed as a probe.
	clock.Advance(31 * time.Second)
	d := l.Check("acme", core.TierDefault)
	assert.True(t, d.Allowed)
	assert.Equal(t, "half-open", l.BreakerState("acme"))

	// A success closes the circuit and the breaker is collected.
	l.ReportSuccess("acme")
	assert.Equal(t, "closed", l.BreakerState("acme"))
	l.mu.Lock()
	_, kept := l.breakers["acme"]
	l.mu.Unlock()
	assert.False(t, kept, "idle breaker should be garbage-collected")
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock, WithBreaker(3, 30*time.Second))

	for i := 0; i < 3; i++ {
		l.ReportFailure("acme")
	}
	clock.Advance(31 * time.Second)
	require.True(t, l.Check("acme", core.TierDefault).Allowed)
	require.Equal(t, "half-open", l.BreakerState("acme"))

	// Any failure in half-open reopens with a fresh timer.
	l.ReportFailure("acme")
	assert.Equal(t, "open", l.BreakerState("acme"))

	d := l.Check("acme", core.TierDefault)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)
}

func TestCircuitBreaker_RejectionsCountAsFailures(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock,
		WithBreaker(3, 30*time.Second),
		WithTierLimits(core.TierDefault, TierLimits{
			MainLimit: 100, MainWindow: time.Minute,
			BurstLimit: 1, BurstWindow: 10 * time.Second,
		}))

	require.True(t, l.Check("acme", core.TierDefault).Allowed)

	// Three burst rejections in a row trip the breaker.
	for i := 0; i < 3; i++ {
		d := l.Check("acme", core.TierDefault)
		require.False(t, d.Allowed)
	}
	assert.Equal(t, "open", l.BreakerState("acme"))
}

func TestAdapt_ScalesUpNearCapacity(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock, WithTierLimits(core.TierDefault, TierLimits{
		MainLimit: 10, MainWindow: time.Minute,
		BurstLimit: 100, BurstWindow: 10 * time.Second,
	}))

	// Build a clean history so the error rate is known-low.
	require.True(t, l.Check("acme", core.TierDefault).Allowed)
	for i := 0; i < 12; i++ {
		l.ReportSuccess("acme")
	}

	// Fill to 80% of the base ceiling.
	for i := 0; i < 7; i++ {
		require.True(t, l.Check("acme", core.TierDefault).Allowed)
	}

	// Beyond the base ceiling of 10, the scaled ceiling of 15 applies.
	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Check("acme", core.TierDefault).Allowed {
			allowed++
		}
	}
	assert.Equal(t, 7, allowed, "scaled ceiling should admit 15 in total")
}

func TestAdapt_ScalesDownOnHighErrorRate(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock,
		WithBreaker(1000, 30*time.Second),
		WithTierLimits(core.TierDefault, TierLimits{
			MainLimit: 10, MainWindow: time.Minute,
			BurstLimit: 100, BurstWindow: 10 * time.Second,
		}))

	require.True(t, l.Check("acme", core.TierDefault).Allowed)
	for i := 0; i < 12; i++ {
		l.ReportFailure("acme")
	}

	// Ceiling is squeezed to half: 5 requests total, 4 more after the
	// one above.
	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Check("acme", core.TierDefault).Allowed {
			allowed++
		}
	}
	assert.Equal(t, 4, allowed)
}

func TestAdapt_FreshWindowIsNotJudgedByStaleLoad(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock, WithTierLimits(core.TierDefault, TierLimits{
		MainLimit: 10, MainWindow: time.Minute,
		BurstLimit: 100, BurstWindow: 10 * time.Second,
	}))

	// Clean history plus a near-capacity window.
	require.True(t, l.Check("acme", core.TierDefault).Allowed)
	for i := 0; i < 12; i++ {
		l.ReportSuccess("acme")
	}
	for i := 0; i < 7; i++ {
		require.True(t, l.Check("acme", core.TierDefault).Allowed)
	}

	// After the window expires the first request starts a fresh window
	// at zero load, so the base ceiling applies, not the scaled one.
	clock.Advance(61 * time.Second)
	d := l.Check("acme", core.TierDefault)
	require.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

func TestRecordSweep(t *testing.T) {
	clock := newTestClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < recordSweepThreshold; i++ {
		l.Check(string(rune('a'))+time.Duration(i).String(), core.TierDefault)
	}
	require.Equal(t, recordSweepThreshold, l.Keys())

	// Once every window has expired, the next new key triggers a sweep.
	clock.Advance(2 * time.Minute)
	l.Check("fresh", core.TierDefault)
	assert.Equal(t, 1, l.Keys())
}
