package ratelimit

import "time"

// breakerState is the circuit breaker state machine position.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// breaker tracks consecutive failures for one key. It is owned by the
// Limiter and only ever touched under the Limiter's mutex.
//
// Transitions: closed --(threshold consecutive failures)--> open
// --(open timeout elapses)--> half-open --(success)--> closed, while
// any failure in half-open reopens with a fresh timer.
type breaker struct {
	state               breakerState
	consecutiveFailures int
	probeAt             time.Time
}

// failure records one failure and returns the resulting state.
func (b *breaker) failure(now time.Time, threshold int, openTimeout time.Duration) breakerState {
	b.consecutiveFailures++
	switch b.state {
	case breakerHalfOpen:
		b.state = breakerOpen
		b.probeAt = now.Add(openTimeout)
	case breakerClosed:
		if b.consecutiveFailures >= threshold {
			b.state = breakerOpen
			b.probeAt = now.Add(openTimeout)
		}
	case breakerOpen:
		// Already ejected; the open timer is not restarted by
		// rejections that arrive while open.
	}
	return b.state
}

// success records one success and returns the resulting state.
func (b *breaker) success() breakerState {
	b.consecutiveFailures = 0
	if b.state == breakerHalfOpen {
		b.state = breakerClosed
	}
	return b.state
}

// gate is evaluated at the start of every Check. It returns the time
// remaining until a probe is allowed, or zero if requests may proceed.
// An elapsed open period moves the breaker to half-open.
func (b *breaker) gate(now time.Time) time.Duration {
	if b.state != breakerOpen {
		return 0
	}
	if remaining := b.probeAt.Sub(now); remaining > 0 {
		return remaining
	}
	b.state = breakerHalfOpen
	return 0
}

// idle reports whether the breaker carries no state worth keeping, so
// it can be garbage-collected.
func (b *breaker) idle() bool {
	return b.state == breakerClosed && b.consecutiveFailures == 0
}
