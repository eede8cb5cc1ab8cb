// Package ratelimit implements C3: a token-bucket limiter sized from the
// active trading mode, guarding every broker REST call.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate with the fixed "N requests per
// 1-second rolling window" contract spec.md §4.3 describes. rate.Limiter
// already serializes Wait callers behind its own mutex, which satisfies the
// "single mutex guards the counter" invariant without a second lock here.
// ⭐ SSOT: 브로커 REST 호출은 이 리미터를 거쳐야 함
type Limiter struct {
	inner *rate.Limiter
}

// New creates a limiter admitting n requests per second, with a burst of n
// so a cold start can spend the whole window's budget immediately.
func New(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{inner: rate.NewLimiter(rate.Limit(n), n)}
}

// ForMode selects capacity per spec.md §4.3: paper uses a small N (≈2),
// live uses a large N (≈19).
func ForMode(isVirtual bool, paperN, liveN int) *Limiter {
	if isVirtual {
		return New(paperN)
	}
	return New(liveN)
}

// Wait blocks until a token is available or the context is cancelled. It
// waits up to one window if saturated, matching "acquire(blocking=true)".
func (l *Limiter) Wait(ctx context.Context) error {
	return l.inner.Wait(ctx)
}

// Allow reports whether a token is immediately available, consuming it if so.
func (l *Limiter) Allow() bool {
	return l.inner.Allow()
}
