package ratelimit

import (
	"context"
	"time"

	"github.com/serroba/vault-demo-go/internal/kv"
)

// Window is the fixed counting window tracked per (api key, route).
// Windows self-reset lazily at decision time, so they are stored without a
// TTL and never go through the background sweep.
type Window struct {
	Count       int64
	WindowStart time.Time
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // populated on deny, rounded up to whole seconds
}

// RetryAfterSeconds returns the deny wait as whole seconds for user display.
func (d Decision) RetryAfterSeconds() int64 {
	return int64(d.RetryAfter / time.Second)
}

// Store holds window state. Implemented by kv.Store[Window].
type Store interface {
	GetEntry(ctx context.Context, key string) (kv.Entry[Window], error)
	Update(ctx context.Context, key string, fn kv.UpdateFunc[Window]) error
}

// Limiter decides whether an inbound call may proceed.
type Limiter interface {
	Admit(ctx context.Context, apiKey, route string, now time.Time) (Decision, error)
}

// FixedWindowLimiter counts calls per (api key, route) in discrete,
// non-overlapping windows of fixed length. A burst of up to twice the
// limit can cross a window boundary; that approximation is the contract
// here, deliberately not a sliding window.
type FixedWindowLimiter struct {
	store  Store
	policy *Policy
}

// NewFixedWindowLimiter creates a limiter over the given window store.
func NewFixedWindowLimiter(store Store, policy *Policy) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:  store,
		policy: policy,
	}
}

// Admit records one call for (apiKey, route) at now and decides allow or
// deny. Every allowed call performs exactly one store write; a deny leaves
// the window untouched and carries the wait until it resets.
func (l *FixedWindowLimiter) Admit(ctx context.Context, apiKey, route string, now time.Time) (Decision, error) {
	return l.AdmitN(ctx, apiKey, route, l.policy.LimitFor(route), now)
}

// AdmitN is Admit with an explicit limit, for routes that carry their own
// limit in operation metadata instead of the policy table.
func (l *FixedWindowLimiter) AdmitN(ctx context.Context, apiKey, route string, limit int64, now time.Time) (Decision, error) {
	key := buildKey(apiKey, route)

	// A deny is decided against the published snapshot, so a caller already
	// over its limit gets the answer without waiting on the writer role. The
	// snapshot lags live state by at most one write; the closure below
	// re-checks under the writer token before counting.
	if entry, err := l.store.GetEntry(ctx, key); err == nil {
		if deny, decision := l.checkWindow(entry.Value, limit, now); deny {
			return decision, nil
		}
	}

	decision := Decision{Allowed: true}

	err := l.store.Update(ctx, key, func(cur Window, ok bool) (Window, time.Duration, bool) {
		if !ok || now.Sub(cur.WindowStart) >= l.policy.Window {
			return Window{Count: 1, WindowStart: now}, 0, true
		}

		if deny, denied := l.checkWindow(cur, limit, now); deny {
			decision = denied

			return cur, 0, false
		}

		cur.Count++

		return cur, 0, true
	})
	if err != nil {
		return Decision{}, err
	}

	return decision, nil
}

// checkWindow reports whether win denies an admit at now under limit. A
// window that elapsed or still has room never denies.
func (l *FixedWindowLimiter) checkWindow(win Window, limit int64, now time.Time) (bool, Decision) {
	if now.Sub(win.WindowStart) >= l.policy.Window || win.Count < limit {
		return false, Decision{Allowed: true}
	}

	remaining := l.policy.Window - now.Sub(win.WindowStart)

	return true, Decision{Allowed: false, RetryAfter: ceilSeconds(remaining)}
}

// buildKey combines the api key and route so each caller is tracked
// independently per route. The api key is used verbatim, never parsed.
func buildKey(apiKey, route string) string {
	return apiKey + ":" + route
}

func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}

	return secs * time.Second
}
