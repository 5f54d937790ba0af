package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/vault-demo-go/internal/kv"
	"github.com/serroba/vault-demo-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(window time.Duration, defaultLimit int64) *ratelimit.FixedWindowLimiter {
	store := kv.NewStore[ratelimit.Window]()
	policy := ratelimit.NewPolicy(window, defaultLimit)

	return ratelimit.NewFixedWindowLimiter(store, policy)
}

func TestFixedWindowLimiter_Admit(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fixed window semantics", func(t *testing.T) {
		limiter := newLimiter(60*time.Second, 3)

		for i := range 3 {
			decision, err := limiter.Admit(context.Background(), "key1", "POST /vault", base.Add(time.Duration(i)*time.Second))

			require.NoError(t, err)
			assert.True(t, decision.Allowed, "call at t=%d should be allowed", i)
		}

		decision, err := limiter.Admit(context.Background(), "key1", "POST /vault", base.Add(3*time.Second))

		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(57), decision.RetryAfterSeconds())

		// A fresh window opens once the old one has elapsed.
		decision, err = limiter.Admit(context.Background(), "key1", "POST /vault", base.Add(61*time.Second))

		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("deny does not consume window capacity", func(t *testing.T) {
		limiter := newLimiter(60*time.Second, 1)

		decision, err := limiter.Admit(context.Background(), "key1", "GET /vault/items", base)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)

		// Repeated denies keep reporting against the same window start.
		for i := 1; i <= 3; i++ {
			decision, err = limiter.Admit(context.Background(), "key1", "GET /vault/items", base.Add(time.Duration(i)*time.Second))

			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, int64(60-i), decision.RetryAfterSeconds())
		}
	})

	t.Run("retry after rounds up to whole seconds", func(t *testing.T) {
		limiter := newLimiter(60*time.Second, 1)

		_, err := limiter.Admit(context.Background(), "key1", "r", base)
		require.NoError(t, err)

		decision, err := limiter.Admit(context.Background(), "key1", "r", base.Add(2500*time.Millisecond))

		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(58), decision.RetryAfterSeconds(), "57.5s remaining rounds up to 58")
	})

	t.Run("tracks api keys independently", func(t *testing.T) {
		limiter := newLimiter(60*time.Second, 1)

		decision, _ := limiter.Admit(context.Background(), "key1", "r", base)
		assert.True(t, decision.Allowed)

		decision, _ = limiter.Admit(context.Background(), "key1", "r", base)
		assert.False(t, decision.Allowed)

		decision, err := limiter.Admit(context.Background(), "key2", "r", base)

		require.NoError(t, err)
		assert.True(t, decision.Allowed, "a different api key has its own window")
	})

	t.Run("tracks routes independently", func(t *testing.T) {
		limiter := newLimiter(60*time.Second, 1)

		decision, _ := limiter.Admit(context.Background(), "key1", "POST /vault", base)
		assert.True(t, decision.Allowed)

		decision, _ = limiter.Admit(context.Background(), "key1", "POST /vault", base)
		assert.False(t, decision.Allowed)

		decision, err := limiter.Admit(context.Background(), "key1", "GET /vault/items", base)

		require.NoError(t, err)
		assert.True(t, decision.Allowed, "a different route has its own window")
	})

	t.Run("uses per-route limits from the policy", func(t *testing.T) {
		store := kv.NewStore[ratelimit.Window]()
		policy := ratelimit.NewPolicy(60*time.Second, 100)
		policy.SetRouteLimit("POST /vault", 2)
		limiter := ratelimit.NewFixedWindowLimiter(store, policy)

		for range 2 {
			decision, _ := limiter.Admit(context.Background(), "key1", "POST /vault", base)
			assert.True(t, decision.Allowed)
		}

		decision, _ := limiter.Admit(context.Background(), "key1", "POST /vault", base)
		assert.False(t, decision.Allowed)
	})

	t.Run("AdmitN overrides the policy limit", func(t *testing.T) {
		limiter := newLimiter(60*time.Second, 100)

		decision, err := limiter.AdmitN(context.Background(), "key1", "r", 1, base)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)

		decision, err = limiter.AdmitN(context.Background(), "key1", "r", 1, base)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
	})

	t.Run("deny does not wait on the writer role", func(t *testing.T) {
		store := kv.NewStore(kv.WithWriteWait[ratelimit.Window](50 * time.Millisecond))
		policy := ratelimit.NewPolicy(60*time.Second, 1)
		limiter := ratelimit.NewFixedWindowLimiter(store, policy)

		decision, err := limiter.Admit(context.Background(), "key1", "r", base)
		require.NoError(t, err)
		require.True(t, decision.Allowed)

		// Park the writer role so any store write would time out.
		held := make(chan struct{})
		release := make(chan struct{})

		go func() {
			_ = store.Update(context.Background(), "other", func(cur ratelimit.Window, _ bool) (ratelimit.Window, time.Duration, bool) {
				close(held)
				<-release

				return cur, 0, false
			})
		}()

		<-held

		defer close(release)

		decision, err = limiter.Admit(context.Background(), "key1", "r", base.Add(time.Second))

		require.NoError(t, err, "an over-limit admit must not touch the writer role")
		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(59), decision.RetryAfterSeconds())
	})

	t.Run("concurrent admits never exceed the limit", func(t *testing.T) {
		const limit = 20

		limiter := newLimiter(60*time.Second, limit)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)

		for range 50 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				decision, err := limiter.Admit(context.Background(), "key1", "r", base)
				if err == nil && decision.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, limit, allowed)
	})
}
