package health_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/vault-demo-go/internal/health"
	"github.com/serroba/vault-demo-go/internal/kv"
	"github.com/serroba/vault-demo-go/internal/store"
	"github.com/serroba/vault-demo-go/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	err error
}

func (m *mockChecker) Ping(_ context.Context) error {
	return m.err
}

func newRepo() vault.Repository {
	return store.NewVaultStore(kv.NewStore[vault.Item]())
}

func TestHandler_Check(t *testing.T) {
	t.Run("returns ok when redis is healthy", func(t *testing.T) {
		handler := health.NewHandler(&mockChecker{err: nil}, newRepo())

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Equal(t, "healthy", resp.Body.Redis)
	})

	t.Run("returns degraded when redis is unhealthy", func(t *testing.T) {
		handler := health.NewHandler(&mockChecker{err: errors.New("connection refused")}, newRepo())

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "degraded", resp.Body.Status)
		assert.Equal(t, "unhealthy", resp.Body.Redis)
	})

	t.Run("reports the live item count", func(t *testing.T) {
		repo := newRepo()
		require.NoError(t, repo.Put(context.Background(), &vault.Item{ID: "a", Data: "1"}, 0))
		require.NoError(t, repo.Put(context.Background(), &vault.Item{ID: "b", Data: "2"}, 0))

		handler := health.NewHandler(&mockChecker{}, repo)

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 2, resp.Body.Items)
	})
}

func TestRedisChecker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	t.Run("Ping returns nil when redis is available", func(t *testing.T) {
		checker := health.NewRedisChecker(client)

		err := checker.Ping(context.Background())

		assert.NoError(t, err)
	})
}
