package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/vault-demo-go/internal/kv"
	"github.com/serroba/vault-demo-go/internal/store"
	"github.com/serroba/vault-demo-go/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVaultStore() *store.VaultStore {
	return store.NewVaultStore(kv.NewStore[vault.Item]())
}

func TestVaultStore_Create(t *testing.T) {
	t.Run("creates item and stamps expiry", func(t *testing.T) {
		s := newVaultStore()
		item := &vault.Item{ID: "id1", Data: "secret", CreatedAt: time.Now()}

		err := s.Create(context.Background(), item, time.Hour)

		require.NoError(t, err)
		assert.False(t, item.ExpiresAt.IsZero())
	})

	t.Run("returns ErrAlreadyExists on conflict", func(t *testing.T) {
		s := newVaultStore()
		_ = s.Create(context.Background(), &vault.Item{ID: "id1", Data: "a"}, 0)

		err := s.Create(context.Background(), &vault.Item{ID: "id1", Data: "b"}, 0)

		assert.ErrorIs(t, err, vault.ErrAlreadyExists)
	})
}

func TestVaultStore_PutGet(t *testing.T) {
	t.Run("upserts and reads back", func(t *testing.T) {
		s := newVaultStore()
		item := &vault.Item{ID: "id1", Data: "v1"}

		require.NoError(t, s.Put(context.Background(), item, 0))

		got, err := s.Get(context.Background(), "id1")

		require.NoError(t, err)
		assert.Equal(t, "v1", got.Data)
		assert.True(t, got.ExpiresAt.IsZero())
	})

	t.Run("put overwrites an existing item", func(t *testing.T) {
		s := newVaultStore()
		_ = s.Put(context.Background(), &vault.Item{ID: "id1", Data: "v1"}, 0)
		_ = s.Put(context.Background(), &vault.Item{ID: "id1", Data: "v2"}, 0)

		got, err := s.Get(context.Background(), "id1")

		require.NoError(t, err)
		assert.Equal(t, "v2", got.Data)
	})

	t.Run("returns ErrNotFound for absent id", func(t *testing.T) {
		s := newVaultStore()

		_, err := s.Get(context.Background(), "missing")

		assert.ErrorIs(t, err, vault.ErrNotFound)
	})
}

func TestVaultStore_Delete(t *testing.T) {
	t.Run("deletes and returns the item", func(t *testing.T) {
		s := newVaultStore()
		_ = s.Put(context.Background(), &vault.Item{ID: "id1", Data: "v1"}, 0)

		item, err := s.Delete(context.Background(), "id1")

		require.NoError(t, err)
		assert.Equal(t, "v1", item.Data)

		_, err = s.Get(context.Background(), "id1")
		assert.ErrorIs(t, err, vault.ErrNotFound)
	})

	t.Run("deleting twice returns ErrNotFound", func(t *testing.T) {
		s := newVaultStore()
		_ = s.Put(context.Background(), &vault.Item{ID: "id1"}, 0)

		_, err := s.Delete(context.Background(), "id1")
		require.NoError(t, err)

		_, err = s.Delete(context.Background(), "id1")
		assert.ErrorIs(t, err, vault.ErrNotFound)
	})
}

func TestVaultStore_List(t *testing.T) {
	s := newVaultStore()
	_ = s.Put(context.Background(), &vault.Item{ID: "b", Data: "2"}, 0)
	_ = s.Put(context.Background(), &vault.Item{ID: "a", Data: "1"}, 0)

	items, err := s.List(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
}
