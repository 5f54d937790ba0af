package store

import (
	"context"
	"errors"
	"time"

	"github.com/serroba/vault-demo-go/internal/kv"
	"github.com/serroba/vault-demo-go/internal/vault"
)

// VaultStore implements vault.Repository on top of the concurrent TTL store.
type VaultStore struct {
	kv *kv.Store[vault.Item]
}

// NewVaultStore creates a repository backed by the given kv store.
func NewVaultStore(s *kv.Store[vault.Item]) *VaultStore {
	return &VaultStore{kv: s}
}

func (s *VaultStore) Create(ctx context.Context, item *vault.Item, ttl time.Duration) error {
	if err := s.kv.Create(ctx, item.ID, *item, ttl); err != nil {
		return translate(err)
	}

	s.stampExpiry(ctx, item)

	return nil
}

func (s *VaultStore) Put(ctx context.Context, item *vault.Item, ttl time.Duration) error {
	if err := s.kv.Put(ctx, item.ID, *item, ttl); err != nil {
		return translate(err)
	}

	s.stampExpiry(ctx, item)

	return nil
}

func (s *VaultStore) Get(ctx context.Context, id string) (*vault.Item, error) {
	entry, err := s.kv.GetEntry(ctx, id)
	if err != nil {
		return nil, translate(err)
	}

	item := entry.Value
	item.ExpiresAt = entry.ExpiresAt

	return &item, nil
}

func (s *VaultStore) Delete(ctx context.Context, id string) (*vault.Item, error) {
	item, err := s.kv.Delete(ctx, id)
	if err != nil {
		return nil, translate(err)
	}

	return &item, nil
}

func (s *VaultStore) List(ctx context.Context) ([]*vault.Item, error) {
	entries := s.kv.List(ctx)

	items := make([]*vault.Item, 0, len(entries))

	for _, entry := range entries {
		item := entry.Value
		item.ExpiresAt = entry.ExpiresAt
		items = append(items, &item)
	}

	return items, nil
}

// stampExpiry copies the expiry instant the store assigned onto the item so
// callers can surface it.
func (s *VaultStore) stampExpiry(ctx context.Context, item *vault.Item) {
	if entry, err := s.kv.GetEntry(ctx, item.ID); err == nil {
		item.ExpiresAt = entry.ExpiresAt
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return vault.ErrNotFound
	case errors.Is(err, kv.ErrAlreadyExists):
		return vault.ErrAlreadyExists
	case errors.Is(err, kv.ErrWriterUnavailable):
		return vault.ErrUnavailable
	default:
		return err
	}
}
