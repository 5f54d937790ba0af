package vault

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no live item exists for an ID.
	ErrNotFound = errors.New("vault item not found")

	// ErrAlreadyExists is returned when creating an item whose ID is taken.
	ErrAlreadyExists = errors.New("vault item already exists")

	// ErrUnavailable is returned when the store's writer role could not be
	// acquired in time. The operation can be retried.
	ErrUnavailable = errors.New("vault store unavailable")
)

// Item is a vault entry. Data is an opaque payload the service never
// interprets.
type Item struct {
	ID        string
	Data      string
	CreatedAt time.Time
	ExpiresAt time.Time // zero when the item never expires
}

// IDGenerator produces unique vault item IDs.
type IDGenerator func() string

// Repository defines storage for vault items. A ttl greater than zero
// schedules the item for eviction that many seconds after the write.
type Repository interface {
	// Create inserts a new item, failing with ErrAlreadyExists when the ID
	// is already live.
	Create(ctx context.Context, item *Item, ttl time.Duration) error

	// Put upserts an item.
	Put(ctx context.Context, item *Item, ttl time.Duration) error

	// Get returns the live item for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Item, error)

	// Delete removes the item for id and returns it, or ErrNotFound.
	Delete(ctx context.Context, id string) (*Item, error)

	// List returns all live items ordered by ID.
	List(ctx context.Context) ([]*Item, error)
}
