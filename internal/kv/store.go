// Package kv implements an in-process key-value store with per-entry TTL
// eviction. Reads never take a lock: they dereference the latest published
// immutable snapshot of the map. Writes are serialized through a single
// writer role and publish a new snapshot atomically, so readers observe a
// view that is at most one write behind and never partially applied.
package kv

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or its TTL has passed.
	ErrNotFound = errors.New("key not found")

	// ErrAlreadyExists is returned by Create when the key is already live.
	ErrAlreadyExists = errors.New("key already exists")

	// ErrWriterUnavailable is returned when the writer role could not be
	// acquired within the configured wait. The operation did not happen and
	// can be retried.
	ErrWriterUnavailable = errors.New("writer unavailable")
)

// DefaultWriteWait bounds how long a write blocks waiting for the writer role.
const DefaultWriteWait = time.Second

// Entry is a keyed value together with its expiry metadata.
type Entry[V any] struct {
	Key       string
	Value     V
	ExpiresAt time.Time // zero when the entry never expires
}

type record[V any] struct {
	value     V
	expiresAt time.Time
}

func (r record[V]) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && !r.expiresAt.After(now)
}

// UpdateFunc computes the next value for a key from its current state.
// ok reports whether the key is live. Returning write == false leaves the
// store untouched.
type UpdateFunc[V any] func(cur V, ok bool) (next V, ttl time.Duration, write bool)

// Store is a concurrently-accessible map with copy-on-write snapshots.
// Readers load the current snapshot without synchronization beyond the
// atomic pointer; at most one writer mutates at a time, holding a token
// acquired with a bounded wait.
type Store[V any] struct {
	snapshot  atomic.Pointer[map[string]record[V]]
	writer    chan struct{} // capacity-1 writer token
	queue     *expiryQueue  // touched only while holding the writer token
	writeWait time.Duration
	now       func() time.Time
}

// Option configures a Store.
type Option[V any] func(*Store[V])

// WithWriteWait overrides how long writes wait for the writer role before
// failing with ErrWriterUnavailable.
func WithWriteWait[V any](d time.Duration) Option[V] {
	return func(s *Store[V]) {
		s.writeWait = d
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *Store[V]) {
		s.now = now
	}
}

// NewStore creates an empty store.
func NewStore[V any](opts ...Option[V]) *Store[V] {
	s := &Store[V]{
		writer:    make(chan struct{}, 1),
		queue:     newExpiryQueue(),
		writeWait: DefaultWriteWait,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	empty := make(map[string]record[V])
	s.snapshot.Store(&empty)

	return s
}

// acquire takes the writer token, waiting at most writeWait.
func (s *Store[V]) acquire(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(s.writeWait)
	defer timer.Stop()

	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriterUnavailable
	}
}

func (s *Store[V]) release() {
	<-s.writer
}

// Get returns the live value for key. An entry whose TTL has passed reads
// as absent even before the sweep physically removes it.
func (s *Store[V]) Get(ctx context.Context, key string) (V, error) {
	entry, err := s.GetEntry(ctx, key)

	return entry.Value, err
}

// GetEntry returns the live value for key along with its expiry instant.
func (s *Store[V]) GetEntry(_ context.Context, key string) (Entry[V], error) {
	snap := *s.snapshot.Load()

	rec, ok := snap[key]
	if !ok || rec.expired(s.now()) {
		return Entry[V]{}, ErrNotFound
	}

	return Entry[V]{Key: key, Value: rec.value, ExpiresAt: rec.expiresAt}, nil
}

// Put upserts key. A ttl greater than zero schedules the entry for eviction;
// the expiry record is registered in the same critical section as the map
// update. Overwriting a TTL'd entry leaves the old record in the queue as a
// tombstone, which the sweep recognizes and discards.
func (s *Store[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.write(key, value, ttl)

	return nil
}

// Create inserts key, failing with ErrAlreadyExists if it is live.
func (s *Store[V]) Create(ctx context.Context, key string, value V, ttl time.Duration) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	snap := *s.snapshot.Load()
	if rec, ok := snap[key]; ok && !rec.expired(s.now()) {
		return ErrAlreadyExists
	}

	s.write(key, value, ttl)

	return nil
}

// Delete removes key and returns its value, or ErrNotFound if absent.
// Deleting an absent key has no side effects.
func (s *Store[V]) Delete(ctx context.Context, key string) (V, error) {
	var zero V

	if err := s.acquire(ctx); err != nil {
		return zero, err
	}
	defer s.release()

	snap := *s.snapshot.Load()

	rec, ok := snap[key]
	if !ok || rec.expired(s.now()) {
		return zero, ErrNotFound
	}

	next := maps.Clone(snap)
	delete(next, key)
	s.snapshot.Store(&next)

	return rec.value, nil
}

// Update applies fn to the current value of key under the writer role, so
// concurrent read-modify-write cycles never lose updates. When fn asks for
// a write, exactly one new snapshot is published.
func (s *Store[V]) Update(ctx context.Context, key string, fn UpdateFunc[V]) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	snap := *s.snapshot.Load()

	var cur V

	rec, ok := snap[key]
	if ok && rec.expired(s.now()) {
		ok = false
	}

	if ok {
		cur = rec.value
	}

	next, ttl, write := fn(cur, ok)
	if !write {
		return nil
	}

	s.write(key, next, ttl)

	return nil
}

// List returns the live entries sorted by key. It reads a single snapshot,
// so the result is internally consistent even while writes continue.
func (s *Store[V]) List(_ context.Context) []Entry[V] {
	snap := *s.snapshot.Load()
	now := s.now()

	entries := make([]Entry[V], 0, len(snap))

	for key, rec := range snap {
		if rec.expired(now) {
			continue
		}

		entries = append(entries, Entry[V]{Key: key, Value: rec.value, ExpiresAt: rec.expiresAt})
	}

	slices.SortFunc(entries, func(a, b Entry[V]) int {
		return strings.Compare(a.Key, b.Key)
	})

	return entries
}

// write applies a single upsert and publishes the next snapshot.
// Callers must hold the writer token.
func (s *Store[V]) write(key string, value V, ttl time.Duration) {
	rec := record[V]{value: value}
	if ttl > 0 {
		rec.expiresAt = s.now().Add(ttl)
		s.queue.push(key, rec.expiresAt)
	}

	next := maps.Clone(*s.snapshot.Load())
	next[key] = rec
	s.snapshot.Store(&next)
}

// sweep pops expired records off the queue and removes the matching live
// entries, publishing at most one new snapshot for the whole pass. A popped
// record only causes a deletion if the live entry's expiry instant still
// equals the record's; anything else is a tombstone from a delete or a TTL
// overwrite and is dropped. Work done is proportional to the number of
// expired records, never to the number of live entries.
func (s *Store[V]) sweep(ctx context.Context, now time.Time) ([]Entry[V], error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	cur := *s.snapshot.Load()

	var (
		next    map[string]record[V]
		evicted []Entry[V]
	)

	for {
		key, at, ok := s.queue.peekMin()
		if !ok || at.After(now) {
			break
		}

		s.queue.popMin()

		live := cur
		if next != nil {
			live = next
		}

		rec, ok := live[key]
		if !ok || !rec.expiresAt.Equal(at) {
			continue
		}

		if next == nil {
			next = maps.Clone(cur)
		}

		delete(next, key)

		evicted = append(evicted, Entry[V]{Key: key, Value: rec.value, ExpiresAt: at})
	}

	if next != nil {
		s.snapshot.Store(&next)
	}

	return evicted, nil
}
