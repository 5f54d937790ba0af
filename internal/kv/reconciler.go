package kv

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultReconcileInterval is how often the reconciler sweeps by default.
const DefaultReconcileInterval = time.Second

// EvictFunc is called once per entry removed by a sweep.
type EvictFunc[V any] func(entry Entry[V])

// Reconciler periodically drains expired records from a store's expiry
// queue and removes the matching entries, keeping the queue and the map
// consistent. A pass that cannot acquire the writer role is simply retried
// on the next tick; entries are delayed past their nominal TTL, never lost.
type Reconciler[V any] struct {
	store    *Store[V]
	interval time.Duration
	onEvict  EvictFunc[V]
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption[V any] func(*Reconciler[V])

// WithOnEvict registers a callback invoked for every evicted entry, outside
// the writer critical section.
func WithOnEvict[V any](fn EvictFunc[V]) ReconcilerOption[V] {
	return func(r *Reconciler[V]) {
		r.onEvict = fn
	}
}

// NewReconciler creates a reconciler for store sweeping every interval.
func NewReconciler[V any](
	store *Store[V],
	interval time.Duration,
	logger *zap.Logger,
	opts ...ReconcilerOption[V],
) *Reconciler[V] {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}

	r := &Reconciler[V]{
		store:    store,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start launches the background sweep loop.
func (r *Reconciler[V]) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	go r.run(ctx)

	return nil
}

func (r *Reconciler[V]) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx, time.Now()); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}

				// Writer busy: retry on the next tick, never kill the loop.
				r.logger.Debug("sweep skipped", zap.Error(err))
			}
		}
	}
}

// Sweep runs one reconciliation pass against now and returns how many
// entries were evicted. The loop calls this every tick; tests call it
// directly with a controlled instant.
func (r *Reconciler[V]) Sweep(ctx context.Context, now time.Time) (int, error) {
	evicted, err := r.store.sweep(ctx, now)
	if err != nil {
		return 0, err
	}

	if r.onEvict != nil {
		for _, entry := range evicted {
			r.onEvict(entry)
		}
	}

	if len(evicted) > 0 {
		r.logger.Debug("evicted expired entries", zap.Int("count", len(evicted)))
	}

	return len(evicted), nil
}

// Shutdown stops the sweep loop and waits for the in-flight pass to finish.
// It never interrupts a pass mid-write; the writer token is released before
// the loop observes cancellation. Shutdown without a prior Start is a no-op.
func (r *Reconciler[V]) Shutdown() error {
	if r.cancel == nil {
		return nil
	}

	r.cancel()
	<-r.done

	return nil
}
