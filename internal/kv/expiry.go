package kv

import (
	"container/heap"
	"time"
)

// expiryRecord marks the instant a key was scheduled to expire when it was
// written. Records are never removed in place: a record whose instant no
// longer matches the live entry (the key was deleted or rewritten with a
// new TTL) is a tombstone, recognized and discarded during the sweep.
type expiryRecord struct {
	key string
	at  time.Time
}

// recordHeap orders records by expiry instant ascending, ties broken by key
// so draining is deterministic.
type recordHeap []expiryRecord

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}

	return h[i].key < h[j].key
}

func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x any) { *h = append(*h, x.(expiryRecord)) }

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	rec := old[n-1]
	*h = old[:n-1]

	return rec
}

// expiryQueue is the time-ordered side structure that lets the sweep find
// expired entries without scanning the key space. It deliberately has no
// delete-by-key operation; staleness is handled by the consumer instead.
//
// The queue is not internally synchronized: pushes happen on the write path
// and pops happen during the sweep, both under the store's writer token.
type expiryQueue struct {
	h recordHeap
}

func newExpiryQueue() *expiryQueue {
	return &expiryQueue{}
}

func (q *expiryQueue) push(key string, at time.Time) {
	heap.Push(&q.h, expiryRecord{key: key, at: at})
}

func (q *expiryQueue) peekMin() (string, time.Time, bool) {
	if len(q.h) == 0 {
		return "", time.Time{}, false
	}

	return q.h[0].key, q.h[0].at, true
}

func (q *expiryQueue) popMin() (string, time.Time, bool) {
	if len(q.h) == 0 {
		return "", time.Time{}, false
	}

	rec, _ := heap.Pop(&q.h).(expiryRecord)

	return rec.key, rec.at, true
}

func (q *expiryQueue) size() int {
	return len(q.h)
}
