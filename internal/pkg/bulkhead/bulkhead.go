// Package bulkhead bounds concurrent calls to one dependency: a fixed number
// of execution slots plus a bounded wait queue. Calls beyond both are rejected
// immediately.
package bulkhead

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var ErrRejected = errors.New("bulkhead rejected: too many concurrent calls")

type Bulkhead struct {
	slots    *semaphore.Weighted
	admitted atomic.Int64 // running + queued
	running  atomic.Int64
	limit    int64
}

func New(maxConcurrent, maxQueue int) *Bulkhead {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxQueue < 0 {
		maxQueue = 0
	}
	return &Bulkhead{
		slots: semaphore.NewWeighted(int64(maxConcurrent)),
		limit: int64(maxConcurrent + maxQueue),
	}
}

// Acquire takes a slot, waiting in the queue if all slots are busy.
// It returns ErrRejected without blocking when the queue is full, and ctx.Err()
// if the caller gives up while queued. The returned release is idempotent.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if b.admitted.Add(1) > b.limit {
		b.admitted.Add(-1)
		return nil, ErrRejected
	}
	if err := b.slots.Acquire(ctx, 1); err != nil {
		b.admitted.Add(-1)
		return nil, err
	}
	b.running.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.running.Add(-1)
			b.slots.Release(1)
			b.admitted.Add(-1)
		})
	}, nil
}

// Running is the number of calls currently holding a slot.
func (b *Bulkhead) Running() int { return int(b.running.Load()) }

// Queued is the number of calls waiting for a slot.
func (b *Bulkhead) Queued() int {
	q := b.admitted.Load() - b.running.Load()
	if q < 0 {
		return 0
	}
	return int(q)
}
