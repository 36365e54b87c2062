// Package cache holds the key/value stores for remote entity snapshots and
// the cache-aside lookup built on top of them.
package cache

import (
	"context"
	"time"
)

// Expiration is a dual expiry: an entry dies after Sliding without reads,
// or at Absolute after it was written, whichever comes first.
// Reads extend the sliding window, never the absolute one.
type Expiration struct {
	Sliding  time.Duration
	Absolute time.Duration
}

//go:generate mockgen -source store.go -destination store_mock_test.go -package cache

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, exp Expiration) error
	Delete(ctx context.Context, key string) error
}

// ttl returns how long an entry may live from now: the shorter of the
// sliding window and the time left until the absolute deadline.
func ttl(now, absDeadline time.Time, sliding time.Duration) time.Duration {
	left := time.Duration(-1)
	if !absDeadline.IsZero() {
		left = absDeadline.Sub(now)
		if left <= 0 {
			return 0
		}
	}
	switch {
	case sliding <= 0:
		return left
	case left < 0 || sliding < left:
		return sliding
	default:
		return left
	}
}
