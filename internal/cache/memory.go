package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memEntry struct {
	data    []byte
	absExp  time.Time
	sldExp  time.Time
	sliding time.Duration
}

// MemoryStore is a bounded in-process Store with the same expiry rules as RedisStore.
type MemoryStore struct {
	mu  sync.Mutex
	lru *lru.Cache[string, memEntry]
	now func() time.Time
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	return NewMemoryStoreWithClock(size, time.Now)
}

// NewMemoryStoreWithClock is NewMemoryStore with a custom time source.
func NewMemoryStoreWithClock(size int, now func() time.Time) (*MemoryStore, error) {
	c, err := lru.New[string, memEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{lru: c, now: now}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	now := s.now()
	if (!e.absExp.IsZero() && !now.Before(e.absExp)) || (!e.sldExp.IsZero() && !now.Before(e.sldExp)) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	if e.sliding > 0 {
		e.sldExp = now.Add(ttl(now, e.absExp, e.sliding))
		s.lru.Add(key, e)
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, val []byte, exp Expiration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := memEntry{
		data:    append([]byte(nil), val...),
		sliding: exp.Sliding,
	}
	if exp.Absolute > 0 {
		e.absExp = now.Add(exp.Absolute)
	}
	if exp.Sliding > 0 {
		e.sldExp = now.Add(ttl(now, e.absExp, exp.Sliding))
	}
	s.lru.Add(key, e)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	s.lru.Remove(key)
	s.mu.Unlock()
	return nil
}
