package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/observability"
	"github.com/TemirB/orders-enrichment/internal/resilience"
)

const (
	ProductPrefix = "product:"
	UserPrefix    = "user:"
)

var DefaultExpiration = Expiration{Sliding: 150 * time.Second, Absolute: 600 * time.Second}

func ProductKey(id string) string { return ProductPrefix + id }
func UserKey(id string) string    { return UserPrefix + id }

type Executor[T any] interface {
	Execute(ctx context.Context, id string) resilience.Result[T]
}

// Lookup is a cache-aside reader for one entity kind. Only real entities are
// stored: fallbacks, absences and caller faults are returned but never cached.
type Lookup[T any] struct {
	entity  string
	prefix  string
	store   Store
	remote  Executor[T]
	exp     Expiration
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewLookup[T any](entity, prefix string, store Store, remote Executor[T], exp Expiration, logger *zap.Logger, metrics observability.Metrics) *Lookup[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Lookup[T]{
		entity:  entity,
		prefix:  prefix,
		store:   store,
		remote:  remote,
		exp:     exp,
		logger:  logger,
		metrics: metrics,
	}
}

func NewProductLookup(store Store, remote Executor[domain.Product], exp Expiration, logger *zap.Logger, metrics observability.Metrics) *Lookup[domain.Product] {
	return NewLookup[domain.Product]("product", ProductPrefix, store, remote, exp, logger, metrics)
}

func NewUserLookup(store Store, remote Executor[domain.User], exp Expiration, logger *zap.Logger, metrics observability.Metrics) *Lookup[domain.User] {
	return NewLookup[domain.User]("user", UserPrefix, store, remote, exp, logger, metrics)
}

func (l *Lookup[T]) Key(id string) string { return l.prefix + id }

// Get reads through the cache. Store failures and undecodable entries are
// treated as misses.
func (l *Lookup[T]) Get(ctx context.Context, id string) resilience.Result[T] {
	start := time.Now()
	key := l.Key(id)

	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache read failed, going remote", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var v T
		err := json.Unmarshal(raw, &v)
		if err == nil {
			l.metrics.IncCacheHit(l.entity)
			l.metrics.ObserveLookup(l.entity, "cache", observability.Millis(time.Since(start)))
			return resilience.Result[T]{Value: v, Outcome: resilience.OK}
		}
		l.logger.Warn("undecodable cache entry", zap.String("key", key), zap.Error(err))
	}
	l.metrics.IncCacheMiss(l.entity)

	res := l.remote.Execute(ctx, id)
	switch res.Outcome {
	case resilience.OK:
		l.populate(ctx, key, res.Value)
		l.metrics.ObserveLookup(l.entity, "remote", observability.Millis(time.Since(start)))
	case resilience.Degraded:
		l.metrics.ObserveLookup(l.entity, "fallback", observability.Millis(time.Since(start)))
	default:
		l.metrics.ObserveLookup(l.entity, "notfound", observability.Millis(time.Since(start)))
	}
	return res
}

func (l *Lookup[T]) populate(ctx context.Context, key string, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		l.logger.Error("encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := l.store.Set(ctx, key, raw, l.exp); err != nil {
		l.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (l *Lookup[T]) Invalidate(ctx context.Context, id string) error {
	return l.store.Delete(ctx, l.Key(id))
}
