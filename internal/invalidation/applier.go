package invalidation

import (
	"context"
	"fmt"

	"github.com/TemirB/orders-enrichment/internal/cache"
	"github.com/TemirB/orders-enrichment/internal/domain"
)

// Applier reads the current entry, plans and executes the mutation.
// Read-plan-write is not atomic; a concurrent cache-aside populate may land
// on either side of it.
type Applier struct {
	store    cache.Store
	exp      cache.Expiration
	strategy Strategy
}

func NewApplier(store cache.Store, exp cache.Expiration, strategy Strategy) *Applier {
	return &Applier{store: store, exp: exp, strategy: strategy}
}

func (a *Applier) Apply(ctx context.Context, ev domain.ChangeEvent) (Mutation, error) {
	key := cache.ProductKey(ev.EntityID())
	cached, found, err := a.store.Get(ctx, key)
	if err != nil {
		return Mutation{}, fmt.Errorf("read %s: %w", key, err)
	}

	m, err := Plan(ev, cached, found, a.strategy)
	if err != nil {
		return Mutation{}, err
	}

	switch m.Kind {
	case Delete:
		err = a.store.Delete(ctx, m.Key)
	case Put:
		err = a.store.Set(ctx, m.Key, m.Value, a.exp)
	}
	if err != nil {
		return m, fmt.Errorf("%s %s: %w", m.Kind, m.Key, err)
	}
	return m, nil
}
