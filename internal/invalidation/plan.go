// Package invalidation keeps cached product snapshots in line with change
// events published by the products service.
package invalidation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TemirB/orders-enrichment/internal/cache"
	"github.com/TemirB/orders-enrichment/internal/domain"
)

// Strategy decides what a rename does to a cached product.
type Strategy int

const (
	// Patch rewrites the name in place and restarts the expiry windows.
	Patch Strategy = iota
	// Evict drops the entry; the next lookup fetches current state.
	Evict
)

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "patch":
		return Patch, nil
	case "evict":
		return Evict, nil
	default:
		return Patch, fmt.Errorf("unknown rename strategy %q", s)
	}
}

func (s Strategy) String() string {
	if s == Evict {
		return "evict"
	}
	return "patch"
}

type MutationKind int

const (
	None MutationKind = iota
	Delete
	Put
)

func (k MutationKind) String() string {
	switch k {
	case Delete:
		return "delete"
	case Put:
		return "put"
	default:
		return "none"
	}
}

type Mutation struct {
	Kind  MutationKind
	Key   string
	Value []byte // Put only
}

// Plan computes the cache mutation for ev given what is currently cached
// under its key. It has no side effects. Events for entries that are not
// cached plan to None, so redelivery is a no-op.
func Plan(ev domain.ChangeEvent, cached []byte, found bool, strategy Strategy) (Mutation, error) {
	key := cache.ProductKey(ev.EntityID())

	switch e := ev.(type) {
	case domain.ProductDeleted:
		if !found {
			return Mutation{Kind: None, Key: key}, nil
		}
		return Mutation{Kind: Delete, Key: key}, nil
	case domain.ProductRenamed:
		if !found {
			return Mutation{Kind: None, Key: key}, nil
		}
		if strategy == Evict {
			return Mutation{Kind: Delete, Key: key}, nil
		}
		var p domain.Product
		if err := json.Unmarshal(cached, &p); err != nil {
			// a snapshot we cannot patch is dropped
			return Mutation{Kind: Delete, Key: key}, nil
		}
		p.Name = e.NewName
		raw, err := json.Marshal(p)
		if err != nil {
			return Mutation{}, fmt.Errorf("encode patched product %s: %w", e.ProductID, err)
		}
		return Mutation{Kind: Put, Key: key, Value: raw}, nil
	default:
		return Mutation{}, fmt.Errorf("unsupported event %T", ev)
	}
}
