package catalog

import (
	"context"
	"maps"
	"sort"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[string]Product
}

func NewMemStore(products ...Product) *MemStore {
	s := &MemStore{m: make(map[string]Product, len(products))}
	for _, p := range products {
		s.m[p.ID] = p
	}
	return s
}

// NewDemoStore is the catalog a fresh local install serves.
func NewDemoStore() *MemStore {
	return NewMemStore(
		Product{ID: "p1", Title: "Trail Runner", PriceCents: 8990, Category: "shoes", Active: true, Stock: map[string]int{"uk": 12, "eu": 4}},
		Product{ID: "p2", Title: "Canvas Sneaker", PriceCents: 4990, Category: "shoes", Active: true, Stock: map[string]int{"uk": 30, "eu": 18}},
		Product{ID: "p3", Title: "Leather Boot", PriceCents: 12990, Category: "shoes", Active: false, Stock: map[string]int{"uk": 5}},
		Product{ID: "p4", Title: "Wool Beanie", PriceCents: 1990, Category: "hats", Active: true, Stock: map[string]int{"uk": 40, "eu": 40}},
		Product{ID: "p5", Title: "Sun Hat", PriceCents: 2490, Category: "hats", Active: true, Stock: map[string]int{"eu": 9}},
		Product{ID: "p6", Title: "Day Pack", PriceCents: 5990, Category: "bags", Active: true, Stock: map[string]int{"uk": 7, "eu": 2}},
		Product{ID: "p7", Title: "Tote", PriceCents: 1490, Category: "bags", Active: true, Stock: map[string]int{"uk": 0, "eu": 25}},
	)
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ListSortedByID(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, clone(p))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	if !ok {
		return Product{}, false, nil
	}
	return clone(p), true, nil
}

func clone(p Product) Product {
	p.Stock = maps.Clone(p.Stock)
	return p
}
