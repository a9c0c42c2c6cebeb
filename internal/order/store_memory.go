package order

import (
	"context"
	"slices"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[string]Order
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Order{}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Create(ctx context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.Items = slices.Clone(o.Items)
	s.m[o.ID] = o
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.m[id]
	if !ok {
		return Order{}, false, nil
	}
	o.Items = slices.Clone(o.Items)
	return o, true, nil
}
