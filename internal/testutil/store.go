// Package testutil provides in-memory repository doubles and fakes for
// service tests. The doubles keep the contracts of their postgres
// counterparts, including uniqueness errors and lock serialization.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	errStoreNotFound = errors.New("record not found")
	errStoreExists   = errors.New("record already exists")
)

// InMemoryStore is a generic, thread-safe map-backed store used as the
// base of the in-memory repositories.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	// order preserves insertion order for deterministic listings.
	order []string
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{items: make(map[string]T)}
}

func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; ok {
		return errStoreExists
	}
	s.items[id] = item
	s.order = append(s.order, id)
	return nil
}

func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, errStoreNotFound
	}
	return item, nil
}

func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return errStoreNotFound
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return errStoreNotFound
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns the items matching filterFn, ordered by sortFn when given,
// otherwise in insertion order.
func (s *InMemoryStore[T]) List(ctx context.Context, filterFn func(T) bool, sortFn func(a, b T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		if filterFn == nil || filterFn(item) {
			out = append(out, item)
		}
	}
	if sortFn != nil {
		sort.SliceStable(out, func(i, j int) bool { return sortFn(out[i], out[j]) })
	}
	return out
}

func (s *InMemoryStore[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.order = nil
}
