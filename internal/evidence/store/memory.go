package store

import (
	"context"
	"sort"
	"sync"

	"oact/internal/evidence"
)

// InMemoryStore keeps bundles in process. Bundles are immutable so they are
// shared rather than copied.
type InMemoryStore struct {
	mu      sync.RWMutex
	bundles map[string]*evidence.Bundle
	order   []string
	max     int
}

// NewInMemoryStore returns a store. A positive max evicts the oldest bundles
// once exceeded.
func NewInMemoryStore(max int) *InMemoryStore {
	return &InMemoryStore{
		bundles: make(map[string]*evidence.Bundle),
		max:     max,
	}
}

func (s *InMemoryStore) Save(_ context.Context, b *evidence.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bundles[b.ID()]; exists {
		return conflict(b.ID())
	}
	s.bundles[b.ID()] = b
	s.order = append(s.order, b.ID())

	if s.max > 0 && len(s.order) > s.max {
		evict := s.order[:len(s.order)-s.max]
		for _, id := range evict {
			delete(s.bundles, id)
		}
		s.order = append([]string(nil), s.order[len(evict):]...)
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*evidence.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bundles[id]
	if !ok {
		return nil, notFound(id)
	}
	return b, nil
}

// List returns up to limit bundles, newest CreatedAt first. Bundles with equal
// timestamps keep reverse insertion order.
func (s *InMemoryStore) List(_ context.Context, limit int) ([]*evidence.Bundle, error) {
	s.mu.RLock()
	out := make([]*evidence.Bundle, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.bundles[s.order[i]])
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
