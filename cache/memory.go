package cache

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps entries in process memory. It is used in tests and
// for ephemeral runs where offline state need not survive a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	generations map[string]map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		generations: make(map[string]map[string]*Entry),
	}
}

func (s *MemoryStore) Get(_ context.Context, generation, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.generations[generation][key]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Put(_ context.Context, generation, key string, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.generations[generation]
	if !ok {
		g = make(map[string]*Entry)
		s.generations[generation] = g
	}
	g[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, generation, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.generations[generation], key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, generation string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.generations[generation]))
	for k := range s.generations[generation] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Generations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	generations := make([]string, 0, len(s.generations))
	for g := range s.generations {
		generations = append(generations, g)
	}
	sort.Strings(generations)
	return generations, nil
}

func (s *MemoryStore) DropGeneration(_ context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.generations, generation)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
