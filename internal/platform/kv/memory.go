package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. State is local to the process; use
// RedisStore when flags must survive restarts or be shared across replicas.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory constructs a MemoryStore with empty state.
func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
