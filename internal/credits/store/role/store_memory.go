package role

import (
	"context"
	"sync"

	"creditgate/internal/credits/models"
	id "creditgate/pkg/domain"
)

// MemoryStore is an in-memory role store for tests and single-node runs.
type MemoryStore struct {
	mu    sync.RWMutex
	roles map[id.UserID]models.Role
}

// NewMemory constructs an empty in-memory role store.
func NewMemory() *MemoryStore {
	return &MemoryStore{roles: make(map[id.UserID]models.Role)}
}

func (s *MemoryStore) GetRole(_ context.Context, userID id.UserID) (models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.roles[userID]; ok {
		return r, nil
	}
	return models.RoleFree, nil
}

// SetRole assigns a role label. Test seeding and support tooling.
func (s *MemoryStore) SetRole(_ context.Context, userID id.UserID, r models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = r
	return nil
}
