package subscription

import (
	"context"
	"sync"

	"creditgate/internal/credits/models"
	id "creditgate/pkg/domain"
)

// MemoryStore is an in-memory subscription store for tests and single-node
// runs.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[id.UserID]*models.Subscription
}

// NewMemory constructs an empty in-memory subscription store.
func NewMemory() *MemoryStore {
	return &MemoryStore{subs: make(map[id.UserID]*models.Subscription)}
}

func (s *MemoryStore) GetSubscription(_ context.Context, userID id.UserID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[userID]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

// SetSubscription installs a billing record. Test seeding and support tooling.
func (s *MemoryStore) SetSubscription(_ context.Context, userID id.UserID, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub == nil {
		delete(s.subs, userID)
		return nil
	}
	copied := *sub
	s.subs[userID] = &copied
	return nil
}
