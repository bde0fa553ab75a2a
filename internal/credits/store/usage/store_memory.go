package usage

import (
	"context"
	"sort"
	"sync"
	"time"

	"creditgate/internal/credits/models"
	id "creditgate/pkg/domain"
)

// MemoryStore is an in-memory usage store for tests and single-node runs.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[id.UserID]map[string]*models.DailyUsage
}

// NewMemory constructs an empty in-memory usage store.
func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[id.UserID]map[string]*models.DailyUsage)}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (s *MemoryStore) ListSince(_ context.Context, userID id.UserID, since time.Time) ([]models.DailyUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DailyUsage
	for _, row := range s.rows[userID] {
		if row.Day.Before(since) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (s *MemoryStore) Record(_ context.Context, userID id.UserID, day time.Time, kind models.UsageKind, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	days, ok := s.rows[userID]
	if !ok {
		days = make(map[string]*models.DailyUsage)
		s.rows[userID] = days
	}
	key := dayKey(day)
	row, ok := days[key]
	if !ok {
		row = &models.DailyUsage{Day: day}
		days[key] = row
	}
	switch kind {
	case models.KindDocument:
		row.Documents += n
	case models.KindPresentation:
		row.Presentations += n
	case models.KindSpreadsheet:
		row.Spreadsheets += n
	case models.KindVoiceover:
		row.Voiceovers += n
	case models.KindChatMessage:
		row.ChatMessages += n
	case models.KindImage:
		row.Images += n
	}
	return nil
}
