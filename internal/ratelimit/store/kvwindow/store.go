// Package kvwindow persists rate-limit window entries in the shared
// key-value store, one JSON blob per subject holding all actions' entries.
package kvwindow

import (
	"context"
	"encoding/json"
	"fmt"

	"creditgate/internal/platform/kv"
	"creditgate/internal/ratelimit/models"
	id "creditgate/pkg/domain"
	"creditgate/pkg/platform/sentinel"
)

const keyPrefix = "ratelimit:"

// Store implements ports.WindowStore over any kv.Store (memory or Redis).
type Store struct {
	kv kv.Store
}

// New constructs a window store over the given key-value backend.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

func storageKey(subject id.Subject) string {
	return keyPrefix + subject.Key()
}

func (s *Store) Load(ctx context.Context, subject id.Subject) (models.Entries, error) {
	raw, ok, err := s.kv.Get(ctx, storageKey(subject))
	if err != nil {
		return nil, fmt.Errorf("load window entries: %w", err)
	}
	if !ok {
		return models.Entries{}, nil
	}

	var entries models.Entries
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode window entries: %w", sentinel.ErrCorrupt)
	}
	if entries == nil {
		entries = models.Entries{}
	}
	return entries, nil
}

func (s *Store) Save(ctx context.Context, subject id.Subject, entries models.Entries) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode window entries: %w", err)
	}
	if err := s.kv.Set(ctx, storageKey(subject), string(raw)); err != nil {
		return fmt.Errorf("save window entries: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, subject id.Subject) error {
	if err := s.kv.Delete(ctx, storageKey(subject)); err != nil {
		return fmt.Errorf("clear window entries: %w", err)
	}
	return nil
}
