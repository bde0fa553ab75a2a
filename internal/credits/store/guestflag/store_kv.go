// Package guestflag persists the single-use guest credit flag in the shared
// key-value store, one record per device.
package guestflag

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"creditgate/internal/platform/kv"
	id "creditgate/pkg/domain"
	"creditgate/pkg/requestcontext"
)

const keyPrefix = "guest:"

type record struct {
	Used   bool      `json:"used"`
	UsedAt time.Time `json:"used_at,omitzero"`
}

// Store implements ports.GuestFlagStore over any kv.Store.
type Store struct {
	kv kv.Store
}

// New constructs a guest flag store over the given key-value backend.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

func storageKey(deviceID id.DeviceID) string {
	return keyPrefix + string(deviceID)
}

// IsUsed reads the flag. An absent or undecodable record reads as unused:
// the gate fails open so storage corruption can never permanently lock a
// device out.
func (s *Store) IsUsed(ctx context.Context, deviceID id.DeviceID) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, storageKey(deviceID))
	if err != nil {
		return false, fmt.Errorf("read guest flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return false, nil
	}
	return rec.Used, nil
}

// MarkUsed sets the flag. Idempotent: re-marking an already used device
// rewrites the same state.
func (s *Store) MarkUsed(ctx context.Context, deviceID id.DeviceID) error {
	raw, err := json.Marshal(record{Used: true, UsedAt: requestcontext.Now(ctx)})
	if err != nil {
		return fmt.Errorf("encode guest flag: %w", err)
	}
	if err := s.kv.Set(ctx, storageKey(deviceID), string(raw)); err != nil {
		return fmt.Errorf("write guest flag: %w", err)
	}
	return nil
}

// Reset clears the flag.
func (s *Store) Reset(ctx context.Context, deviceID id.DeviceID) error {
	if err := s.kv.Delete(ctx, storageKey(deviceID)); err != nil {
		return fmt.Errorf("reset guest flag: %w", err)
	}
	return nil
}
