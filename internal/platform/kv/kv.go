// Package kv provides the persistent key-value primitive backing device-local
// policy state (guest credit flags, rate-limit windows).
//
// Values are opaque strings, JSON-encoded by callers. The store is shared by
// all subjects, so keys must be namespaced by the caller.
package kv

import "context"

// Store is a minimal persistent string key-value store.
//
// Implementations must treat Get of an absent key as (".", false, nil), not an
// error: policy layers above fail open on missing state.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
