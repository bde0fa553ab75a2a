package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrCorrupt: persisted blob failed to decode (callers decide whether to fail open)
// - ErrConflict: concurrent write lost
// - ErrUnavailable: backing store temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrCorrupt     = errors.New("corrupt record")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
