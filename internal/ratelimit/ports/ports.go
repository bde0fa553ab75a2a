// Package ports defines shared interfaces for the ratelimit module.
package ports

import (
	"context"

	"creditgate/internal/ratelimit/models"
	id "creditgate/pkg/domain"
	"creditgate/pkg/platform/audit"
)

// WindowStore persists fixed-window entries. One subject's entries for all
// actions live in a single blob, mirroring the per-device storage shape the
// limiter was designed around.
//
// Stores are pure I/O: window arithmetic belongs in the service.
type WindowStore interface {
	// Load returns the subject's entries. An absent blob yields an empty,
	// non-nil map. A blob that fails to decode returns sentinel.ErrCorrupt
	// (wrapped); the service decides whether to fail open.
	Load(ctx context.Context, subject id.Subject) (models.Entries, error)

	// Save replaces the subject's blob.
	Save(ctx context.Context, subject id.Subject, entries models.Entries) error

	// Clear deletes the subject's blob outright.
	Clear(ctx context.Context, subject id.Subject) error
}

// AuditPublisher emits audit events for policy decisions.
type AuditPublisher = audit.Publisher

// LogAudit is a shared helper for recording audit events across ratelimit
// services. See audit.Log.
var LogAudit = audit.Log
