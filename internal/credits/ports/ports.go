// Package ports defines shared interfaces for the credits module.
// Interfaces live here when consumed by multiple services to avoid
// duplication.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks RoleStore,SubscriptionStore,UsageStore,GuestFlagStore

import (
	"context"
	"time"

	"creditgate/internal/credits/models"
	id "creditgate/pkg/domain"
	"creditgate/pkg/platform/audit"
)

// RoleStore resolves a user's role label. Absence is not an error: missing
// users resolve to the free role.
type RoleStore interface {
	GetRole(ctx context.Context, userID id.UserID) (models.Role, error)
}

// SubscriptionStore resolves a user's billing record.
// Returns (nil, nil) when the user has no subscription.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID id.UserID) (*models.Subscription, error)
}

// UsageStore reads and advances the authoritative daily usage rows.
type UsageStore interface {
	// ListSince returns all daily rows for the user with Day >= from.
	ListSince(ctx context.Context, userID id.UserID, from time.Time) ([]models.DailyUsage, error)

	// Record increments the user's row for day by n generations of kind.
	// Idempotent per (user, day, kind) increment: the row is upserted.
	Record(ctx context.Context, userID id.UserID, day time.Time, kind models.UsageKind, n int) error
}

// GuestFlagStore persists the single-use guest credit flag per device.
type GuestFlagStore interface {
	// IsUsed reports whether the device has burned its guest credit.
	// Corrupt or missing state reads as unused (fail open).
	IsUsed(ctx context.Context, deviceID id.DeviceID) (bool, error)

	// MarkUsed sets the flag. Idempotent.
	MarkUsed(ctx context.Context, deviceID id.DeviceID) error

	// Reset clears the flag. Support tooling only.
	Reset(ctx context.Context, deviceID id.DeviceID) error
}

// AuditPublisher emits audit events for policy decisions.
type AuditPublisher = audit.Publisher

// LogAudit is a shared helper for recording audit events across credits
// services. See audit.Log.
var LogAudit = audit.Log
