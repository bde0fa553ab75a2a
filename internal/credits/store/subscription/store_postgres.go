// Package subscription reads billing records. Subscription status is the
// authoritative entitlement signal.
package subscription

import (
	"context"
	"database/sql"
	"fmt"

	"creditgate/internal/credits/models"
	id "creditgate/pkg/domain"
)

// PostgresStore reads subscription records from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed subscription store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetSubscription returns the user's most recent subscription record, or
// (nil, nil) when the user has never subscribed.
func (s *PostgresStore) GetSubscription(ctx context.Context, userID id.UserID) (*models.Subscription, error) {
	query := `
		SELECT plan_type, status, expires_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var sub models.Subscription
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID.String()).Scan(&sub.PlanType, &sub.Status, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if expiresAt.Valid {
		sub.ExpiresAt = &expiresAt.Time
	}
	return &sub, nil
}
