// Package role reads user role labels. Roles are display metadata only;
// entitlement decisions come from subscription records.
package role

import (
	"context"
	"database/sql"
	"fmt"

	"creditgate/internal/credits/models"
	id "creditgate/pkg/domain"
)

// PostgresStore reads role labels from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed role store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetRole returns the user's role label. Users with no row, or with an
// unrecognized label, resolve to the free role.
func (s *PostgresStore) GetRole(ctx context.Context, userID id.UserID) (models.Role, error) {
	var label string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID.String()).Scan(&label)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.RoleFree, nil
		}
		return models.RoleFree, fmt.Errorf("get role: %w", err)
	}
	switch models.Role(label) {
	case models.RoleStandard:
		return models.RoleStandard, nil
	case models.RolePremium:
		return models.RolePremium, nil
	default:
		return models.RoleFree, nil
	}
}
