package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"creditgate/internal/credits/models"
	id "creditgate/pkg/domain"
)

// PostgresStore persists per-day usage counters in PostgreSQL.
// This store is pure I/O. Aggregation into monthly totals and ceiling checks
// belong in the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed usage store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListSince returns one row per day with activity on or after since,
// ordered oldest first. Days with no recorded usage have no row.
func (s *PostgresStore) ListSince(ctx context.Context, userID id.UserID, since time.Time) ([]models.DailyUsage, error) {
	query := `
		SELECT day, documents, presentations, spreadsheets, voiceovers, chat_messages, images
		FROM daily_usage
		WHERE user_id = $1 AND day >= $2
		ORDER BY day
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String(), since)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var out []models.DailyUsage
	for rows.Next() {
		var row models.DailyUsage
		if err := rows.Scan(&row.Day, &row.Documents, &row.Presentations, &row.Spreadsheets, &row.Voiceovers, &row.ChatMessages, &row.Images); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return out, nil
}

// Record increments one kind's counter for the given day, creating the row
// on first use. The upsert is atomic so concurrent reports never lose counts.
func (s *PostgresStore) Record(ctx context.Context, userID id.UserID, day time.Time, kind models.UsageKind, n int) error {
	column, ok := usageColumns[kind]
	if !ok {
		return fmt.Errorf("record usage: unknown kind %q", kind)
	}
	query := fmt.Sprintf(`
		INSERT INTO daily_usage (user_id, day, %[1]s)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day) DO UPDATE SET
			%[1]s = daily_usage.%[1]s + EXCLUDED.%[1]s
	`, column)
	if _, err := s.db.ExecContext(ctx, query, userID.String(), day, n); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// usageColumns maps kinds to column names. Only values from this map are
// interpolated into SQL.
var usageColumns = map[models.UsageKind]string{
	models.KindDocument:     "documents",
	models.KindPresentation: "presentations",
	models.KindSpreadsheet:  "spreadsheets",
	models.KindVoiceover:    "voiceovers",
	models.KindChatMessage:  "chat_messages",
	models.KindImage:        "images",
}
