package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/todmy/style-analyzer/internal/reliability"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL feedback store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts a feedback record into the database
func (s *PostgresStore) Add(ctx context.Context, record *Record) error {
	if record.RuleID == "" {
		return ErrMissingRuleID
	}

	record.ID = uuid.New().String()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO feedback (id, rule_id, session_id, helpful, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.RuleID,
		record.SessionID,
		record.Helpful,
		record.Reason,
		record.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to add feedback: %w", err)
	}

	return nil
}

// Aggregate returns helpful / not-helpful counts per rule, sorted by rule id
func (s *PostgresStore) Aggregate(ctx context.Context) ([]reliability.RuleFeedback, error) {
	query := `
		SELECT rule_id,
		       COUNT(*) FILTER (WHERE helpful),
		       COUNT(*) FILTER (WHERE NOT helpful)
		FROM feedback
		GROUP BY rule_id
		ORDER BY rule_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	defer rows.Close()

	var out []reliability.RuleFeedback
	for rows.Next() {
		var f reliability.RuleFeedback
		if err := rows.Scan(&f.RuleID, &f.Helpful, &f.NotHelpful); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		out = append(out, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback rows: %w", err)
	}

	return out, nil
}
