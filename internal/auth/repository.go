package auth

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresRepository implements ReviewerRepository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new reviewer into the database
func (r *PostgresRepository) Create(ctx context.Context, reviewer *Reviewer) error {
	reviewer.ID = uuid.New().String()

	query := `
		INSERT INTO reviewers (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		reviewer.ID,
		reviewer.Email,
		reviewer.PasswordHash,
		reviewer.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create reviewer: %w", err)
	}

	return nil
}

// GetByEmail retrieves a reviewer by email address
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Reviewer, error) {
	query := `
		SELECT id, email, password_hash, created_at
		FROM reviewers
		WHERE email = $1
	`

	reviewer := &Reviewer{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&reviewer.ID,
		&reviewer.Email,
		&reviewer.PasswordHash,
		&reviewer.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReviewerNotFound
		}
		return nil, fmt.Errorf("failed to get reviewer by email: %w", err)
	}

	return reviewer, nil
}

// MemoryRepository keeps reviewers in process memory, for development and
// running without a database.
type MemoryRepository struct {
	mu        sync.Mutex
	reviewers map[string]*Reviewer
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{reviewers: make(map[string]*Reviewer)}
}

func (r *MemoryRepository) Create(ctx context.Context, reviewer *Reviewer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reviewers[reviewer.Email]; ok {
		return ErrReviewerExists
	}
	reviewer.ID = uuid.New().String()
	copied := *reviewer
	r.reviewers[reviewer.Email] = &copied
	return nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*Reviewer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reviewer, ok := r.reviewers[email]
	if !ok {
		return nil, ErrReviewerNotFound
	}
	copied := *reviewer
	return &copied, nil
}
