package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	reviewer := &Reviewer{
		Email:        "reviewer@example.com",
		PasswordHash: "hashed_password",
		CreatedAt:    time.Now(),
	}

	mock.ExpectExec("INSERT INTO reviewers").
		WithArgs(sqlmock.AnyArg(), reviewer.Email, reviewer.PasswordHash, reviewer.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), reviewer)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if reviewer.ID == "" {
		t.Error("expected reviewer ID to be generated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
		AddRow("123e4567-e89b-12d3-a456-426614174000", "reviewer@example.com", "hash", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM reviewers WHERE email").
		WithArgs("reviewer@example.com").
		WillReturnRows(rows)

	reviewer, err := repo.GetByEmail(context.Background(), "reviewer@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reviewer.Email != "reviewer@example.com" {
		t.Errorf("unexpected email %q", reviewer.Email)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_GetByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM reviewers WHERE email").
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}))

	if _, err := repo.GetByEmail(context.Background(), "missing@example.com"); err != ErrReviewerNotFound {
		t.Errorf("expected ErrReviewerNotFound, got %v", err)
	}
}

func TestJWTServiceRoundTrip(t *testing.T) {
	service := NewJWTService(Config{SecretKey: "test-secret"}, NewMemoryRepository())
	ctx := context.Background()

	reviewer, err := service.Register(ctx, "reviewer@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reviewer.ID == "" {
		t.Error("expected reviewer ID")
	}

	token, sessionID, err := service.Login(ctx, "reviewer@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sessionID == "" {
		t.Error("expected a session id")
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.SessionID != sessionID {
		t.Errorf("expected session id %q in claims, got %q", sessionID, claims.SessionID)
	}
	if claims.Email != "reviewer@example.com" {
		t.Errorf("unexpected email %q", claims.Email)
	}
}

func TestLoginStartsFreshSession(t *testing.T) {
	service := NewJWTService(Config{SecretKey: "test-secret"}, NewMemoryRepository())
	ctx := context.Background()

	if _, err := service.Register(ctx, "reviewer@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, first, err := service.Login(ctx, "reviewer@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_, second, err := service.Login(ctx, "reviewer@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if first == second {
		t.Error("expected a fresh session id per login")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	service := NewJWTService(Config{SecretKey: "test-secret"}, NewMemoryRepository())
	ctx := context.Background()

	if _, err := service.Register(ctx, "reviewer@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := service.Login(ctx, "reviewer@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
