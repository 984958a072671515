package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrReviewerExists     = errors.New("reviewer already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrReviewerNotFound   = errors.New("reviewer not found")
)

// Reviewer is an account that reviews analysis results and gives feedback.
type Reviewer struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Claims are the JWT claims. SessionID identifies the analysis session the
// token belongs to; the confidence cache keys on it.
type Claims struct {
	ReviewerID string `json:"reviewer_id"`
	Email      string `json:"email"`
	SessionID  string `json:"session_id"`
	jwt.RegisteredClaims
}

// ReviewerRepository defines the interface for reviewer persistence
type ReviewerRepository interface {
	Create(ctx context.Context, reviewer *Reviewer) error
	GetByEmail(ctx context.Context, email string) (*Reviewer, error)
}

// Service defines the authentication service interface
type Service interface {
	Register(ctx context.Context, email, password string) (*Reviewer, error)
	Login(ctx context.Context, email, password string) (token, sessionID string, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Config holds authentication configuration
type Config struct {
	SecretKey     string
	TokenDuration time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		SecretKey:     "change-me-in-production",
		TokenDuration: 8 * time.Hour,
	}
}

// JWTService implements the Service interface
type JWTService struct {
	config Config
	repo   ReviewerRepository
}

// NewJWTService creates a new JWT-based authentication service
func NewJWTService(config Config, repo ReviewerRepository) *JWTService {
	if config.SecretKey == "" {
		config.SecretKey = DefaultConfig().SecretKey
	}
	if config.TokenDuration == 0 {
		config.TokenDuration = DefaultConfig().TokenDuration
	}
	return &JWTService{
		config: config,
		repo:   repo,
	}
}

// Register creates a new reviewer with a hashed password
func (s *JWTService) Register(ctx context.Context, email, password string) (*Reviewer, error) {
	existing, _ := s.repo.GetByEmail(ctx, email)
	if existing != nil {
		return nil, ErrReviewerExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	reviewer := &Reviewer{
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, reviewer); err != nil {
		return nil, err
	}

	return reviewer, nil
}

// Login authenticates a reviewer and mints a token carrying a fresh
// analysis session id. Each login starts a new session; filter state and
// cached confidences never survive across sessions.
func (s *JWTService) Login(ctx context.Context, email, password string) (string, string, error) {
	reviewer, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(reviewer.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	sessionID := uuid.New().String()
	token, err := s.generateToken(reviewer, sessionID)
	if err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.SecretKey), nil
	})

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *JWTService) generateToken(reviewer *Reviewer, sessionID string) (string, error) {
	claims := &Claims{
		ReviewerID: reviewer.ID,
		Email:      reviewer.Email,
		SessionID:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SecretKey))
}
