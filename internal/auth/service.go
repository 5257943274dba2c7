package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// TokenIssuer signs credentials for authenticated users.
type TokenIssuer interface {
	Issue(subjectID, roleID int64, displayName string, ttl time.Duration) (string, error)
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	User        *User
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	issuer TokenIssuer
	ttl    time.Duration
	logger *slog.Logger
	// compare checks a password against its stored hash.
	compare func(hash, password []byte) error
}

// NewService constructs a new Service. ttl is the lifetime of issued tokens.
func NewService(repo Repository, issuer TokenIssuer, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		issuer:  issuer,
		ttl:     ttl,
		logger:  logger,
		compare: bcrypt.CompareHashAndPassword,
	}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	// Inactive accounts pay the same hash cost as active ones.
	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the user and issues a bearer credential.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.issuer.Issue(user.ID, user.RoleID, user.Username, s.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("touch last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return &LoginResult{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.ttl,
		User:        user,
	}, nil
}
