package services

import (
	"errors"
	"fmt"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/persistence/user"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/security"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

var (
	// ErrUsernameTaken means the requested username already has an account
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials covers unknown users and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrBadRegistration means the supplied credentials fail validation
	ErrBadRegistration = errors.New("username and password are required")
)

// AuthService implements account registration and credential verification
type AuthService struct {
	repo     UserRepository
	sessions *SessionService
	logger   *logging.ChanneledLogger
}

// NewAuthService creates an auth service
func NewAuthService(repo UserRepository, sessions *SessionService, logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates a new account with a fresh gamification state
func (s *AuthService) Register(username, password string) error {
	if len(username) < 3 || len(password) < 4 {
		return ErrBadRegistration
	}

	existing, err := s.repo.FindByUsername(username)
	if err != nil {
		return fmt.Errorf("registration check failed: %w", err)
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hash, err := security.HashPassword(password, config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	record := &user.Record{
		Username:     username,
		PasswordHash: hash,
		State:        progress.NewGamificationState(),
		Products:     catalog.NewCache(),
	}
	if err := s.repo.Create(record); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.WithUser(logging.ChannelAuth, username).Info("Account registered")
	return nil
}

// Login verifies credentials and issues a signed session token
func (s *AuthService) Login(username, password string) (string, error) {
	record, err := s.repo.FindByUsername(username)
	if err != nil {
		return "", fmt.Errorf("login check failed: %w", err)
	}
	if record == nil || !security.VerifyPassword(record.PasswordHash, password) {
		s.logger.WithUser(logging.ChannelAuth, username).Warn("Failed login attempt")
		return "", ErrInvalidCredentials
	}

	token, sessionID, err := security.GenerateSessionToken(username, config.JWTSecret, config.AESKey, config.SessionTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logger.WithUser(logging.ChannelAuth, username).Info("User logged in", "sessionId", sessionID)
	return token, nil
}

// Logout flushes and tears down the user's live session
func (s *AuthService) Logout(username string) {
	s.sessions.Release(username)
	s.logger.WithUser(logging.ChannelAuth, username).Info("User logged out")
}

// ValidateToken checks a session token and returns its claims
func (s *AuthService) ValidateToken(token string) (*security.SessionClaims, error) {
	return security.ValidateSessionToken(token, config.JWTSecret, config.AESKey)
}
