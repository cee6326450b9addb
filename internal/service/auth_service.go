package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/auth"
	"github.com/spec-kit/token-auth-service/internal/config"
	"github.com/spec-kit/token-auth-service/internal/domain"
	"github.com/spec-kit/token-auth-service/internal/repository"
)

// AuthService verifies login form credentials.
type AuthService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Authenticate checks login and password and returns the password-trusted
// identity of the account. Unknown logins, suspended accounts and wrong
// passwords all yield auth.ErrBadCredentials.
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (domain.Identity, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, auth.ErrBadCredentials
		}
		return domain.Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.Status != "" && user.Status != domain.UserStatusActive {
		s.logger.Info("login refused for inactive account", zap.String("login", login))
		return domain.Identity{}, auth.ErrBadCredentials
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return domain.Identity{}, err
	}
	return user.Identity(), nil
}

// SeedUser stores an account with a freshly hashed password.
func (s *AuthService) SeedUser(ctx context.Context, login, password string, roles []string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Login:        login,
		PasswordHash: hash,
		Roles:        roles,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("create user %s: %w", login, err)
	}
	s.logger.Info("seeded login account", zap.String("login", login), zap.Strings("roles", roles))
	return nil
}
