package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/bankcards-service/internal/auth"
	"github.com/spec-kit/bankcards-service/internal/domain"
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and token refresh.
type AuthService struct {
	directory  *AccountDirectory
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(directory *AccountDirectory, tokenMgr *auth.TokenManager, bcryptCost int, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		directory:  directory,
		tokenMgr:   tokenMgr,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a USER account and returns a fresh token pair.
// Self-registration never grants ADMIN.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, *domain.TokenPair, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.directory.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	user.PasswordHash = ""
	return user, pair, nil
}

// Login verifies credentials. Unknown user and wrong password fail the same way.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.directory.Credentials(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, auth.ErrBadCredentials
		}
		return nil, nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrBadCredentials) {
			s.logger.Warn("password comparison failed", zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, nil, auth.ErrBadCredentials
	}

	pair, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	user.PasswordHash = ""
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.TokenPair, error) {
	claims, err := s.tokenMgr.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.directory.RequireByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, auth.ErrTokenMalformed
		}
		return nil, nil, err
	}
	if !s.tokenMgr.IsValidFor(refreshToken, user) {
		return nil, nil, auth.ErrTokenMalformed
	}

	pair, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
