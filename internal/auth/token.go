package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/bankcards-service/internal/config"
	"github.com/spec-kit/bankcards-service/internal/domain"
)

const minSecretLength = 32

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option customizes a TokenManager.
type Option func(*TokenManager)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager builds a new manager. HS256 needs at least 256 bits of key.
func NewTokenManager(cfg config.AuthConfig, opts ...Option) (*TokenManager, error) {
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	accessMinutes := cfg.AccessTokenTTLMinutes
	if accessMinutes <= 0 {
		accessMinutes = 15
	}
	refreshMinutes := cfg.RefreshTokenTTLMinutes
	if refreshMinutes <= 0 {
		refreshMinutes = 7 * 24 * 60
	}

	tm := &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  time.Duration(accessMinutes) * time.Minute,
		refreshTTL: time.Duration(refreshMinutes) * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Claims describes JWT payload. Subject carries the username.
type Claims struct {
	Type domain.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// IssueAccess builds a short-lived access token for the user.
func (tm *TokenManager) IssueAccess(user *domain.User) (string, time.Time, error) {
	return tm.issue(user.Username, domain.TokenTypeAccess, tm.accessTTL)
}

// IssueRefresh builds a long-lived refresh token for the user.
func (tm *TokenManager) IssueRefresh(user *domain.User) (string, time.Time, error) {
	return tm.issue(user.Username, domain.TokenTypeRefresh, tm.refreshTTL)
}

// IssuePair issues both tokens.
func (tm *TokenManager) IssuePair(user *domain.User) (*domain.TokenPair, error) {
	access, accessExp, err := tm.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := tm.IssueRefresh(user)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (tm *TokenManager) issue(subject string, tokenType domain.TokenType, ttl time.Duration) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates signature and expiry and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignatureInvalid
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifySubject returns the username a valid token was issued to.
func (tm *TokenManager) VerifySubject(tokenStr string) (string, error) {
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyAccess accepts only access tokens.
func (tm *TokenManager) VerifyAccess(tokenStr string) (*Claims, error) {
	return tm.verifyType(tokenStr, domain.TokenTypeAccess)
}

// VerifyRefresh accepts only refresh tokens.
func (tm *TokenManager) VerifyRefresh(tokenStr string) (*Claims, error) {
	return tm.verifyType(tokenStr, domain.TokenTypeRefresh)
}

func (tm *TokenManager) verifyType(tokenStr string, want domain.TokenType) (*Claims, error) {
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// IsValidFor reports whether the token is currently valid and was issued to user.
// An invalid token is a normal outcome here, not an error.
func (tm *TokenManager) IsValidFor(tokenStr string, user *domain.User) bool {
	if user == nil {
		return false
	}
	subject, err := tm.VerifySubject(tokenStr)
	if err != nil {
		return false
	}
	return subject == user.Username
}
