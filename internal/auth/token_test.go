package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bankcards-service/internal/config"
	"github.com/spec-kit/bankcards-service/internal/domain"
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, clock *fakeClock) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(config.AuthConfig{
		JWTSecret:              testSecret,
		AccessTokenTTLMinutes:  15,
		RefreshTokenTTLMinutes: 60,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	return tm
}

func TestNewTokenManagerRejectsShortSecret(t *testing.T) {
	_, err := NewTokenManager(config.AuthConfig{JWTSecret: "short"})
	require.Error(t, err)
}

func TestIssueAccessIsValidForIdentity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := newTestManager(t, clock)
	alice := &domain.User{ID: "u-1", Username: "alice", Role: domain.RoleUser}
	bob := &domain.User{ID: "u-2", Username: "bob", Role: domain.RoleUser}

	token, expiresAt, err := tm.IssueAccess(alice)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(15*time.Minute), expiresAt)

	assert.True(t, tm.IsValidFor(token, alice))
	assert.False(t, tm.IsValidFor(token, bob))
	assert.False(t, tm.IsValidFor(token, nil))

	subject, err := tm.VerifySubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestTokenExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := newTestManager(t, clock)
	alice := &domain.User{ID: "u-1", Username: "alice"}

	token, _, err := tm.IssueAccess(alice)
	require.NoError(t, err)

	clock.now = clock.now.Add(14 * time.Minute)
	assert.True(t, tm.IsValidFor(token, alice))

	clock.now = clock.now.Add(2 * time.Minute)
	assert.False(t, tm.IsValidFor(token, alice))

	_, err = tm.VerifySubject(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefreshOutlivesAccess(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := newTestManager(t, clock)
	alice := &domain.User{ID: "u-1", Username: "alice"}

	pair, err := tm.IssuePair(alice)
	require.NoError(t, err)

	clock.now = clock.now.Add(30 * time.Minute)
	assert.False(t, tm.IsValidFor(pair.AccessToken, alice))
	assert.True(t, tm.IsValidFor(pair.RefreshToken, alice))

	claims, err := tm.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyTokenType(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tm := newTestManager(t, clock)
	alice := &domain.User{ID: "u-1", Username: "alice"}

	pair, err := tm.IssuePair(alice)
	require.NoError(t, err)

	_, err = tm.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = tm.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = tm.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err)
}

func TestVerifySubjectFailures(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tm := newTestManager(t, clock)
	alice := &domain.User{ID: "u-1", Username: "alice"}

	other, err := NewTokenManager(config.AuthConfig{JWTSecret: strings.Repeat("x", 40)}, WithClock(clock.Now))
	require.NoError(t, err)
	foreign, _, err := other.IssueAccess(alice)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "garbage", token: "not-a-token", want: ErrTokenMalformed},
		{name: "empty", token: "", want: ErrTokenMalformed},
		{name: "foreign signature", token: foreign, want: ErrTokenSignatureInvalid},
		{name: "unsigned", token: unsigned, want: ErrTokenMalformed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tm.VerifySubject(tc.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, tm.IsValidFor(tc.token, alice))
		})
	}
}
