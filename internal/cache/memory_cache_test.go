package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

func TestMemoryUserCacheRoundTripDropsPasswordHash(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryUserCache()
	user := &domain.User{ID: "u-1", Username: "alice", PasswordHash: "$2a$secret", Role: domain.RoleAdmin}

	require.NoError(t, c.Set(ctx, IDKey(user.ID), user, time.Minute))

	got, ok, err := c.Get(ctx, IDKey("u-1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.Empty(t, got.PasswordHash)

	got.Username = "mutated"
	again, _, _ := c.Get(ctx, IDKey("u-1"))
	assert.Equal(t, "alice", again.Username)
}

func TestMemoryUserCacheMiss(t *testing.T) {
	c := NewMemoryUserCache()
	got, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMemoryUserCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryUserCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", &domain.User{ID: "a"}, time.Minute))
	require.NoError(t, c.Set(ctx, "b", &domain.User{ID: "b"}, time.Hour))
	require.NoError(t, c.Set(ctx, "c", &domain.User{ID: "c"}, 0))

	now = now.Add(2 * time.Minute)

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "b")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryUserCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryUserCache()
	require.NoError(t, c.Set(ctx, IDKey("1"), &domain.User{ID: "1"}, time.Minute))
	require.NoError(t, c.Set(ctx, UsernameKey("alice"), &domain.User{ID: "1"}, time.Minute))

	require.NoError(t, c.Delete(ctx, IDKey("1"), UsernameKey("alice"), "unknown"))
	assert.Equal(t, 0, c.Len())
}
