// Package cache holds the user cache used by the account directory.
package cache

import (
	"context"
	"time"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

// UserCache stores users by string key. A miss returns (nil, false, nil).
// Implementations must never persist password hashes.
type UserCache interface {
	Get(ctx context.Context, key string) (*domain.User, bool, error)
	Set(ctx context.Context, key string, user *domain.User, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// IDKey is the cache key for a user id.
func IDKey(id string) string {
	return "user:id:" + id
}

// UsernameKey is the cache key for a username.
func UsernameKey(username string) string {
	return "user:name:" + username
}

// entry is the cached shape of a user. It has no password hash field.
type entry struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func toEntry(user *domain.User) entry {
	return entry{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (e entry) user() *domain.User {
	return &domain.User{
		ID:        e.ID,
		Username:  e.Username,
		Role:      e.Role,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
