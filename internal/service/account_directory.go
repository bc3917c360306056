package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/bankcards-service/internal/cache"
	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/repository"
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

// AccountDirectory resolves users through a read-through cache.
// Every write goes through the directory and evicts the affected keys, so a
// cached entry is never older than the last write made by this process.
// Users returned by the directory never carry a password hash.
type AccountDirectory struct {
	store  repository.Store
	cache  cache.UserCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewAccountDirectory builds the directory.
func NewAccountDirectory(store repository.Store, userCache cache.UserCache, ttl time.Duration, logger *zap.Logger) *AccountDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountDirectory{store: store, cache: userCache, ttl: ttl, logger: logger}
}

// RequireByID returns the user or NotFound.
func (d *AccountDirectory) RequireByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := d.cached(ctx, cache.IDKey(id)); ok {
		return user, nil
	}
	user, err := d.store.Repositories().Users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err, "id", id)
	}
	return d.remember(ctx, user), nil
}

// RequireByUsername returns the user or NotFound.
func (d *AccountDirectory) RequireByUsername(ctx context.Context, username string) (*domain.User, error) {
	if user, ok := d.cached(ctx, cache.UsernameKey(username)); ok {
		return user, nil
	}
	user, err := d.store.Repositories().Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, userLookupError(err, "username", username)
	}
	return d.remember(ctx, user), nil
}

// Credentials returns the stored user including the password hash.
// It always reads the repository.
func (d *AccountDirectory) Credentials(ctx context.Context, username string) (*domain.User, error) {
	user, err := d.store.Repositories().Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, userLookupError(err, "username", username)
	}
	return user, nil
}

// Create stores a new user. A taken username yields Conflict.
func (d *AccountDirectory) Create(ctx context.Context, user *domain.User) error {
	if err := d.store.Repositories().Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewConflict("username already taken", map[string]any{"username": user.Username})
		}
		return fmt.Errorf("create user: %w", err)
	}
	d.evict(ctx, cache.IDKey(user.ID), cache.UsernameKey(user.Username))
	d.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

// Update persists user. An empty PasswordHash keeps the stored one.
func (d *AccountDirectory) Update(ctx context.Context, user *domain.User) error {
	users := d.store.Repositories().Users
	current, err := users.GetByID(ctx, user.ID)
	if err != nil {
		return userLookupError(err, "id", user.ID)
	}
	if user.PasswordHash == "" {
		user.PasswordHash = current.PasswordHash
	}

	if err := users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return apperrors.NewConflict("username already taken", map[string]any{"username": user.Username})
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NewNotFound("user", map[string]any{"id": user.ID})
		}
		return fmt.Errorf("update user: %w", err)
	}
	user.CreatedAt = current.CreatedAt
	d.evict(ctx, cache.IDKey(user.ID), cache.UsernameKey(current.Username), cache.UsernameKey(user.Username))
	return nil
}

// Delete removes the user and every card the user owns in one transaction.
// It returns the number of cards removed.
func (d *AccountDirectory) Delete(ctx context.Context, id string) (int, error) {
	var (
		username string
		removed  int
	)
	err := d.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, id)
		if err != nil {
			return userLookupError(err, "id", id)
		}
		username = user.Username

		removed, err = repos.Cards.DeleteByOwner(ctx, id)
		if err != nil {
			return fmt.Errorf("delete cards of user %s: %w", id, err)
		}
		if err := repos.Users.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete user %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	d.evict(ctx, cache.IDKey(id), cache.UsernameKey(username))
	d.logger.Info("user deleted", zap.String("user_id", id), zap.Int("cards_removed", removed))
	return removed, nil
}

// List pages through users, optionally filtered by a username substring.
func (d *AccountDirectory) List(ctx context.Context, q string, limit, offset int) ([]domain.User, int, error) {
	users := d.store.Repositories().Users
	var (
		result []domain.User
		total  int
		err    error
	)
	if q == "" {
		result, total, err = users.List(ctx, limit, offset)
	} else {
		result, total, err = users.SearchByUsername(ctx, q, limit, offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	for i := range result {
		result[i].PasswordHash = ""
	}
	return result, total, nil
}

func (d *AccountDirectory) cached(ctx context.Context, key string) (*domain.User, bool) {
	user, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Warn("user cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return user, ok
}

// remember caches user under both keys and returns a copy without the hash.
func (d *AccountDirectory) remember(ctx context.Context, user *domain.User) *domain.User {
	public := *user
	public.PasswordHash = ""
	for _, key := range []string{cache.IDKey(user.ID), cache.UsernameKey(user.Username)} {
		if err := d.cache.Set(ctx, key, &public, d.ttl); err != nil {
			d.logger.Warn("user cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return &public
}

func (d *AccountDirectory) evict(ctx context.Context, keys ...string) {
	if err := d.cache.Delete(ctx, keys...); err != nil {
		d.logger.Warn("user cache eviction failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func userLookupError(err error, field, value string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("user", map[string]any{field: value})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("load user by %s: %w", field, err)
}
