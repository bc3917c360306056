package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

// RedisUserCache implements UserCache on top of Redis using JSON values.
type RedisUserCache struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedisUserCache wraps an existing client.
func NewRedisUserCache(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisUserCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisUserCache{client: client, prefix: prefix, logger: logger}
}

func (r *RedisUserCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisUserCache) Get(ctx context.Context, key string) (*domain.User, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("user cache miss", zap.String("key", key))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal(val, &e); err != nil {
		return nil, false, fmt.Errorf("decode cached user %s: %w", key, err)
	}
	r.logger.Debug("user cache hit", zap.String("key", key))
	return e.user(), true, nil
}

func (r *RedisUserCache) Set(ctx context.Context, key string, user *domain.User, ttl time.Duration) error {
	data, err := json.Marshal(toEntry(user))
	if err != nil {
		return fmt.Errorf("encode user %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisUserCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	r.logger.Debug("user cache evict", zap.Strings("keys", keys))
	return nil
}
