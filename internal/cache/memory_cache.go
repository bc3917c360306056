package cache

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

// MemoryUserCache implements UserCache in process memory.
// Expired entries are dropped lazily on read and by Purge.
type MemoryUserCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     entry
	expiresAt time.Time
}

// NewMemoryUserCache creates an empty cache.
func NewMemoryUserCache() *MemoryUserCache {
	return &MemoryUserCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryUserCache) Get(_ context.Context, key string) (*domain.User, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.value.user(), true, nil
}

// Set stores a copy of the user. A non-positive ttl never expires.
func (c *MemoryUserCache) Set(_ context.Context, key string, user *domain.User, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: toEntry(user), expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

func (c *MemoryUserCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (c *MemoryUserCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryUserCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
