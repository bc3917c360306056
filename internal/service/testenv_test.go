package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/bankcards-service/internal/auth"
	"github.com/spec-kit/bankcards-service/internal/cache"
	"github.com/spec-kit/bankcards-service/internal/cardcrypto"
	"github.com/spec-kit/bankcards-service/internal/config"
	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/events"
	"github.com/spec-kit/bankcards-service/internal/repository"
	"github.com/spec-kit/bankcards-service/internal/repository/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// countingCache wraps the memory cache and records hits, misses and evictions.
type countingCache struct {
	inner *cache.MemoryUserCache

	mu      sync.Mutex
	hits    int
	misses  int
	evicted []string
	fail    bool
}

func newCountingCache() *countingCache {
	return &countingCache{inner: cache.NewMemoryUserCache()}
}

func (c *countingCache) Get(ctx context.Context, key string) (*domain.User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, false, errors.New("cache unavailable")
	}
	user, ok, err := c.inner.Get(ctx, key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return user, ok, err
}

func (c *countingCache) Set(ctx context.Context, key string, user *domain.User, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("cache unavailable")
	}
	return c.inner.Set(ctx, key, user, ttl)
}

func (c *countingCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicted = append(c.evicted, keys...)
	if c.fail {
		return errors.New("cache unavailable")
	}
	return c.inner.Delete(ctx, keys...)
}

type testEnv struct {
	store     *memory.Store
	cache     *countingCache
	directory *AccountDirectory
	tokens    *auth.TokenManager
	cards     *CardService
	auth      *AuthService
	users     *UserAdminService

	mu     sync.Mutex
	events []events.Event

	admin *domain.User
	alice *domain.User
	bob   *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore builds the services on top of wrap(store). env.store
// stays the underlying memory store for assertions.
func newTestEnvWithStore(t *testing.T, wrap func(*memory.Store) repository.Store) *testEnv {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return testNow }

	cipher, err := cardcrypto.New(config.EncryptionConfig{
		Key:            "0123456789abcdef",
		NonceLength:    12,
		TagLength:      16,
		MaskingPattern: "**** **** **** %s",
	})
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager(config.AuthConfig{
		JWTSecret:              "service-test-secret-long-enough-for-hs256",
		AccessTokenTTLMinutes:  15,
		RefreshTokenTTLMinutes: 60,
	}, auth.WithClock(clock))
	require.NoError(t, err)

	env := &testEnv{
		store:  memory.NewStore(memory.WithClock(clock)),
		cache:  newCountingCache(),
		tokens: tokens,
	}
	var store repository.Store = env.store
	if wrap != nil {
		store = wrap(env.store)
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventCardCreated,
		events.EventCardUpdated,
		events.EventCardDeleted,
		events.EventCardStatusChanged,
		events.EventTransferCompleted,
	} {
		dispatcher.Subscribe(eventType, env.record)
	}

	env.directory = NewAccountDirectory(store, env.cache, time.Minute, nil)
	env.auth = NewAuthService(env.directory, tokens, bcrypt.MinCost, nil)
	env.users = NewUserAdminService(env.directory, bcrypt.MinCost, nil)
	env.cards = NewCardService(config.CardsConfig{DefaultPageSize: 10, MaxPageSize: 50}, CardDependencies{
		Store:      store,
		Directory:  env.directory,
		Cipher:     cipher,
		Dispatcher: dispatcher,
		Now:        clock,
	})

	env.admin, err = env.users.Create(ctx, "root", "rootpass", domain.RoleAdmin)
	require.NoError(t, err)
	env.alice, err = env.users.Create(ctx, "alice", "alicepass", domain.RoleUser)
	require.NoError(t, err)
	env.bob, err = env.users.Create(ctx, "bob", "bobpass1", domain.RoleUser)
	require.NoError(t, err)
	return env
}

func (e *testEnv) record(_ context.Context, event events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *testEnv) eventsOf(eventType events.EventType) []events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []events.Event
	for _, ev := range e.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (e *testEnv) createCard(t *testing.T, owner *domain.User, number string, balance int64) *CardView {
	t.Helper()
	view, err := e.cards.CreateCard(context.Background(), CardInput{
		Number:     number,
		OwnerID:    owner.ID,
		Expiration: testNow.AddDate(2, 0, 0),
		Balance:    decimal.NewFromInt(balance),
	}, e.admin)
	require.NoError(t, err)
	return view
}

func (e *testEnv) card(t *testing.T, id string) *CardView {
	t.Helper()
	view, err := e.cards.GetCard(context.Background(), id, e.admin)
	require.NoError(t, err)
	return view
}
