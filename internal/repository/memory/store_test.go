package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/repository"
)

func seedUser(t *testing.T, store *Store, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, PasswordHash: "hash", Role: domain.RoleUser}
	require.NoError(t, store.Repositories().Users.Create(context.Background(), user))
	return user
}

func seedCard(t *testing.T, store *Store, ownerID string, balance int64) *domain.Card {
	t.Helper()
	card := &domain.Card{
		EncryptedNumber: "ciphertext",
		OwnerID:         ownerID,
		Expiration:      time.Now().AddDate(1, 0, 0),
		Status:          domain.CardStatusActive,
		Balance:         decimal.NewFromInt(balance),
	}
	require.NoError(t, store.Repositories().Cards.Create(context.Background(), card))
	return card
}

func TestUsersCreateRejectsDuplicateUsername(t *testing.T) {
	store := NewStore()
	seedUser(t, store, "alice")

	err := store.Repositories().Users.Create(context.Background(), &domain.User{Username: "alice"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestUsersGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice := seedUser(t, store, "alice")

	got, err := store.Repositories().Users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	got.Username = "changed"

	again, err := store.Repositories().Users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, again.ID)

	_, err = store.Repositories().Users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestUsersSearchAndPaging(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, name := range []string{"alice", "Alina", "bob", "carol"} {
		seedUser(t, store, name)
	}

	users, total, err := store.Repositories().Users.SearchByUsername(ctx, "AL", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "Alina", users[1].Username)

	users, total, err = store.Repositories().Users.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username)

	users, _, err = store.Repositories().Users.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserDeleteRestrictedByCards(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice := seedUser(t, store, "alice")
	seedCard(t, store, alice.ID, 0)

	err := store.Repositories().Users.Delete(ctx, alice.ID)
	assert.ErrorIs(t, err, repository.ErrReferenced)

	removed, err := store.Repositories().Cards.DeleteByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	require.NoError(t, store.Repositories().Users.Delete(ctx, alice.ID))
}

func TestCardsListWithFilter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	a1 := seedCard(t, store, alice.ID, 10)
	seedCard(t, store, bob.ID, 20)
	a2 := seedCard(t, store, alice.ID, 30)

	a2.Status = domain.CardStatusBlocked
	require.NoError(t, store.Repositories().Cards.Update(ctx, a2))

	cards, total, err := store.Repositories().Cards.ListWithFilter(ctx, repository.CardFilter{OwnerID: &alice.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, cards, 2)
	assert.Equal(t, a1.ID, cards[0].ID)
	assert.Equal(t, a2.ID, cards[1].ID)

	blocked := domain.CardStatusBlocked
	cards, total, err = store.Repositories().Cards.ListWithFilter(ctx, repository.CardFilter{Status: &blocked})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, a2.ID, cards[0].ID)
}

func TestCardsLockPairReportsMissing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice := seedUser(t, store, "alice")
	card := seedCard(t, store, alice.ID, 10)

	first, second, err := store.Repositories().Cards.LockPair(ctx, card.ID, "missing")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, card.ID, first.ID)
	assert.Nil(t, second)
}

func TestCardsLockPairAcceptsAnyUUIDSpelling(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice := seedUser(t, store, "alice")
	a := seedCard(t, store, alice.ID, 10)
	b := seedCard(t, store, alice.ID, 20)

	first, second, err := store.Repositories().Cards.LockPair(ctx, strings.ToUpper(a.ID), "urn:uuid:"+b.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, a.ID, first.ID)
	assert.Equal(t, b.ID, second.ID)
}

func TestCardsListExpiredActive(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice := seedUser(t, store, "alice")
	now := time.Now()

	overdue := seedCard(t, store, alice.ID, 0)
	overdue.Expiration = now.AddDate(0, 0, -1)
	require.NoError(t, store.Repositories().Cards.Update(ctx, overdue))

	blockedOverdue := seedCard(t, store, alice.ID, 0)
	blockedOverdue.Expiration = now.AddDate(0, 0, -1)
	blockedOverdue.Status = domain.CardStatusBlocked
	require.NoError(t, store.Repositories().Cards.Update(ctx, blockedOverdue))

	seedCard(t, store, alice.ID, 0)

	cards, err := store.Repositories().Cards.ListExpiredActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, overdue.ID, cards[0].ID)
}

func TestWithinTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice := seedUser(t, store, "alice")
	card := seedCard(t, store, alice.ID, 100)
	boom := errors.New("boom")

	err := store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := repos.Cards.GetByID(ctx, card.ID)
		if err != nil {
			return err
		}
		c.Balance = decimal.Zero
		if err := repos.Cards.Update(ctx, c); err != nil {
			return err
		}
		if err := repos.Transfers.Append(ctx, &domain.Transfer{FromCardID: c.ID, ToCardID: c.ID}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Repositories().Cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 0, store.TransferCount())
}

func TestWithinTransactionCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Users.Create(ctx, &domain.User{Username: "alice"})
	})
	require.NoError(t, err)

	_, err = store.Repositories().Users.GetByUsername(ctx, "alice")
	assert.NoError(t, err)
}

func TestWithinTransactionSerializes(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice := seedUser(t, store, "alice")
	card := seedCard(t, store, alice.ID, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
				c, err := repos.Cards.GetByID(ctx, card.ID)
				if err != nil {
					return err
				}
				c.Balance = c.Balance.Add(decimal.NewFromInt(1))
				return repos.Cards.Update(ctx, c)
			})
		}()
	}
	wg.Wait()

	got, err := store.Repositories().Cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(50)), got.Balance.String())
}
