// Package memory is an in-process implementation of repository.Store used
// when no database is configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/repository"
)

// Store keeps all rows in maps guarded by one mutex. A transaction holds the
// mutex for its whole duration and restores a snapshot when it fails.
type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

type userRow struct {
	user domain.User
	seq  int64
}

type cardRow struct {
	card domain.Card
	seq  int64
}

type state struct {
	users     map[string]userRow
	cards     map[string]cardRow
	transfers []domain.Transfer
	seq       int64
}

func newState() *state {
	return &state{users: map[string]userRow{}, cards: map[string]cardRow{}}
}

func (s *state) clone() *state {
	c := &state{
		users:     make(map[string]userRow, len(s.users)),
		cards:     make(map[string]cardRow, len(s.cards)),
		transfers: append([]domain.Transfer(nil), s.transfers...),
		seq:       s.seq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.cards {
		c.cards[k] = v
	}
	return c
}

func (s *state) nextSeq() int64 {
	s.seq++
	return s.seq
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{data: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repositories returns repositories where every call is its own transaction.
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(false)
}

// WithinTransaction serializes fn against every other store access.
func (s *Store) WithinTransaction(ctx context.Context, fn repository.TxFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(ctx, s.repositories(true)); err != nil {
		return err
	}
	committed = true
	return nil
}

// TransferCount reports the number of ledger entries.
func (s *Store) TransferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.transfers)
}

// Transfers returns a copy of the ledger in append order.
func (s *Store) Transfers() []domain.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Transfer(nil), s.data.transfers...)
}

func (s *Store) repositories(inTx bool) repository.Repositories {
	return repository.Repositories{
		Users:     &userRepository{store: s, inTx: inTx},
		Cards:     &cardRepository{store: s, inTx: inTx},
		Transfers: &transferRepository{store: s, inTx: inTx},
	}
}

// access runs fn against the live state, taking the lock unless the caller
// is already inside a transaction that holds it.
func (s *Store) access(inTx bool, fn func(*state) error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

func newID() string {
	return uuid.NewString()
}

// rowKey maps any spelling of a uuid to the form ids are stored under.
func rowKey(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortBySeq[T any](items []T, seq func(T) int64) {
	sort.Slice(items, func(i, j int) bool { return seq(items[i]) < seq(items[j]) })
}
