package memory

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/repository"
)

type userRepository struct {
	store *Store
	inTx  bool
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	return r.store.access(r.inTx, func(s *state) error {
		if usernameTaken(s, user.Username, "") {
			return repository.ErrDuplicate
		}
		now := r.store.now()
		user.ID = newID()
		user.CreatedAt = now
		user.UpdatedAt = now
		s.users[user.ID] = userRow{user: *user, seq: s.nextSeq()}
		return nil
	})
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	return r.store.access(r.inTx, func(s *state) error {
		row, ok := s.users[user.ID]
		if !ok {
			return pgx.ErrNoRows
		}
		if usernameTaken(s, user.Username, user.ID) {
			return repository.ErrDuplicate
		}
		user.CreatedAt = row.user.CreatedAt
		user.UpdatedAt = r.store.now()
		row.user = *user
		s.users[user.ID] = row
		return nil
	})
}

func (r *userRepository) Delete(_ context.Context, id string) error {
	return r.store.access(r.inTx, func(s *state) error {
		if _, ok := s.users[id]; !ok {
			return pgx.ErrNoRows
		}
		for _, c := range s.cards {
			if c.card.OwnerID == id {
				return repository.ErrReferenced
			}
		}
		delete(s.users, id)
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.store.access(r.inTx, func(s *state) error {
		row, ok := s.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		u := row.user
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	var out *domain.User
	err := r.store.access(r.inTx, func(s *state) error {
		for _, row := range s.users {
			if row.user.Username == username {
				u := row.user
				out = &u
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	return r.listMatching(limit, offset, func(domain.User) bool { return true })
}

func (r *userRepository) SearchByUsername(_ context.Context, q string, limit, offset int) ([]domain.User, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q))
	return r.listMatching(limit, offset, func(u domain.User) bool {
		return strings.Contains(strings.ToLower(u.Username), needle)
	})
}

func (r *userRepository) listMatching(limit, offset int, keep func(domain.User) bool) ([]domain.User, int, error) {
	var rows []userRow
	_ = r.store.access(r.inTx, func(s *state) error {
		for _, row := range s.users {
			if keep(row.user) {
				rows = append(rows, row)
			}
		}
		return nil
	})
	sortBySeq(rows, func(r userRow) int64 { return r.seq })

	users := make([]domain.User, 0, len(rows))
	for _, row := range page(rows, limit, offset) {
		users = append(users, row.user)
	}
	return users, len(rows), nil
}

func usernameTaken(s *state, username, exceptID string) bool {
	for id, row := range s.users {
		if id != exceptID && row.user.Username == username {
			return true
		}
	}
	return false
}
