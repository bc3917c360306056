package memory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/repository"
)

type cardRepository struct {
	store *Store
	inTx  bool
}

func (r *cardRepository) Create(_ context.Context, card *domain.Card) error {
	return r.store.access(r.inTx, func(s *state) error {
		if _, ok := s.users[card.OwnerID]; !ok {
			return repository.ErrReferenced
		}
		now := r.store.now()
		card.ID = newID()
		card.CreatedAt = now
		card.UpdatedAt = now
		s.cards[card.ID] = cardRow{card: *card, seq: s.nextSeq()}
		return nil
	})
}

func (r *cardRepository) Update(_ context.Context, card *domain.Card) error {
	return r.store.access(r.inTx, func(s *state) error {
		row, ok := s.cards[card.ID]
		if !ok {
			return pgx.ErrNoRows
		}
		if _, ok := s.users[card.OwnerID]; !ok {
			return repository.ErrReferenced
		}
		card.CreatedAt = row.card.CreatedAt
		card.UpdatedAt = r.store.now()
		row.card = *card
		s.cards[card.ID] = row
		return nil
	})
}

func (r *cardRepository) Delete(_ context.Context, id string) error {
	return r.store.access(r.inTx, func(s *state) error {
		if _, ok := s.cards[id]; !ok {
			return pgx.ErrNoRows
		}
		delete(s.cards, id)
		return nil
	})
}

func (r *cardRepository) DeleteByOwner(_ context.Context, ownerID string) (int, error) {
	removed := 0
	err := r.store.access(r.inTx, func(s *state) error {
		for id, row := range s.cards {
			if row.card.OwnerID == ownerID {
				delete(s.cards, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (r *cardRepository) GetByID(_ context.Context, id string) (*domain.Card, error) {
	var out *domain.Card
	err := r.store.access(r.inTx, func(s *state) error {
		row, ok := s.cards[rowKey(id)]
		if !ok {
			return pgx.ErrNoRows
		}
		c := row.card
		out = &c
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock here: a transaction already holds the store.
func (r *cardRepository) GetForUpdate(ctx context.Context, id string) (*domain.Card, error) {
	return r.GetByID(ctx, id)
}

func (r *cardRepository) LockPair(_ context.Context, firstID, secondID string) (*domain.Card, *domain.Card, error) {
	var first, second *domain.Card
	err := r.store.access(r.inTx, func(s *state) error {
		if row, ok := s.cards[rowKey(firstID)]; ok {
			c := row.card
			first = &c
		}
		if row, ok := s.cards[rowKey(secondID)]; ok {
			c := row.card
			second = &c
		}
		return nil
	})
	return first, second, err
}

func (r *cardRepository) ListWithFilter(_ context.Context, filter repository.CardFilter) ([]domain.Card, int, error) {
	var rows []cardRow
	_ = r.store.access(r.inTx, func(s *state) error {
		for _, row := range s.cards {
			if filter.Matches(&row.card) {
				rows = append(rows, row)
			}
		}
		return nil
	})
	sortBySeq(rows, func(r cardRow) int64 { return r.seq })

	cards := make([]domain.Card, 0, len(rows))
	for _, row := range page(rows, filter.Limit, filter.Offset) {
		cards = append(cards, row.card)
	}
	return cards, len(rows), nil
}

func (r *cardRepository) ListExpiredActive(_ context.Context, now time.Time) ([]domain.Card, error) {
	var rows []cardRow
	_ = r.store.access(r.inTx, func(s *state) error {
		for _, row := range s.cards {
			if row.card.Status == domain.CardStatusActive && row.card.Expiration.Before(now) {
				rows = append(rows, row)
			}
		}
		return nil
	})
	sortBySeq(rows, func(r cardRow) int64 { return r.seq })

	cards := make([]domain.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, row.card)
	}
	return cards, nil
}
