package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

// CardRepository encapsulates card persistence.
type CardRepository interface {
	Create(ctx context.Context, card *domain.Card) error
	Update(ctx context.Context, card *domain.Card) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int, error)
	GetByID(ctx context.Context, id string) (*domain.Card, error)
	// GetForUpdate loads the card and holds a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Card, error)
	// LockPair loads both cards and holds them until the transaction ends.
	// A missing card is returned as nil without an error.
	LockPair(ctx context.Context, firstID, secondID string) (*domain.Card, *domain.Card, error)
	ListWithFilter(ctx context.Context, filter CardFilter) ([]domain.Card, int, error)
	// ListExpiredActive locks the returned rows like GetForUpdate.
	ListExpiredActive(ctx context.Context, now time.Time) ([]domain.Card, error)
}

type cardRepository struct {
	db DBTX
}

// NewCardRepository instantiates repository.
func NewCardRepository(db DBTX) CardRepository {
	return &cardRepository{db: db}
}

const cardColumns = `id, encrypted_number, owner_id, expiration, status, balance, created_at, updated_at`

func (r *cardRepository) Create(ctx context.Context, card *domain.Card) error {
	const query = `
        INSERT INTO cards (encrypted_number, owner_id, expiration, status, balance)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		card.EncryptedNumber,
		card.OwnerID,
		card.Expiration,
		card.Status,
		card.Balance,
	).Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	return translatePgError(err)
}

func (r *cardRepository) Update(ctx context.Context, card *domain.Card) error {
	if !isUUID(card.ID) {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE cards SET encrypted_number=$1, owner_id=$2, expiration=$3, status=$4, balance=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		card.EncryptedNumber,
		card.OwnerID,
		card.Expiration,
		card.Status,
		card.Balance,
		card.ID,
	).Scan(&card.UpdatedAt)
	return translatePgError(err)
}

func (r *cardRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM cards WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *cardRepository) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	if !isUUID(ownerID) {
		return 0, nil
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM cards WHERE owner_id=$1`, ownerID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *cardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	if !isUUID(id) {
		return nil, pgx.ErrNoRows
	}
	var card domain.Card
	if err := scanCard(r.db.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id=$1`, id), &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) GetForUpdate(ctx context.Context, id string) (*domain.Card, error) {
	if !isUUID(id) {
		return nil, pgx.ErrNoRows
	}
	var card domain.Card
	if err := scanCard(r.db.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id=$1 FOR UPDATE`, id), &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// LockPair takes row locks in id order so that concurrent transfers touching
// the same cards queue instead of deadlocking.
func (r *cardRepository) LockPair(ctx context.Context, firstID, secondID string) (*domain.Card, *domain.Card, error) {
	ids := make([]string, 0, 2)
	for _, id := range []string{firstID, secondID} {
		if isUUID(id) {
			ids = append(ids, canonicalID(id))
		}
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`,
		ids)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	cards, err := scanCards(rows)
	if err != nil {
		return nil, nil, err
	}

	first, second := matchPair(cards, firstID, secondID)
	return first, second, nil
}

// matchPair picks the cards named by firstID and secondID. Ids are compared
// in canonical form since Postgres accepts any uuid spelling.
func matchPair(cards []domain.Card, firstID, secondID string) (*domain.Card, *domain.Card) {
	firstID, secondID = canonicalID(firstID), canonicalID(secondID)
	var first, second *domain.Card
	for i := range cards {
		switch canonicalID(cards[i].ID) {
		case firstID:
			first = &cards[i]
		case secondID:
			second = &cards[i]
		}
	}
	return first, second
}

func (r *cardRepository) ListWithFilter(ctx context.Context, filter CardFilter) ([]domain.Card, int, error) {
	listQuery, countQuery, args := buildCardListQueries(filter)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	cards, err := scanCards(rows)
	return cards, total, err
}

func (r *cardRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]domain.Card, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE status=$1 AND expiration < $2 ORDER BY id FOR UPDATE`,
		domain.CardStatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func scanCard(row pgx.Row, card *domain.Card) error {
	return row.Scan(
		&card.ID,
		&card.EncryptedNumber,
		&card.OwnerID,
		&card.Expiration,
		&card.Status,
		&card.Balance,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
}

func scanCards(rows pgx.Rows) ([]domain.Card, error) {
	var result []domain.Card
	for rows.Next() {
		var card domain.Card
		if err := scanCard(rows, &card); err != nil {
			return nil, err
		}
		result = append(result, card)
	}
	return result, rows.Err()
}
