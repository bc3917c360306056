package repository

import (
	"context"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

// TransferRepository is the append-only transfer ledger.
type TransferRepository interface {
	Append(ctx context.Context, transfer *domain.Transfer) error
}

type transferRepository struct {
	db DBTX
}

// NewTransferRepository instantiates repository.
func NewTransferRepository(db DBTX) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Append(ctx context.Context, transfer *domain.Transfer) error {
	const query = `
        INSERT INTO transfers (from_card_id, to_card_id, amount)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		transfer.FromCardID,
		transfer.ToCardID,
		transfer.Amount,
	).Scan(&transfer.ID, &transfer.CreatedAt)
}
