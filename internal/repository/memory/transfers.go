package memory

import (
	"context"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

type transferRepository struct {
	store *Store
	inTx  bool
}

func (r *transferRepository) Append(_ context.Context, transfer *domain.Transfer) error {
	return r.store.access(r.inTx, func(s *state) error {
		transfer.ID = newID()
		transfer.CreatedAt = r.store.now()
		s.transfers = append(s.transfers, *transfer)
		return nil
	})
}
