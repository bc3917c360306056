package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is an immutable ledger entry for a completed card-to-card transfer.
type Transfer struct {
	ID         string
	FromCardID string
	ToCardID   string
	Amount     decimal.Decimal
	CreatedAt  time.Time
}
