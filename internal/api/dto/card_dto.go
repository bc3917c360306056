package dto

import (
	"github.com/shopspring/decimal"

	"github.com/spec-kit/bankcards-service/internal/service"
)

// CardRequest payload for creating or replacing a card.
type CardRequest struct {
	Number     string          `json:"number" validate:"required,numeric,len=16"`
	OwnerID    string          `json:"owner_id" validate:"required"`
	Expiration Date            `json:"expiration"`
	Balance    decimal.Decimal `json:"balance" validate:"gte=0"`
}

// ToInput converts the payload for the service layer.
func (r CardRequest) ToInput() service.CardInput {
	return service.CardInput{
		Number:     r.Number,
		OwnerID:    r.OwnerID,
		Expiration: r.Expiration.Time,
		Balance:    r.Balance,
	}
}

// TransferRequest payload for moving funds between own cards.
type TransferRequest struct {
	FromCardID string          `json:"from_card_id" validate:"required"`
	ToCardID   string          `json:"to_card_id" validate:"required,nefield=FromCardID"`
	Amount     decimal.Decimal `json:"amount" validate:"gte=0"`
}

// CardResponse is the masked card representation.
type CardResponse struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	OwnerID    string          `json:"owner_id"`
	Owner      string          `json:"owner"`
	Expiration Date            `json:"expiration"`
	Status     string          `json:"status"`
	Balance    decimal.Decimal `json:"balance"`
}

// CardPageResponse wraps a page of cards.
type CardPageResponse struct {
	Content       []CardResponse `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int            `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
}

// TransferResponse describes a completed transfer.
type TransferResponse struct {
	ID         string          `json:"id"`
	FromCardID string          `json:"from_card_id"`
	ToCardID   string          `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  string          `json:"created_at"`
}

// NewCardResponse maps a service view.
func NewCardResponse(v *service.CardView) CardResponse {
	return CardResponse{
		ID:         v.ID,
		Number:     v.MaskedNumber,
		OwnerID:    v.OwnerID,
		Owner:      v.OwnerUsername,
		Expiration: NewDate(v.Expiration),
		Status:     string(v.Status),
		Balance:    v.Balance,
	}
}

// NewCardPageResponse maps a service page.
func NewCardPageResponse(p *service.CardPage) CardPageResponse {
	content := make([]CardResponse, 0, len(p.Items))
	for i := range p.Items {
		content = append(content, NewCardResponse(&p.Items[i]))
	}
	return CardPageResponse{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.Total,
		TotalPages:    totalPages(p.Total, p.Size),
	}
}

func totalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
