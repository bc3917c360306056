package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/bankcards-service/internal/domain"
	apperrors "github.com/spec-kit/bankcards-service/pkg/util/errorutil"
)

// CardValidator holds the access and lifecycle rules for cards.
// It is stateless.
type CardValidator struct{}

// NewCardValidator returns a validator.
func NewCardValidator() *CardValidator {
	return &CardValidator{}
}

// RequireStatus resolves a status by exact name.
func (v *CardValidator) RequireStatus(name string) (domain.CardStatus, error) {
	for _, status := range domain.CardStatuses {
		if string(status) == name {
			return status, nil
		}
	}
	return "", apperrors.NewStatusNotFound(name)
}

// IsExpired reports whether expiration lies strictly before now.
func (v *CardValidator) IsExpired(expiration, now time.Time) bool {
	return expiration.Before(now)
}

// DetermineInitialStatus is EXPIRED for a past expiration and ACTIVE otherwise.
func (v *CardValidator) DetermineInitialStatus(expiration, now time.Time) domain.CardStatus {
	if v.IsExpired(expiration, now) {
		return domain.CardStatusExpired
	}
	return domain.CardStatusActive
}

// CheckOwnership requires user to own card. Admins get no exemption here.
func (v *CardValidator) CheckOwnership(card *domain.Card, user *domain.User) error {
	if user == nil || card.OwnerID != user.ID {
		return apperrors.NewForbidden("access denied: card does not belong to user")
	}
	return nil
}

// CheckPairOwnership requires user to own both cards.
func (v *CardValidator) CheckPairOwnership(from, to *domain.Card, user *domain.User) error {
	if user == nil || from.OwnerID != user.ID || to.OwnerID != user.ID {
		return apperrors.NewForbidden("access denied: cards must belong to user")
	}
	return nil
}

// CheckReadAccess lets admins read any card and owners read their own.
func (v *CardValidator) CheckReadAccess(card *domain.Card, user *domain.User) error {
	if user.IsAdmin() {
		return nil
	}
	return v.CheckOwnership(card, user)
}

// CheckActive requires the card to be ACTIVE.
func (v *CardValidator) CheckActive(card *domain.Card) error {
	if card.Status != domain.CardStatusActive {
		return apperrors.NewCardNotActive("card is already blocked or expired")
	}
	return nil
}

// CheckBothActive requires both transfer cards to be ACTIVE.
func (v *CardValidator) CheckBothActive(from, to *domain.Card) error {
	if from.Status != domain.CardStatusActive || to.Status != domain.CardStatusActive {
		return apperrors.NewCardsNotActive("both cards must be active for transfer")
	}
	return nil
}

// CheckSufficientFunds requires balance >= amount. Equality is sufficient.
func (v *CardValidator) CheckSufficientFunds(card *domain.Card, amount decimal.Decimal) error {
	if card.Balance.LessThan(amount) {
		return apperrors.NewInsufficientFunds("insufficient balance on source card")
	}
	return nil
}
