package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus enumerates lifecycle states for cards.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// CardStatuses is the fixed set of statuses a card may hold.
var CardStatuses = []CardStatus{CardStatusActive, CardStatusBlocked, CardStatusExpired}

// Card is a payment card. EncryptedNumber never holds the plaintext PAN.
type Card struct {
	ID              string
	EncryptedNumber string
	OwnerID         string
	Expiration      time.Time
	Status          CardStatus
	Balance         decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
