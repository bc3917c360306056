package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/bankcards-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCardCreated       EventType = "card_created"
	EventCardUpdated       EventType = "card_updated"
	EventCardDeleted       EventType = "card_deleted"
	EventCardStatusChanged EventType = "card_status_changed"
	EventTransferCompleted EventType = "transfer_completed"
)

// Actor identifies who caused an event. A zero Actor means the system.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ActorFrom builds an Actor for user; nil yields the system actor.
func ActorFrom(user *domain.User) Actor {
	if user == nil {
		return Actor{}
	}
	return Actor{UserID: user.ID, Role: user.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	CardID    string    `json:"card_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, cardID string, actor Actor, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		CardID:    cardID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// CardCreatedPayload payload. MaskedNumber is the only form of the PAN events carry.
type CardCreatedPayload struct {
	OwnerID      string            `json:"owner_id"`
	Status       domain.CardStatus `json:"status"`
	MaskedNumber string            `json:"masked_number"`
}

// CardUpdatedPayload payload.
type CardUpdatedPayload struct {
	OwnerID string            `json:"owner_id"`
	Status  domain.CardStatus `json:"status"`
}

// CardDeletedPayload payload.
type CardDeletedPayload struct {
	OwnerID string `json:"owner_id"`
}

// StatusChangeReason explains a lifecycle transition.
type StatusChangeReason string

const (
	ReasonOwnerBlock    StatusChangeReason = "owner_block"
	ReasonAdminBlock    StatusChangeReason = "admin_block"
	ReasonAdminActivate StatusChangeReason = "admin_activate"
	ReasonExpired       StatusChangeReason = "expired"
)

// CardStatusChangedPayload payload.
type CardStatusChangedPayload struct {
	OldStatus domain.CardStatus  `json:"old_status"`
	NewStatus domain.CardStatus  `json:"new_status"`
	Reason    StatusChangeReason `json:"reason"`
}

// TransferCompletedPayload payload. Event.CardID holds the source card.
type TransferCompletedPayload struct {
	TransferID string `json:"transfer_id"`
	FromCardID string `json:"from_card_id"`
	ToCardID   string `json:"to_card_id"`
	Amount     string `json:"amount"`
}
