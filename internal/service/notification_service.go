package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/bankcards-service/internal/events"
	"github.com/spec-kit/bankcards-service/internal/observability"
)

// NotificationService writes an audit trail for card events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCardCreated, n.handleCardCreated)
	n.dispatcher.Subscribe(events.EventCardUpdated, n.handleCardUpdated)
	n.dispatcher.Subscribe(events.EventCardDeleted, n.handleCardDeleted)
	n.dispatcher.Subscribe(events.EventCardStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTransferCompleted, n.handleTransferCompleted)
}

func (n *NotificationService) handleCardCreated(_ context.Context, event events.Event) error {
	n.record(event)
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.CardCreatedPayload); ok {
		fields = append(fields,
			zap.String("owner_id", p.OwnerID),
			zap.String("status", string(p.Status)),
			zap.String("masked_number", p.MaskedNumber))
	}
	n.logger.Info("CardCreated", fields...)
	return nil
}

func (n *NotificationService) handleCardUpdated(_ context.Context, event events.Event) error {
	n.record(event)
	n.logger.Info("CardUpdated", append(n.baseFields(event), zap.Any("payload", event.Payload))...)
	return nil
}

func (n *NotificationService) handleCardDeleted(_ context.Context, event events.Event) error {
	n.record(event)
	n.logger.Info("CardDeleted", append(n.baseFields(event), zap.Any("payload", event.Payload))...)
	return nil
}

func (n *NotificationService) handleStatusChanged(_ context.Context, event events.Event) error {
	n.record(event)
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.CardStatusChangedPayload); ok {
		fields = append(fields,
			zap.String("old_status", string(p.OldStatus)),
			zap.String("new_status", string(p.NewStatus)),
			zap.String("reason", string(p.Reason)))
	}
	n.logger.Info("CardStatusChanged", fields...)
	return nil
}

func (n *NotificationService) handleTransferCompleted(_ context.Context, event events.Event) error {
	n.record(event)
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.TransferCompletedPayload); ok {
		fields = append(fields,
			zap.String("transfer_id", p.TransferID),
			zap.String("to_card_id", p.ToCardID),
			zap.String("amount", p.Amount))
	}
	n.logger.Info("TransferCompleted", fields...)
	return nil
}

func (n *NotificationService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("card_id", event.CardID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Time("at", event.Timestamp),
	}
}

func (n *NotificationService) record(event events.Event) {
	n.metrics.RecordEvent(string(event.Type))
}
