package worker

import (
	"github.com/spec-kit/bankcards-service/internal/service"
)

// StartNotificationWorker registers the audit handlers for card events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
