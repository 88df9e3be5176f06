package worker

import (
	"github.com/spec-kit/service-shop/internal/service"
)

// StartNotificationWorker registers in-process notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
