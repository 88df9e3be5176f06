package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/service-shop/internal/config"
	"github.com/spec-kit/service-shop/internal/events"
)

// NotificationService delivers in-process notifications when the bus driver
// is memory. With a real broker the notification service consumes instead.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventServiceRequestCreated, n.handleCreated)
	n.dispatcher.Subscribe(events.EventServiceRequestAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventServiceRequestCompleted, n.handleCompleted)
}

func (n *NotificationService) handleCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestCreated", zap.String("service_request_id", event.ServiceRequestID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestAssigned", zap.String("service_request_id", event.ServiceRequestID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestCompleted", zap.String("service_request_id", event.ServiceRequestID))
	payload, ok := event.Payload.(events.CompletedPayload)
	if !ok {
		return nil
	}
	n.sendEmailNotificationStub(ctx, event, payload.CustomerEmail)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, to string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || strings.TrimSpace(to) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("service_request_id", event.ServiceRequestID),
		zap.String("event_type", string(event.Type)))
}
