package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/banza/complaint-desk/internal/events"
	"github.com/banza/complaint-desk/internal/service"
)

var auditedEvents = []events.EventType{
	events.EventTicketCreated,
	events.EventTicketStatusChanged,
	events.EventTicketEscalated,
	events.EventTicketsImported,
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers registered")
}

// StartAuditWorker writes one structured line per ticket event so the
// lifecycle can be reconstructed from logs alone.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	audit := logger.Named("audit")
	for _, et := range auditedEvents {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			audit.Info("ticket event",
				zap.String("event_id", e.ID),
				zap.String("event_type", string(e.Type)),
				zap.String("ticket_ref", e.TicketID),
				zap.Time("at", e.Timestamp),
				zap.Any("payload", e.Payload))
			return nil
		})
	}
}
