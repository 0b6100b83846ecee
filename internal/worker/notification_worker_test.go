package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banza/complaint-desk/internal/events"
)

func TestAuditWorkerLogsEveryTicketEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	StartAuditWorker(dispatcher, zap.New(core))

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_ = dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      events.EventTicketEscalated,
		TicketID:  "BAN-PEN-0001",
		Timestamp: at,
		Payload:   events.TicketEscalatedPayload{TicketCode: "BAN-PEN-0001", OldStatus: "Open"},
	})
	_ = dispatcher.Publish(context.Background(), events.Event{ID: "evt-2", Type: "unrelated"})

	entries := logs.FilterMessage("ticket event").All()
	if len(entries) != 1 {
		t.Fatalf("got %d audit lines, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_type"] != string(events.EventTicketEscalated) || fields["ticket_ref"] != "BAN-PEN-0001" {
		t.Errorf("fields = %v", fields)
	}
	if entries[0].LoggerName != "audit" {
		t.Errorf("logger name = %q", entries[0].LoggerName)
	}
}

func TestStartNotificationWorkerNil(t *testing.T) {
	StartNotificationWorker(nil, zap.NewNop())
	StartAuditWorker(nil, zap.NewNop())
}
