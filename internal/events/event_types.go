package events

import (
	"time"

	"github.com/banza/complaint-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketsImported     EventType = "tickets_imported"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketCode string                `json:"ticket_code"`
	Source     domain.TicketSource   `json:"source"`
	Product    string                `json:"product"`
	Category   domain.TicketCategory `json:"category"`
	Severity   domain.TicketSeverity `json:"severity"`
	Email      string                `json:"email,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketCode string              `json:"ticket_code"`
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	Note       string              `json:"note"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	TicketCode string              `json:"ticket_code"`
	OldStatus  domain.TicketStatus `json:"old_status"`
	Product    string              `json:"product"`
	LotCode    string              `json:"lot_code,omitempty"`
}

// TicketsImportedPayload payload.
type TicketsImportedPayload struct {
	FileName        string `json:"file_name"`
	Imported        int    `json:"imported"`
	Rejected        int    `json:"rejected"`
	NeedsReview     int    `json:"needs_review"`
	HeaderRecovered bool   `json:"header_recovered"`
}
