package dto

import (
	"time"

	"github.com/banza/complaint-desk/internal/domain"
)

// SubmitComplaintRequest payload of the customer complaint form.
type SubmitComplaintRequest struct {
	ConsumerName string `json:"consumer_name"`
	Product      string `json:"product"`
	LotCode      string `json:"lot_code"`
	Expiration   string `json:"expiration"`
	Location     string `json:"location"`
	Email        string `json:"email"`
	Complaint    string `json:"complaint"`
	Severity     string `json:"severity"`
}

// SubmitComplaintResponse returns the code the submitter tracks with.
type SubmitComplaintResponse struct {
	TicketID  string                `json:"ticket_id"`
	ID        string                `json:"id"`
	Status    domain.TicketStatus   `json:"status"`
	Category  domain.TicketCategory `json:"category"`
	CreatedAt time.Time             `json:"created_at"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ReviewResponse flags values that came from a default.
type ReviewResponse struct {
	NeedsReview      bool `json:"needs_review"`
	StatusUnmapped   bool `json:"status_unmapped"`
	CategoryUnmapped bool `json:"category_unmapped"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	TicketID     string                `json:"ticket_id"`
	ConsumerName string                `json:"consumer_name,omitempty"`
	Product      string                `json:"product"`
	LotCode      string                `json:"lot_code"`
	Category     domain.TicketCategory `json:"category"`
	Severity     domain.TicketSeverity `json:"severity"`
	Status       domain.TicketStatus   `json:"status"`
	Source       domain.TicketSource   `json:"source"`
	Review       ReviewResponse        `json:"review"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TimelineEntryResponse is one audit entry.
type TimelineEntryResponse struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID           string                  `json:"id"`
	TicketID     string                  `json:"ticket_id"`
	ConsumerName string                  `json:"consumer_name,omitempty"`
	Product      string                  `json:"product"`
	LotCode      string                  `json:"lot_code"`
	Expiration   string                  `json:"expiration"`
	Location     string                  `json:"location"`
	Email        string                  `json:"email"`
	Complaint    string                  `json:"complaint"`
	Category     domain.TicketCategory   `json:"category"`
	Severity     domain.TicketSeverity   `json:"severity"`
	Status       domain.TicketStatus     `json:"status"`
	Source       domain.TicketSource     `json:"source"`
	Review       ReviewResponse          `json:"review"`
	CreatedAt    time.Time               `json:"created_at"`
	Timeline     []TimelineEntryResponse `json:"timeline"`
}

// TrackResponse is the customer-facing view of a ticket.
type TrackResponse struct {
	TicketID  string                  `json:"ticket_id"`
	Product   string                  `json:"product"`
	LotCode   string                  `json:"lot_code"`
	Status    domain.TicketStatus     `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	Timeline  []TimelineEntryResponse `json:"timeline"`
}

// RowRejectionResponse explains one rejected import row.
type RowRejectionResponse struct {
	Row      int    `json:"row"`
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason"`
}

// ImportResponse is the outcome of a bulk import.
type ImportResponse struct {
	Imported        int                    `json:"imported"`
	Rejected        int                    `json:"rejected"`
	Warning         string                 `json:"warning,omitempty"`
	Blank           int                    `json:"blank_rows"`
	NeedsReview     int                    `json:"needs_review"`
	Sheet           string                 `json:"sheet,omitempty"`
	HeaderRow       int                    `json:"header_row"`
	HeaderRecovered bool                   `json:"header_recovered"`
	MissingFields   []string               `json:"missing_fields"`
	Rejections      []RowRejectionResponse `json:"rejections"`
	TicketIDs       []string               `json:"ticket_ids"`
}

// CountResponse is one labelled count for dashboard charts.
type CountResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SummaryResponse backs the support report page.
type SummaryResponse struct {
	Total       int             `json:"total"`
	Active      int             `json:"active"`
	Resolved    int             `json:"resolved"`
	NeedsReview int             `json:"needs_review"`
	ByStatus    []CountResponse `json:"by_status"`
	ByCategory  []CountResponse `json:"by_category"`
	BySeverity  []CountResponse `json:"by_severity"`
	ByProduct   []CountResponse `json:"by_product"`
	GeneratedAt time.Time       `json:"generated_at"`
}
