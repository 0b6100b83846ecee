package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusEscalated  TicketStatus = "Escalated"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusEscalated,
	TicketStatusResolved,
}

// TicketCategory is the inferred complaint family.
type TicketCategory string

const (
	CategoryPackaging TicketCategory = "Packaging"
	CategoryTaste     TicketCategory = "Taste"
	CategoryQuality   TicketCategory = "Quality"
	CategoryDelivery  TicketCategory = "Delivery"
	CategoryOther     TicketCategory = "Other"
)

// TicketCategories lists every category in classification priority order.
var TicketCategories = []TicketCategory{
	CategoryPackaging,
	CategoryTaste,
	CategoryQuality,
	CategoryDelivery,
	CategoryOther,
}

// TicketSeverity mirrors the "Level" picker of the complaint form.
type TicketSeverity string

const (
	SeverityLow    TicketSeverity = "Low"
	SeverityMedium TicketSeverity = "Medium"
	SeverityHigh   TicketSeverity = "High"
)

// TicketSeverities lists every severity from lowest to highest.
var TicketSeverities = []TicketSeverity{SeverityLow, SeverityMedium, SeverityHigh}

// TicketSource records how a ticket entered the system.
type TicketSource string

const (
	SourceForm   TicketSource = "form"
	SourceImport TicketSource = "import"
	SourceSeed   TicketSource = "seed"
)

// Timeline notes written by the core.
const (
	NoteSubmitted          = "Complaint submitted"
	NoteImported           = "Imported from CSV"
	NoteEscalatedToPartner = "Escalated to manufacturing partner"
	statusNotePrefix       = "Status → "
)

// StatusNote is the generic timeline note for a transition into status.
func StatusNote(status TicketStatus) string {
	return statusNotePrefix + string(status)
}

// TimelineEntry is an append-only audit record.
type TimelineEntry struct {
	At   time.Time
	Note string
}

// ReviewFlags mark values that came from a silent default rather than a rule match.
type ReviewFlags struct {
	StatusUnmapped   bool
	CategoryUnmapped bool
}

// NeedsReview reports whether any value was defaulted.
func (r ReviewFlags) NeedsReview() bool {
	return r.StatusUnmapped || r.CategoryUnmapped
}

// Ticket is the canonical complaint record. Only Status and Timeline change
// after creation.
type Ticket struct {
	ID           string
	TicketID     string
	ConsumerName string
	Product      string
	LotCode      string
	Expiration   string
	Location     string
	Email        string
	Complaint    string
	Category     TicketCategory
	Severity     TicketSeverity
	Status       TicketStatus
	Source       TicketSource
	Review       ReviewFlags
	CreatedAt    time.Time
	Timeline     []TimelineEntry
}

// Clone returns a copy that shares no mutable state with t.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Timeline = append([]TimelineEntry(nil), t.Timeline...)
	return &cp
}

// LastEntry returns the most recent timeline entry.
func (t *Ticket) LastEntry() (TimelineEntry, bool) {
	if len(t.Timeline) == 0 {
		return TimelineEntry{}, false
	}
	return t.Timeline[len(t.Timeline)-1], true
}

// IsActive reports whether the ticket still needs work.
func (t *Ticket) IsActive() bool {
	return t.Status != TicketStatusResolved
}

// ParseStatus matches a canonical status name, ignoring case and surrounding space.
func ParseStatus(s string) (TicketStatus, bool) {
	s = strings.TrimSpace(s)
	for _, status := range TicketStatuses {
		if strings.EqualFold(s, string(status)) {
			return status, true
		}
	}
	return "", false
}

// ParseCategory matches a canonical category name, ignoring case.
func ParseCategory(s string) (TicketCategory, bool) {
	s = strings.TrimSpace(s)
	for _, category := range TicketCategories {
		if strings.EqualFold(s, string(category)) {
			return category, true
		}
	}
	return "", false
}

// ParseSeverity matches a canonical severity name, ignoring case.
func ParseSeverity(s string) (TicketSeverity, bool) {
	s = strings.TrimSpace(s)
	for _, severity := range TicketSeverities {
		if strings.EqualFold(s, string(severity)) {
			return severity, true
		}
	}
	return "", false
}
