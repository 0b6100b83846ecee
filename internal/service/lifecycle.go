package service

import (
	"errors"
	"fmt"

	"github.com/banza/complaint-desk/internal/clock"
	"github.com/banza/complaint-desk/internal/domain"
)

// ErrInvalidTransition is returned for a status move the state machine forbids.
var ErrInvalidTransition = errors.New("invalid status transition")

// Reopening is allowed from every state other than Open.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusEscalated, domain.TicketStatusResolved},
	domain.TicketStatusInProgress: {domain.TicketStatusEscalated, domain.TicketStatusResolved, domain.TicketStatusOpen},
	domain.TicketStatusEscalated:  {domain.TicketStatusResolved, domain.TicketStatusOpen},
	domain.TicketStatusResolved:   {domain.TicketStatusOpen},
}

// CanTransition reports whether current may move to next.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// LifecycleTracker applies status transitions and appends their audit entries.
type LifecycleTracker struct {
	clock clock.Clock
}

// NewLifecycleTracker constructs the tracker.
func NewLifecycleTracker(clk clock.Clock) *LifecycleTracker {
	return &LifecycleTracker{clock: clk}
}

// SetStatus moves t to next and appends "Status → next".
func (l *LifecycleTracker) SetStatus(t *domain.Ticket, next domain.TicketStatus) error {
	return l.transition(t, next, domain.StatusNote(next))
}

// EscalateToPartner moves t to Escalated with the partner note in place of
// the generic status note.
func (l *LifecycleTracker) EscalateToPartner(t *domain.Ticket) error {
	return l.transition(t, domain.TicketStatusEscalated, domain.NoteEscalatedToPartner)
}

// Reopen moves t back to Open.
func (l *LifecycleTracker) Reopen(t *domain.Ticket) error {
	return l.SetStatus(t, domain.TicketStatusOpen)
}

func (l *LifecycleTracker) transition(t *domain.Ticket, next domain.TicketStatus, note string) error {
	if !CanTransition(t.Status, next) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	t.Timeline = append(t.Timeline, domain.TimelineEntry{At: l.clock.Now(), Note: note})
	return nil
}
