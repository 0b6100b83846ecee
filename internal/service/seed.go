package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/banza/complaint-desk/internal/domain"
	apperrors "github.com/banza/complaint-desk/pkg/util"
)

type seedComplaint struct {
	input SubmissionInput
	steps []domain.TicketStatus
	// escalate replaces the Escalated step with the partner hand-off.
	escalate bool
}

var seedComplaints = []seedComplaint{
	{
		input: SubmissionInput{ConsumerName: "John Doe", Email: "john.doe@example.com", Product: "Pizza Crust", LotCode: "B123", Location: "Whole Foods, Denver", Complaint: "Crust arrived with a torn seal", Severity: "Medium"},
	},
	{
		input: SubmissionInput{ConsumerName: "Sara Lee", Email: "sara.lee@example.com", Product: "Penne", LotCode: "B321", Location: "Target, Austin", Complaint: "Found mold inside the box", Severity: "High"},
		steps: []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved},
	},
	{
		input: SubmissionInput{ConsumerName: "Priya Raman", Email: "priya@example.com", Product: "Chickpea Mac and Cheese", LotCode: "LOT1002", Expiration: "2025-11-30", Location: "Kroger, Columbus", Complaint: "Cheese sauce has a strange smell", Severity: "Medium"},
		steps: []domain.TicketStatus{domain.TicketStatusInProgress},
	},
	{
		input: SubmissionInput{ConsumerName: "Marcus Bell", Email: "mbell@example.com", Product: "Chickpea Pasta Rotini", LotCode: "LOT1003", Location: "Online order", Complaint: "Order arrived two weeks late", Severity: "Low"},
		steps: []domain.TicketStatus{domain.TicketStatusResolved},
	},
	{
		input: SubmissionInput{ConsumerName: "Ana Souza", Email: "ana.souza@example.com", Product: "Penne", LotCode: "LOT1004", Expiration: "2026-01-15", Location: "Safeway, Oakland", Complaint: "Pasta falls apart, texture is off spec", Severity: "High"},
		steps: []domain.TicketStatus{domain.TicketStatusEscalated}, escalate: true,
	},
	{
		input: SubmissionInput{ConsumerName: "Tom Nguyen", Email: "tom.n@example.com", Product: "Chickpea Pasta Rotini", LotCode: "LOT1005", Location: "Costco, Seattle", Complaint: "Bag was leaking powder in the carton", Severity: "Low"},
	},
	{
		input: SubmissionInput{ConsumerName: "Lena Fischer", Email: "lena.f@example.com", Product: "Pizza Crust", LotCode: "LOT1006", Location: "Sprouts, Phoenix", Complaint: "Bitter flavor after baking", Severity: "Medium"},
		steps: []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusEscalated, domain.TicketStatusResolved},
	},
	{
		input: SubmissionInput{ConsumerName: "Omar Haddad", Email: "omar@example.com", Product: "Chickpea Mac and Cheese", LotCode: "LOT1007", Location: "Target, Chicago", Complaint: "Box was missing the sauce packet", Severity: "Low"},
	},
}

// Seed loads the demo complaints through the factory and lifecycle tracker so
// they satisfy the same invariants as real tickets.
func (s *TicketService) Seed(ctx context.Context) error {
	taken := map[string]struct{}{}
	exists := func(code string) bool {
		if _, ok := taken[code]; ok {
			return true
		}
		return s.tickets.ExistsTicketID(ctx, code)
	}

	tickets := make([]*domain.Ticket, 0, len(seedComplaints))
	for i, sc := range seedComplaints {
		t, err := s.factory.FromSubmission(sc.input, exists)
		if err != nil {
			return apperrors.NewInternalError(fmt.Errorf("seed %d: %w", i, err))
		}
		t.Source = domain.SourceSeed
		for _, step := range sc.steps {
			if step == domain.TicketStatusEscalated && sc.escalate {
				err = s.tracker.EscalateToPartner(t)
			} else {
				err = s.tracker.SetStatus(t, step)
			}
			if err != nil {
				return apperrors.NewInternalError(fmt.Errorf("seed %d: %w", i, err))
			}
		}
		taken[t.TicketID] = struct{}{}
		tickets = append(tickets, t)
	}

	if err := s.tickets.Seed(ctx, tickets); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("seed data loaded", zap.Int("tickets", len(tickets)))
	return nil
}
