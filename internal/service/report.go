package service

import (
	"context"
	"sort"
	"time"

	"github.com/banza/complaint-desk/internal/domain"
	apperrors "github.com/banza/complaint-desk/pkg/util"
)

// ProductCount is one row of the per-product breakdown.
type ProductCount struct {
	Product string `json:"product"`
	Count   int    `json:"count"`
}

// Summary is the read-only aggregate behind the support dashboard charts.
type Summary struct {
	Total       int
	Active      int
	Resolved    int
	NeedsReview int
	ByStatus    map[domain.TicketStatus]int
	ByCategory  map[domain.TicketCategory]int
	BySeverity  map[domain.TicketSeverity]int
	ByProduct   []ProductCount
	GeneratedAt time.Time
}

// Summary aggregates every stored ticket. Every status, category and
// severity is present in the maps, zero or not.
func (s *TicketService) Summary(ctx context.Context) (*Summary, error) {
	tickets, err := s.tickets.All(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return Summarize(tickets, s.clock.Now()), nil
}

// Summarize builds a Summary from tickets.
func Summarize(tickets []domain.Ticket, at time.Time) *Summary {
	sum := &Summary{
		ByStatus:    make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		ByCategory:  make(map[domain.TicketCategory]int, len(domain.TicketCategories)),
		BySeverity:  make(map[domain.TicketSeverity]int, len(domain.TicketSeverities)),
		GeneratedAt: at,
	}
	for _, st := range domain.TicketStatuses {
		sum.ByStatus[st] = 0
	}
	for _, c := range domain.TicketCategories {
		sum.ByCategory[c] = 0
	}
	for _, sev := range domain.TicketSeverities {
		sum.BySeverity[sev] = 0
	}

	products := map[string]int{}
	for i := range tickets {
		t := &tickets[i]
		sum.Total++
		if t.IsActive() {
			sum.Active++
		} else {
			sum.Resolved++
		}
		if t.Review.NeedsReview() {
			sum.NeedsReview++
		}
		sum.ByStatus[t.Status]++
		sum.ByCategory[t.Category]++
		sum.BySeverity[t.Severity]++

		product := t.Product
		if product == "" {
			product = "Unknown"
		}
		products[product]++
	}

	sum.ByProduct = make([]ProductCount, 0, len(products))
	for p, n := range products {
		sum.ByProduct = append(sum.ByProduct, ProductCount{Product: p, Count: n})
	}
	sort.Slice(sum.ByProduct, func(i, j int) bool {
		if sum.ByProduct[i].Count != sum.ByProduct[j].Count {
			return sum.ByProduct[i].Count > sum.ByProduct[j].Count
		}
		return sum.ByProduct[i].Product < sum.ByProduct[j].Product
	})
	return sum
}
