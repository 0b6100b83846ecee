package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/banza/complaint-desk/internal/domain"
)

var (
	// ErrNotFound is returned when no ticket matches a lookup.
	ErrNotFound = errors.New("ticket not found")
	// ErrDuplicateTicketID is returned when a ticket code is already stored.
	ErrDuplicateTicketID = errors.New("ticket id already exists")
)

// TicketFilter captures support-view search parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Categories  []domain.TicketCategory
	SearchTerm  *string
	NeedsReview *bool
	Limit       int
	Offset      int
}

// Transaction stages inserts that become visible together on commit.
type Transaction interface {
	// ExistsTicketID checks committed and staged tickets.
	ExistsTicketID(code string) bool
	// Add stages t. Staged tickets keep their Add order.
	Add(t *domain.Ticket) error
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Seed(ctx context.Context, tickets []*domain.Ticket) error
	Create(ctx context.Context, ticket *domain.Ticket) error
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error
	Update(ctx context.Context, id string, fn func(*domain.Ticket) error) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByTicketID(ctx context.Context, code string) (*domain.Ticket, error)
	FindByTicketIDAndEmail(ctx context.Context, code, email string) (*domain.Ticket, error)
	ExistsTicketID(ctx context.Context, code string) bool
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	All(ctx context.Context) ([]domain.Ticket, error)
}

// ticketStore keeps tickets newest first for the life of the process.
type ticketStore struct {
	mu      sync.RWMutex
	tickets []*domain.Ticket
	byID    map[string]*domain.Ticket
	byCode  map[string]*domain.Ticket
}

// NewTicketRepository instantiates an empty in-memory store.
func NewTicketRepository() TicketRepository {
	return &ticketStore{
		byID:   make(map[string]*domain.Ticket),
		byCode: make(map[string]*domain.Ticket),
	}
}

// Seed appends tickets after any already stored, keeping their order.
func (s *ticketStore) Seed(ctx context.Context, tickets []*domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(tickets))
	for _, t := range tickets {
		if err := s.checkInsertLocked(t); err != nil {
			return err
		}
		if _, dup := seen[t.TicketID]; dup {
			return ErrDuplicateTicketID
		}
		seen[t.TicketID] = struct{}{}
	}
	for _, t := range tickets {
		cp := t.Clone()
		s.tickets = append(s.tickets, cp)
		s.indexLocked(cp)
	}
	return nil
}

// Create prepends ticket so the most recent activity is listed first.
func (s *ticketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInsertLocked(ticket); err != nil {
		return err
	}
	cp := ticket.Clone()
	s.tickets = append([]*domain.Ticket{cp}, s.tickets...)
	s.indexLocked(cp)
	return nil
}

// RunInTransaction runs fn with exclusive access to the store. When fn
// returns nil every staged ticket is prepended as one block in staging order;
// otherwise nothing is stored.
func (s *ticketStore) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &stagingTx{store: s, codes: make(map[string]struct{})}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(tx.staged) == 0 {
		return nil
	}

	merged := make([]*domain.Ticket, 0, len(tx.staged)+len(s.tickets))
	merged = append(merged, tx.staged...)
	merged = append(merged, s.tickets...)
	s.tickets = merged
	for _, t := range tx.staged {
		s.indexLocked(t)
	}
	return nil
}

// Update applies fn to a copy of the ticket and stores the copy only if fn
// succeeds.
func (s *ticketStore) Update(ctx context.Context, id string, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	// Identity is immutable.
	next.ID, next.TicketID = current.ID, current.TicketID

	for i, t := range s.tickets {
		if t == current {
			s.tickets[i] = next
			break
		}
	}
	s.indexLocked(next)
	return next.Clone(), nil
}

func (s *ticketStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (s *ticketStore) GetByTicketID(ctx context.Context, code string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

// FindByTicketIDAndEmail matches code exactly and, when email is non-empty,
// the stored email exactly as well.
func (s *ticketStore) FindByTicketIDAndEmail(ctx context.Context, code, email string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	if email != "" && t.Email != email {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (s *ticketStore) ExistsTicketID(ctx context.Context, code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok
}

// ListWithFilter returns matching tickets in store order. A non-positive
// Limit returns every match after Offset.
func (s *ticketStore) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var search string
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	result := []domain.Ticket{}
	skipped := 0
	for _, t := range s.tickets {
		if !matchesFilter(t, filter, search) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, *t.Clone())
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *ticketStore) All(ctx context.Context) ([]domain.Ticket, error) {
	return s.ListWithFilter(ctx, TicketFilter{})
}

func (s *ticketStore) checkInsertLocked(t *domain.Ticket) error {
	if t == nil || t.ID == "" || t.TicketID == "" {
		return errors.New("ticket needs id and ticket id")
	}
	if len(t.Timeline) == 0 {
		return errors.New("ticket needs a creation timeline entry")
	}
	if _, ok := s.byCode[t.TicketID]; ok {
		return ErrDuplicateTicketID
	}
	if _, ok := s.byID[t.ID]; ok {
		return errors.New("ticket id collision")
	}
	return nil
}

func (s *ticketStore) indexLocked(t *domain.Ticket) {
	s.byID[t.ID] = t
	s.byCode[t.TicketID] = t
}

func matchesFilter(t *domain.Ticket, filter TicketFilter, search string) bool {
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !containsCategory(filter.Categories, t.Category) {
		return false
	}
	if filter.NeedsReview != nil && t.Review.NeedsReview() != *filter.NeedsReview {
		return false
	}
	if search != "" {
		haystack := strings.ToLower(strings.Join([]string{
			t.TicketID, t.ConsumerName, t.Product, t.LotCode, t.Location, t.Email, t.Complaint,
		}, "\x00"))
		if !strings.Contains(haystack, search) {
			return false
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsCategory(list []domain.TicketCategory, c domain.TicketCategory) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

type stagingTx struct {
	store  *ticketStore
	staged []*domain.Ticket
	codes  map[string]struct{}
}

func (tx *stagingTx) ExistsTicketID(code string) bool {
	if _, ok := tx.store.byCode[code]; ok {
		return true
	}
	_, ok := tx.codes[code]
	return ok
}

func (tx *stagingTx) Add(t *domain.Ticket) error {
	if err := tx.store.checkInsertLocked(t); err != nil {
		return err
	}
	if _, ok := tx.codes[t.TicketID]; ok {
		return ErrDuplicateTicketID
	}
	cp := t.Clone()
	tx.staged = append(tx.staged, cp)
	tx.codes[t.TicketID] = struct{}{}
	return nil
}
