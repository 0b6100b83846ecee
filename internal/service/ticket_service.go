package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banza/complaint-desk/internal/clock"
	"github.com/banza/complaint-desk/internal/domain"
	"github.com/banza/complaint-desk/internal/events"
	"github.com/banza/complaint-desk/internal/identity"
	"github.com/banza/complaint-desk/internal/ingest"
	"github.com/banza/complaint-desk/internal/normalize"
	"github.com/banza/complaint-desk/internal/observability"
	"github.com/banza/complaint-desk/internal/repository"
	"github.com/banza/complaint-desk/internal/rules"
	apperrors "github.com/banza/complaint-desk/pkg/util"
)

// ErrUploadTooLarge is wrapped into the import error for oversized files.
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

const defaultMaxUploadBytes = 10 << 20

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	codes      repository.CodeRegistry
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      clock.Clock
	ids        identity.Provider
	rules      rules.Set
	location   *time.Location
	maxUpload  int64

	factory *TicketFactory
	tracker *LifecycleTracker
}

// TicketDependencies bundles collaborators for the ticket service. Only
// TicketRepo is required.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CodeRegistry   repository.CodeRegistry
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Clock          clock.Clock
	IDs            identity.Provider
	Rules          *rules.Set
	Location       *time.Location
	MaxUploadBytes int64
}

// TicketListFilter describes support listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Categories  []domain.TicketCategory
	SearchTerm  *string
	NeedsReview *bool
	Limit       int
	Offset      int
}

// RowRejection explains why one import row produced no ticket.
type RowRejection struct {
	Row      int    `json:"row"`
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason"`
}

// ImportResult summarizes one bulk import.
type ImportResult struct {
	FileName        string
	Sheet           string
	Imported        int
	Rejected        int
	Blank           int
	NeedsReview     int
	HeaderRow       int
	HeaderRecovered bool
	MissingFields   []string
	Rejections      []RowRejection
	Warning         string
	Tickets         []domain.Ticket
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		codes:      deps.CodeRegistry,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		clock:      deps.Clock,
		ids:        deps.IDs,
		location:   deps.Location,
		maxUpload:  deps.MaxUploadBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.ids == nil {
		gen, err := identity.NewGenerator(1)
		if err != nil {
			panic(err)
		}
		s.ids = gen
	}
	if deps.Rules != nil {
		s.rules = *deps.Rules
	} else {
		s.rules = rules.Default()
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUploadBytes
	}
	s.factory = NewTicketFactory(s.clock, s.ids, s.rules.Rules)
	s.tracker = NewLifecycleTracker(s.clock)
	return s
}

// Submit creates a ticket from the complaint form.
func (s *TicketService) Submit(ctx context.Context, input SubmissionInput) (*domain.Ticket, error) {
	if err := validateSubmission(input); err != nil {
		return nil, err
	}

	var reserved []string
	exists := func(code string) bool {
		if s.tickets.ExistsTicketID(ctx, code) {
			return true
		}
		if !s.reserveCode(ctx, code) {
			return true
		}
		reserved = append(reserved, code)
		return false
	}

	ticket, err := s.factory.FromSubmission(input, exists)
	if err != nil {
		s.releaseCodes(ctx, reserved)
		if errors.Is(err, ErrCodeSpaceExhausted) {
			return nil, apperrors.NewConflict("could not allocate a ticket code", map[string]any{"product": input.Product})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.releaseCodes(ctx, reserved)
		if errors.Is(err, repository.ErrDuplicateTicketID) {
			return nil, apperrors.NewConflict("ticket code already exists", map[string]any{"ticket_id": ticket.TicketID})
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordTicketCreated(string(ticket.Source))
	s.logger.Info("complaint submitted",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("category", string(ticket.Category)),
		zap.String("severity", string(ticket.Severity)))
	s.publishCreated(ctx, ticket)
	return ticket, nil
}

// Import reads a CSV or spreadsheet export and stores every usable row as
// one batch. Only an unreadable file returns an error; row problems are
// reported in the result.
func (s *TicketService) Import(ctx context.Context, fileName string, r io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return nil, apperrors.NewImportError(fileName, err)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, apperrors.NewImportError(fileName, fmt.Errorf("%w: %d bytes", ErrUploadTooLarge, s.maxUpload))
	}

	table, err := ingest.ReadTable(fileName, bytes.NewReader(data), s.rules.Aliases)
	if err != nil {
		s.logger.Warn("import unreadable", zap.String("file", fileName), zap.Error(err))
		return nil, apperrors.NewImportError(fileName, err)
	}

	dates := normalize.NewDateTimeParser(s.clock, s.location)
	transformer := ingest.NewTransformer(table.Headers, s.rules.Aliases, s.rules.Rules, dates, s.ids)
	drafts, blank := transformer.TransformTable(table)

	result := &ImportResult{
		FileName:        fileName,
		Sheet:           table.Sheet,
		Blank:           blank,
		HeaderRow:       table.HeaderRow + 1,
		HeaderRecovered: table.HeaderRecovered,
	}
	for _, f := range transformer.Columns().Missing() {
		result.MissingFields = append(result.MissingFields, string(f))
	}

	var reserved []string
	err = s.tickets.RunInTransaction(ctx, func(tx repository.Transaction) error {
		exists := func(code string) bool {
			if tx.ExistsTicketID(code) {
				return true
			}
			if !s.reserveCode(ctx, code) {
				return true
			}
			reserved = append(reserved, code)
			return false
		}

		for _, d := range drafts {
			s.logDraft(fileName, d)
			ticket, err := s.factory.FromDraft(d, exists)
			if err != nil {
				if errors.Is(err, ErrDuplicateTicketCode) || errors.Is(err, ErrCodeSpaceExhausted) {
					result.Rejections = append(result.Rejections, RowRejection{Row: d.Row, TicketID: d.TicketID, Reason: err.Error()})
					continue
				}
				return err
			}
			if err := tx.Add(ticket); err != nil {
				if errors.Is(err, repository.ErrDuplicateTicketID) {
					result.Rejections = append(result.Rejections, RowRejection{Row: d.Row, TicketID: ticket.TicketID, Reason: err.Error()})
					continue
				}
				return err
			}
			result.Tickets = append(result.Tickets, *ticket)
		}
		return nil
	})
	if err != nil {
		s.releaseCodes(ctx, reserved)
		return nil, apperrors.NewInternalError(err)
	}

	result.Imported = len(result.Tickets)
	result.Rejected = len(result.Rejections)
	for i := range result.Tickets {
		if result.Tickets[i].Review.NeedsReview() {
			result.NeedsReview++
		}
	}
	result.Warning = importWarning(result)

	s.metrics.RecordImportRows(result.Imported, result.Rejected, result.Blank)
	for i := 0; i < result.Imported; i++ {
		s.metrics.RecordTicketCreated(string(domain.SourceImport))
	}
	s.logger.Info("import finished",
		zap.String("file", fileName),
		zap.String("sheet", table.Sheet),
		zap.Int("imported", result.Imported),
		zap.Int("rejected", result.Rejected),
		zap.Int("blank", result.Blank),
		zap.Int("needs_review", result.NeedsReview),
		zap.Int("header_row", result.HeaderRow),
		zap.Bool("header_recovered", result.HeaderRecovered))

	s.publishEvent(ctx, events.Event{
		Type: events.EventTicketsImported,
		Payload: events.TicketsImportedPayload{
			FileName:        fileName,
			Imported:        result.Imported,
			Rejected:        result.Rejected,
			NeedsReview:     result.NeedsReview,
			HeaderRecovered: result.HeaderRecovered,
		},
	})
	return result, nil
}

// Track finds a ticket for the customer tracking view.
func (s *TicketService) Track(ctx context.Context, ticketCode, email string) (*domain.Ticket, error) {
	ticketCode = strings.TrimSpace(ticketCode)
	if ticketCode == "" {
		return nil, apperrors.NewValidationError("ticket_id is required", nil)
	}
	ticket, err := s.tickets.FindByTicketIDAndEmail(ctx, ticketCode, strings.TrimSpace(email))
	if err != nil {
		return nil, mapRepoError(err, ticketCode)
	}
	return ticket, nil
}

// Get fetches a ticket by internal id or ticket code.
func (s *TicketService) Get(ctx context.Context, ref string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		ticket, err = s.tickets.GetByTicketID(ctx, ref)
	}
	if err != nil {
		return nil, mapRepoError(err, ref)
	}
	return ticket, nil
}

// List returns tickets for the support view, newest activity first.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:    filter.Statuses,
		Categories:  filter.Categories,
		SearchTerm:  filter.SearchTerm,
		NeedsReview: filter.NeedsReview,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// SetStatus applies a generic lifecycle transition.
func (s *TicketService) SetStatus(ctx context.Context, ref string, next domain.TicketStatus) (*domain.Ticket, error) {
	return s.transition(ctx, ref, next, func(t *domain.Ticket) error {
		return s.tracker.SetStatus(t, next)
	})
}

// Escalate hands a ticket to the manufacturing partner.
func (s *TicketService) Escalate(ctx context.Context, ref string) (*domain.Ticket, error) {
	return s.transition(ctx, ref, domain.TicketStatusEscalated, s.tracker.EscalateToPartner)
}

// Reopen moves a ticket back to Open.
func (s *TicketService) Reopen(ctx context.Context, ref string) (*domain.Ticket, error) {
	return s.transition(ctx, ref, domain.TicketStatusOpen, s.tracker.Reopen)
}

func (s *TicketService) transition(ctx context.Context, ref string, next domain.TicketStatus, apply func(*domain.Ticket) error) (*domain.Ticket, error) {
	current, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	var oldStatus domain.TicketStatus
	updated, err := s.tickets.Update(ctx, current.ID, func(t *domain.Ticket) error {
		oldStatus = t.Status
		return apply(t)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, apperrors.NewInvalidTransition(string(oldStatus), string(next), err)
		}
		return nil, mapRepoError(err, ref)
	}

	entry, _ := updated.LastEntry()
	s.metrics.RecordTransition(string(updated.Status))
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", updated.TicketID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(updated.Status)),
		zap.String("note", entry.Note))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Payload: events.TicketStatusChangedPayload{
			TicketCode: updated.TicketID,
			OldStatus:  oldStatus,
			NewStatus:  updated.Status,
			Note:       entry.Note,
		},
	})
	if entry.Note == domain.NoteEscalatedToPartner {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketEscalated,
			TicketID: updated.ID,
			Payload: events.TicketEscalatedPayload{
				TicketCode: updated.TicketID,
				OldStatus:  oldStatus,
				Product:    updated.Product,
				LotCode:    updated.LotCode,
			},
		})
	}
	return updated, nil
}

func (s *TicketService) reserveCode(ctx context.Context, code string) bool {
	if s.codes == nil {
		return true
	}
	ok, err := s.codes.Reserve(ctx, code)
	if err != nil {
		s.logger.Warn("ticket code registry unavailable, using local check only", zap.String("ticket_id", code), zap.Error(err))
		return true
	}
	return ok
}

func (s *TicketService) releaseCodes(ctx context.Context, codes []string) {
	if s.codes == nil {
		return
	}
	for _, code := range codes {
		if err := s.codes.Release(ctx, code); err != nil {
			s.logger.Warn("release ticket code", zap.String("ticket_id", code), zap.Error(err))
		}
	}
}

func (s *TicketService) logDraft(fileName string, d ingest.Draft) {
	if !d.DateParsed {
		s.logger.Debug("import row date unparsable, using current time", zap.String("file", fileName), zap.Int("row", d.Row))
	}
	if d.Review.StatusUnmapped {
		s.logger.Debug("import row status defaulted to Open", zap.String("file", fileName), zap.Int("row", d.Row))
	}
	if d.GeneratedTicketID {
		s.logger.Debug("import row has no ticket id", zap.String("file", fileName), zap.Int("row", d.Row), zap.String("ticket_id", d.TicketID))
	}
}

func (s *TicketService) publishCreated(ctx context.Context, t *domain.Ticket) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: t.ID,
		Payload: events.TicketCreatedPayload{
			TicketCode: t.TicketID,
			Source:     t.Source,
			Product:    t.Product,
			Category:   t.Category,
			Severity:   t.Severity,
			Email:      t.Email,
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func validateSubmission(in SubmissionInput) error {
	details := map[string]any{}
	if strings.TrimSpace(in.Complaint) == "" {
		details["complaint"] = "is required"
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			details["email"] = "is not a valid address"
		}
	}
	if sev := strings.TrimSpace(in.Severity); len(sev) > 64 {
		details["severity"] = "is too long"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid complaint", details)
	}
	return nil
}

func mapRepoError(err error, ref string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ref})
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de
	}
	return apperrors.NewInternalError(err)
}

func importWarning(r *ImportResult) string {
	var parts []string
	if r.Imported == 0 && r.Rejected == 0 {
		parts = append(parts, "no data rows found")
	}
	if r.Rejected > 0 {
		parts = append(parts, fmt.Sprintf("%d row(s) rejected as duplicate ticket ids", r.Rejected))
	}
	for _, f := range r.MissingFields {
		if f == string(ingest.FieldTicketID) && r.Imported > 0 {
			parts = append(parts, "no ticket id column, codes were generated")
		}
	}
	if r.NeedsReview > 0 {
		parts = append(parts, fmt.Sprintf("%d ticket(s) need review", r.NeedsReview))
	}
	return strings.Join(parts, "; ")
}
