package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/banza/complaint-desk/internal/api/dto"
	"github.com/banza/complaint-desk/internal/domain"
	"github.com/banza/complaint-desk/internal/service"
	apperrors "github.com/banza/complaint-desk/pkg/util"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// SupportTicketsHandler serves the support portal.
type SupportTicketsHandler struct {
	tickets *service.TicketService
}

// NewSupportTicketsHandler constructs handler.
func NewSupportTicketsHandler(ticketService *service.TicketService) *SupportTicketsHandler {
	return &SupportTicketsHandler{tickets: ticketService}
}

// ListTickets GET /support/tickets.
func (h *SupportTicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketListFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /support/tickets/:id.
func (h *SupportTicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ImportTickets POST /support/tickets/import (multipart field "file").
func (h *SupportTicketsHandler) ImportTickets(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field \"file\" is required", nil)
	}
	f, err := fh.Open()
	if err != nil {
		return apperrors.NewImportError(fh.Filename, err)
	}
	defer f.Close()

	res, err := h.tickets.Import(c.UserContext(), fh.Filename, f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": importResponse(res)})
}

// UpdateStatus PATCH /support/tickets/:id/status.
func (h *SupportTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status, "allowed": domain.TicketStatuses})
	}
	ticket, err := h.tickets.SetStatus(c.UserContext(), c.Params("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Escalate POST /support/tickets/:id/escalate.
func (h *SupportTicketsHandler) Escalate(c *fiber.Ctx) error {
	ticket, err := h.tickets.Escalate(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Reopen POST /support/tickets/:id/reopen.
func (h *SupportTicketsHandler) Reopen(c *fiber.Ctx) error {
	ticket, err := h.tickets.Reopen(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Summary GET /support/reports/summary.
func (h *SupportTicketsHandler) Summary(c *fiber.Ctx) error {
	sum, err := h.tickets.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(sum)})
}

func parseTicketListFilter(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitQuery(c.Query("status")) {
		status, ok := domain.ParseStatus(part)
		if !ok {
			return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": part})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, part := range splitQuery(c.Query("category")) {
		category, ok := domain.ParseCategory(part)
		if !ok {
			return filter, apperrors.NewValidationError("unknown category", map[string]any{"category": part})
		}
		filter.Categories = append(filter.Categories, category)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	if raw := c.Query("needs_review"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("needs_review must be a boolean", nil)
		}
		filter.NeedsReview = &v
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func splitQuery(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func reviewResponse(r domain.ReviewFlags) dto.ReviewResponse {
	return dto.ReviewResponse{
		NeedsReview:      r.NeedsReview(),
		StatusUnmapped:   r.StatusUnmapped,
		CategoryUnmapped: r.CategoryUnmapped,
	}
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	updated := ticket.CreatedAt
	if last, ok := ticket.LastEntry(); ok {
		updated = last.At
	}
	return dto.TicketSummary{
		ID:           ticket.ID,
		TicketID:     ticket.TicketID,
		ConsumerName: ticket.ConsumerName,
		Product:      ticket.Product,
		LotCode:      ticket.LotCode,
		Category:     ticket.Category,
		Severity:     ticket.Severity,
		Status:       ticket.Status,
		Source:       ticket.Source,
		Review:       reviewResponse(ticket.Review),
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    updated,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:           ticket.ID,
		TicketID:     ticket.TicketID,
		ConsumerName: ticket.ConsumerName,
		Product:      ticket.Product,
		LotCode:      ticket.LotCode,
		Expiration:   ticket.Expiration,
		Location:     ticket.Location,
		Email:        ticket.Email,
		Complaint:    ticket.Complaint,
		Category:     ticket.Category,
		Severity:     ticket.Severity,
		Status:       ticket.Status,
		Source:       ticket.Source,
		Review:       reviewResponse(ticket.Review),
		CreatedAt:    ticket.CreatedAt,
		Timeline:     timelineResponses(ticket.Timeline),
	}
}

func timelineResponses(entries []domain.TimelineEntry) []dto.TimelineEntryResponse {
	resp := make([]dto.TimelineEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.TimelineEntryResponse{At: e.At, Note: e.Note})
	}
	return resp
}

func importResponse(res *service.ImportResult) dto.ImportResponse {
	out := dto.ImportResponse{
		Imported:        res.Imported,
		Rejected:        res.Rejected,
		Warning:         res.Warning,
		Blank:           res.Blank,
		NeedsReview:     res.NeedsReview,
		Sheet:           res.Sheet,
		HeaderRow:       res.HeaderRow,
		HeaderRecovered: res.HeaderRecovered,
		MissingFields:   append([]string{}, res.MissingFields...),
		Rejections:      make([]dto.RowRejectionResponse, 0, len(res.Rejections)),
		TicketIDs:       make([]string, 0, len(res.Tickets)),
	}
	for _, r := range res.Rejections {
		out.Rejections = append(out.Rejections, dto.RowRejectionResponse{Row: r.Row, TicketID: r.TicketID, Reason: r.Reason})
	}
	for _, t := range res.Tickets {
		out.TicketIDs = append(out.TicketIDs, t.TicketID)
	}
	return out
}

func summaryResponse(sum *service.Summary) dto.SummaryResponse {
	out := dto.SummaryResponse{
		Total:       sum.Total,
		Active:      sum.Active,
		Resolved:    sum.Resolved,
		NeedsReview: sum.NeedsReview,
		GeneratedAt: sum.GeneratedAt,
	}
	for _, s := range domain.TicketStatuses {
		out.ByStatus = append(out.ByStatus, dto.CountResponse{Name: string(s), Count: sum.ByStatus[s]})
	}
	for _, c := range domain.TicketCategories {
		out.ByCategory = append(out.ByCategory, dto.CountResponse{Name: string(c), Count: sum.ByCategory[c]})
	}
	for _, s := range domain.TicketSeverities {
		out.BySeverity = append(out.BySeverity, dto.CountResponse{Name: string(s), Count: sum.BySeverity[s]})
	}
	products := make([]dto.CountResponse, 0, len(sum.ByProduct))
	for _, p := range sum.ByProduct {
		products = append(products, dto.CountResponse{Name: p.Product, Count: p.Count})
	}
	out.ByProduct = products
	return out
}
