package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/banza/complaint-desk/internal/api/dto"
	"github.com/banza/complaint-desk/internal/service"
	apperrors "github.com/banza/complaint-desk/pkg/util"
)

// ComplaintsHandler serves the customer portal: submit and track.
type ComplaintsHandler struct {
	service *service.TicketService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(ticketService *service.TicketService) *ComplaintsHandler {
	return &ComplaintsHandler{service: ticketService}
}

// Submit POST /complaints.
func (h *ComplaintsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Submit(c.UserContext(), service.SubmissionInput{
		ConsumerName: req.ConsumerName,
		Product:      req.Product,
		LotCode:      req.LotCode,
		Expiration:   req.Expiration,
		Location:     req.Location,
		Email:        req.Email,
		Complaint:    req.Complaint,
		Severity:     req.Severity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SubmitComplaintResponse{
		TicketID:  ticket.TicketID,
		ID:        ticket.ID,
		Status:    ticket.Status,
		Category:  ticket.Category,
		CreatedAt: ticket.CreatedAt,
	}})
}

// Track GET /complaints/track?ticket_id=&email=.
func (h *ComplaintsHandler) Track(c *fiber.Ctx) error {
	ticket, err := h.service.Track(c.UserContext(), c.Query("ticket_id"), c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TrackResponse{
		TicketID:  ticket.TicketID,
		Product:   ticket.Product,
		LotCode:   ticket.LotCode,
		Status:    ticket.Status,
		CreatedAt: ticket.CreatedAt,
		Timeline:  timelineResponses(ticket.Timeline),
	}})
}
