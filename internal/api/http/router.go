package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/banza/complaint-desk/internal/api/http/handlers"
	"github.com/banza/complaint-desk/internal/observability"
)

// multipart envelope headroom on top of the file limit
const bodyOverhead = 1 << 20

// NewApp builds the fiber app with a body limit large enough for imports.
func NewApp(name string, maxUploadBytes int64) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		BodyLimit:             int(maxUploadBytes) + bodyOverhead,
		DisableStartupMessage: true,
	})
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Complaints *handlers.ComplaintsHandler
	Support    *handlers.SupportTicketsHandler
	Metrics    *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	complaints := app.Group("/complaints")
	complaints.Post("/", cfg.Complaints.Submit)
	complaints.Get("/track", cfg.Complaints.Track)

	support := app.Group("/support")
	support.Get("/tickets", cfg.Support.ListTickets)
	support.Post("/tickets/import", cfg.Support.ImportTickets)
	support.Get("/tickets/:id", cfg.Support.GetTicket)
	support.Patch("/tickets/:id/status", cfg.Support.UpdateStatus)
	support.Post("/tickets/:id/escalate", cfg.Support.Escalate)
	support.Post("/tickets/:id/reopen", cfg.Support.Reopen)
	support.Get("/reports/summary", cfg.Support.Summary)
}
