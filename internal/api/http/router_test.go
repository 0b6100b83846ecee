package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/banza/complaint-desk/internal/api/http/handlers"
	"github.com/banza/complaint-desk/internal/clock"
	"github.com/banza/complaint-desk/internal/identity"
	"github.com/banza/complaint-desk/internal/observability"
	"github.com/banza/complaint-desk/internal/repository"
	"github.com/banza/complaint-desk/internal/service"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(t *testing.T, mw MiddlewareConfig) *fiber.App {
	t.Helper()
	metrics := observability.NewMetrics()
	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(),
		Metrics:    metrics,
		Clock:      clock.Fake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		IDs:        identity.NewFake(),
	})
	app := NewApp("complaint-desk-test", 1<<20)
	RegisterMiddlewares(app, zap.NewNop(), metrics, mw)
	RegisterRoutes(app, RouteConfig{
		Health:     handlers.NewHealthHandler("complaint-desk", "test", nil),
		Complaints: handlers.NewComplaintsHandler(svc),
		Support:    handlers.NewSupportTicketsHandler(svc),
		Metrics:    metrics,
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, contentType string, body io.Reader) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp.StatusCode, env
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return do(t, app, method, path, fiber.MIMEApplicationJSON, r)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return v
}

func TestSubmitAndTrack(t *testing.T) {
	app := newTestApp(t, MiddlewareConfig{})

	status, env := doJSON(t, app, fiber.MethodPost, "/complaints", `{"product":"Penne","complaint":"found mold","email":"a@example.com","severity":"high"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("submit status = %d, error = %+v", status, env.Error)
	}
	created := decode[struct {
		TicketID string `json:"ticket_id"`
		Status   string `json:"status"`
		Category string `json:"category"`
	}](t, env)
	if !strings.HasPrefix(created.TicketID, "BAN-PEN-") || created.Status != "Open" || created.Category != "Quality" {
		t.Errorf("created = %+v", created)
	}

	status, env = doJSON(t, app, fiber.MethodGet, "/complaints/track?ticket_id="+created.TicketID+"&email=a@example.com", "")
	if status != fiber.StatusOK {
		t.Fatalf("track status = %d", status)
	}
	tracked := decode[struct {
		TicketID string `json:"ticket_id"`
		Timeline []struct {
			Note string `json:"note"`
		} `json:"timeline"`
	}](t, env)
	if tracked.TicketID != created.TicketID || len(tracked.Timeline) != 1 || tracked.Timeline[0].Note != "Complaint submitted" {
		t.Errorf("tracked = %+v", tracked)
	}

	status, env = doJSON(t, app, fiber.MethodGet, "/complaints/track?ticket_id="+created.TicketID+"&email=b@example.com", "")
	if status != fiber.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("track with wrong email = %d %+v", status, env.Error)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	app := newTestApp(t, MiddlewareConfig{})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"product":`},
		{name: "missing complaint", body: `{"product":"Penne"}`},
		{name: "bad email", body: `{"complaint":"late","email":"not-an-address"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := doJSON(t, app, fiber.MethodPost, "/complaints", tt.body)
			if status != fiber.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_FAILED" {
				t.Errorf("status = %d, error = %+v", status, env.Error)
			}
		})
	}
}

func TestImportListAndLifecycle(t *testing.T) {
	app := newTestApp(t, MiddlewareConfig{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "export.csv")
	_, _ = part.Write([]byte("Case ID,Product,Contact Date,Case Description,Case Status\n" +
		"A101,Pizza Crust,2024-01-02,torn seal on box,Open\n" +
		"C202,Penne,2024-01-03,mold found,Closed\n" +
		"A101,Pizza Crust,2024-01-04,duplicate row,Open\n"))
	_ = mw.Close()

	status, env := do(t, app, fiber.MethodPost, "/support/tickets/import", mw.FormDataContentType(), &body)
	if status != fiber.StatusOK {
		t.Fatalf("import status = %d, error = %+v", status, env.Error)
	}
	imported := decode[struct {
		Imported  int      `json:"imported"`
		Rejected  int      `json:"rejected"`
		Warning   string   `json:"warning"`
		TicketIDs []string `json:"ticket_ids"`
	}](t, env)
	if imported.Imported != 2 || imported.Rejected != 1 || imported.Warning == "" {
		t.Errorf("import = %+v", imported)
	}

	status, env = doJSON(t, app, fiber.MethodGet, "/support/tickets?status=Resolved", "")
	if status != fiber.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	resolved := decode[[]struct {
		TicketID string `json:"ticket_id"`
	}](t, env)
	if len(resolved) != 1 || resolved[0].TicketID != "C202" {
		t.Errorf("resolved = %+v", resolved)
	}

	status, env = doJSON(t, app, fiber.MethodGet, "/support/tickets?status=Closed", "")
	if status != fiber.StatusBadRequest {
		t.Errorf("unknown status filter = %d", status)
	}

	status, env = doJSON(t, app, fiber.MethodPost, "/support/tickets/A101/escalate", "")
	if status != fiber.StatusOK {
		t.Fatalf("escalate status = %d, error = %+v", status, env.Error)
	}
	status, env = doJSON(t, app, fiber.MethodPost, "/support/tickets/A101/escalate", "")
	if status != fiber.StatusConflict || env.Error.Code != "INVALID_TRANSITION" {
		t.Errorf("second escalate = %d %+v", status, env.Error)
	}

	status, env = doJSON(t, app, fiber.MethodPatch, "/support/tickets/A101/status", `{"status":"Resolved"}`)
	if status != fiber.StatusOK {
		t.Fatalf("set status = %d, error = %+v", status, env.Error)
	}
	detail := decode[struct {
		Status   string `json:"status"`
		Timeline []struct {
			Note string `json:"note"`
		} `json:"timeline"`
	}](t, env)
	if detail.Status != "Resolved" || len(detail.Timeline) != 3 || detail.Timeline[2].Note != "Status → Resolved" {
		t.Errorf("detail = %+v", detail)
	}

	status, _ = doJSON(t, app, fiber.MethodPatch, "/support/tickets/A101/status", `{"status":"Done"}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("unknown status = %d", status)
	}

	status, env = doJSON(t, app, fiber.MethodPost, "/support/tickets/A101/reopen", "")
	if status != fiber.StatusOK {
		t.Errorf("reopen = %d %+v", status, env.Error)
	}

	status, env = doJSON(t, app, fiber.MethodGet, "/support/tickets/missing", "")
	if status != fiber.StatusNotFound {
		t.Errorf("missing ticket = %d", status)
	}

	status, env = doJSON(t, app, fiber.MethodGet, "/support/reports/summary", "")
	if status != fiber.StatusOK {
		t.Fatalf("summary = %d", status)
	}
	sum := decode[struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	}](t, env)
	if sum.Total != 2 || sum.Active != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestImportRequiresFile(t *testing.T) {
	app := newTestApp(t, MiddlewareConfig{})
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("note", "no file here")
	_ = mw.Close()

	status, env := do(t, app, fiber.MethodPost, "/support/tickets/import", mw.FormDataContentType(), &body)
	if status != fiber.StatusBadRequest || env.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("status = %d, error = %+v", status, env.Error)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	app := newTestApp(t, MiddlewareConfig{})
	status, env := doJSON(t, app, fiber.MethodGet, "/nope", "")
	if status != fiber.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("status = %d, error = %+v", status, env.Error)
	}
}

func TestRateLimitSkipsProbes(t *testing.T) {
	app := newTestApp(t, MiddlewareConfig{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if status, _ := doJSON(t, app, fiber.MethodGet, "/support/tickets", ""); status != fiber.StatusOK {
			t.Fatalf("request %d status = %d", i, status)
		}
	}
	status, env := doJSON(t, app, fiber.MethodGet, "/support/tickets", "")
	if status != fiber.StatusTooManyRequests || env.Error == nil || env.Error.Code != "RATE_LIMITED" {
		t.Errorf("status = %d, error = %+v", status, env.Error)
	}
	if status, _ := doJSON(t, app, fiber.MethodGet, "/health/live", ""); status != fiber.StatusOK {
		t.Errorf("live probe throttled: %d", status)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, MiddlewareConfig{})

	status, _ := doJSON(t, app, fiber.MethodGet, "/health/ready", "")
	if status != fiber.StatusOK {
		t.Errorf("ready = %d", status)
	}
	_, _ = doJSON(t, app, fiber.MethodPost, "/complaints", `{"complaint":"late"}`)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(raw), "tickets_created_total") {
		t.Errorf("metrics status = %d body = %.200s", resp.StatusCode, raw)
	}
}
