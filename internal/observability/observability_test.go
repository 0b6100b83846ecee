package observability

import (
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/banza/complaint-desk/internal/config"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.RecordTicketCreated("form")
	m.RecordTicketCreated("form")
	m.RecordImportRows(3, 1, 2)
	m.RecordTransition("Resolved")
	m.RecordRequest("/complaints", "POST", 201, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.ticketsCreated.WithLabelValues("form")); got != 2 {
		t.Errorf("tickets created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.importRows.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected rows = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "complaint_desk_status_transitions_total") {
		t.Error("exposition is missing the transitions counter")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordTicketCreated("import")
	m.RecordImportRows(1, 0, 0)
	m.RecordTransition("Open")
	m.RecordError("/x", "GET", "NOT_FOUND")
	m.RecordRequest("/x", "GET", 404, time.Millisecond)
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desk.log")
	logger, err := NewLogger(config.LoggerConfig{Level: "debug", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()
	if !logger.Core().Enabled(-1) {
		t.Error("debug level should be enabled")
	}
}
