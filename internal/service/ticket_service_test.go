package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/banza/complaint-desk/internal/clock"
	"github.com/banza/complaint-desk/internal/domain"
	"github.com/banza/complaint-desk/internal/events"
	"github.com/banza/complaint-desk/internal/identity"
	"github.com/banza/complaint-desk/internal/repository"
	apperrors "github.com/banza/complaint-desk/pkg/util"
)

type fixture struct {
	svc    *TicketService
	repo   repository.TicketRepository
	clock  *clock.FakeClock
	events []events.Event
}

func newFixture(t *testing.T, opts ...func(*TicketDependencies)) *fixture {
	t.Helper()
	f := &fixture{repo: repository.NewTicketRepository(), clock: clock.Fake(now)}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventTicketCreated, events.EventTicketStatusChanged, events.EventTicketEscalated, events.EventTicketsImported} {
		dispatcher.Subscribe(et, func(ctx context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})
	}
	deps := TicketDependencies{
		TicketRepo: f.repo,
		Dispatcher: dispatcher,
		Clock:      f.clock,
		IDs:        identity.NewFake(),
	}
	for _, o := range opts {
		o(&deps)
	}
	f.svc = NewTicketService(deps)
	return f
}

func (f *fixture) eventTypes() []events.EventType {
	out := make([]events.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func domainCode(err error) string {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func TestSubmitScenario(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.svc.Submit(context.Background(), SubmissionInput{Product: "Penne", Complaint: "mold found", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if ticket.Category != domain.CategoryQuality || ticket.Status != domain.TicketStatusOpen || len(ticket.Timeline) != 1 {
		t.Errorf("ticket = %+v", ticket)
	}
	if !strings.HasPrefix(ticket.TicketID, "BAN-PEN-") {
		t.Errorf("TicketID = %q", ticket.TicketID)
	}

	tracked, err := f.svc.Track(context.Background(), ticket.TicketID, "a@example.com")
	if err != nil || tracked.ID != ticket.ID {
		t.Errorf("Track() = %v, %v", tracked, err)
	}
	if got := f.eventTypes(); len(got) != 1 || got[0] != events.EventTicketCreated {
		t.Errorf("events = %v", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		input SubmissionInput
	}{
		{name: "blank complaint", input: SubmissionInput{Product: "Penne", Complaint: "  "}},
		{name: "bad email", input: SubmissionInput{Complaint: "torn", Email: "not-an-email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), tt.input)
			if domainCode(err) != "VALIDATION_FAILED" {
				t.Errorf("error = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestSubmitPrependsNewest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, _ := f.svc.Submit(ctx, SubmissionInput{Product: "Penne", Complaint: "torn"})
	second, _ := f.svc.Submit(ctx, SubmissionInput{Product: "Penne", Complaint: "late"})

	list, _ := f.svc.List(ctx, TicketListFilter{})
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("list order = %v", list)
	}
}

type stubRegistry struct {
	taken    map[string]bool
	released []string
	err      error
}

func (r *stubRegistry) Reserve(ctx context.Context, code string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if r.taken[code] {
		return false, nil
	}
	r.taken[code] = true
	return true, nil
}

func (r *stubRegistry) Release(ctx context.Context, code string) error {
	r.released = append(r.released, code)
	delete(r.taken, code)
	return nil
}

func TestSubmitHonoursCodeRegistry(t *testing.T) {
	reg := &stubRegistry{taken: map[string]bool{"BAN-PEN-0001": true}}
	f := newFixture(t, func(d *TicketDependencies) { d.CodeRegistry = reg })

	ticket, err := f.svc.Submit(context.Background(), SubmissionInput{Product: "Penne", Complaint: "torn"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if ticket.TicketID != "BAN-PEN-0002" {
		t.Errorf("TicketID = %q, want the code after the one reserved elsewhere", ticket.TicketID)
	}
}

func TestSubmitRegistryOutageFallsBackToLocalCheck(t *testing.T) {
	reg := &stubRegistry{taken: map[string]bool{}, err: errors.New("connection refused")}
	f := newFixture(t, func(d *TicketDependencies) { d.CodeRegistry = reg })

	if _, err := f.svc.Submit(context.Background(), SubmissionInput{Product: "Penne", Complaint: "torn"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

const importCSV = `Case ID,Product,Contact Date,Time Stamp,Case Description,Case Status,Email
A101,Pizza Crust,2024-01-02,13:05,torn seal on box,Open,john@example.com
C202,Penne,01/03/2024,9:15 AM,mold found,Closed,sara@example.com
,,,,,,
`

func TestImportScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing, _ := f.svc.Submit(ctx, SubmissionInput{Product: "Penne", Complaint: "torn"})
	f.events = nil

	res, err := f.svc.Import(ctx, "export.csv", strings.NewReader(importCSV))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Imported != 2 || res.Rejected != 0 || res.Blank != 1 {
		t.Errorf("result = %+v", res)
	}

	closed, err := f.svc.Get(ctx, "C202")
	if err != nil {
		t.Fatalf("Get(C202) error = %v", err)
	}
	if closed.Status != domain.TicketStatusResolved || len(closed.Timeline) != 2 {
		t.Fatalf("C202 = %+v", closed)
	}
	if closed.Timeline[0].Note != domain.NoteImported || closed.Timeline[1].Note != "Status → Resolved" {
		t.Errorf("timeline = %+v", closed.Timeline)
	}
	if want := time.Date(2024, 1, 3, 9, 15, 0, 0, time.UTC); !closed.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", closed.CreatedAt, want)
	}

	list, _ := f.svc.List(ctx, TicketListFilter{})
	if len(list) != 3 || list[0].TicketID != "A101" || list[1].TicketID != "C202" || list[2].ID != existing.ID {
		t.Errorf("batch should be prepended in file order, got %v", []string{list[0].TicketID, list[1].TicketID, list[2].TicketID})
	}

	if got := f.eventTypes(); len(got) != 1 || got[0] != events.EventTicketsImported {
		t.Errorf("events = %v", got)
	}
}

func TestImportRejectsDuplicateRowsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Import(ctx, "first.csv", strings.NewReader(importCSV)); err != nil {
		t.Fatalf("first import: %v", err)
	}

	data := "Case ID,Product,Case Description\nC202,Penne,again\nD303,Penne,late delivery\nD303,Penne,same code twice\n"
	res, err := f.svc.Import(ctx, "second.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Imported != 1 || res.Rejected != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Rejections[0].Row != 2 || res.Rejections[1].Row != 4 {
		t.Errorf("rejections = %+v", res.Rejections)
	}
	if !strings.Contains(res.Warning, "2 row(s) rejected") {
		t.Errorf("Warning = %q", res.Warning)
	}
}

func TestImportWithoutIdentityColumn(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Import(context.Background(), "notes.csv", strings.NewReader("Product,Notes\nPenne,tastes odd\nRotini,arrived late\n"))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Imported != 2 {
		t.Fatalf("Imported = %d", res.Imported)
	}
	for _, tk := range res.Tickets {
		if !strings.HasPrefix(tk.TicketID, "BAN-CSV-") {
			t.Errorf("TicketID = %q", tk.TicketID)
		}
	}
	if !strings.Contains(res.Warning, "no ticket id column") {
		t.Errorf("Warning = %q", res.Warning)
	}
}

func TestImportUnreadableAbortsBatch(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		max  int64
	}{
		{name: "empty file", file: "empty.csv", body: ""},
		{name: "corrupt workbook", file: "broken.xlsx", body: "not a zip"},
		{name: "too large", file: "big.csv", body: "Case ID\nA1\nA2\n", max: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(d *TicketDependencies) { d.MaxUploadBytes = tt.max })
			_, err := f.svc.Import(context.Background(), tt.file, strings.NewReader(tt.body))
			if domainCode(err) != "IMPORT_UNREADABLE" {
				t.Fatalf("error = %v, want IMPORT_UNREADABLE", err)
			}
			if all, _ := f.repo.All(context.Background()); len(all) != 0 {
				t.Errorf("store has %d tickets after failed import", len(all))
			}
		})
	}
}

func TestExpiredContextIsTimeout(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.svc.Submit(context.Background(), SubmissionInput{Product: "Penne", Complaint: "late"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	if _, err := f.svc.Import(ctx, "export.csv", strings.NewReader(importCSV)); domainCode(err) != "TIMEOUT" {
		t.Errorf("Import() error = %v, want TIMEOUT", err)
	}
	if all, _ := f.repo.All(context.Background()); len(all) != 1 {
		t.Errorf("store has %d tickets after a timed out import, want 1", len(all))
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if _, err := f.svc.SetStatus(cancelled, ticket.ID, domain.TicketStatusResolved); domainCode(err) != "TIMEOUT" {
		t.Errorf("SetStatus() error = %v, want TIMEOUT", err)
	}
}

func TestEscalateScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, _ := f.svc.Submit(ctx, SubmissionInput{Product: "Penne", Complaint: "mold"})
	f.events = nil
	f.clock.Advance(time.Hour)

	updated, err := f.svc.Escalate(ctx, ticket.TicketID)
	if err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}
	if updated.Status != domain.TicketStatusEscalated || len(updated.Timeline) != 2 {
		t.Fatalf("updated = %+v", updated)
	}
	if !strings.Contains(updated.Timeline[1].Note, "manufacturing partner") {
		t.Errorf("note = %q", updated.Timeline[1].Note)
	}
	if got := f.eventTypes(); len(got) != 2 || got[0] != events.EventTicketStatusChanged || got[1] != events.EventTicketEscalated {
		t.Errorf("events = %v", got)
	}

	_, err = f.svc.Escalate(ctx, ticket.ID)
	if domainCode(err) != "INVALID_TRANSITION" {
		t.Errorf("second Escalate() error = %v", err)
	}
}

func TestSetStatusAndReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, _ := f.svc.Submit(ctx, SubmissionInput{Product: "Penne", Complaint: "mold"})

	if _, err := f.svc.SetStatus(ctx, ticket.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, ticket.ID, domain.TicketStatusInProgress); domainCode(err) != "INVALID_TRANSITION" {
		t.Errorf("Resolved → In Progress error = %v", err)
	}
	reopened, err := f.svc.Reopen(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if reopened.Status != domain.TicketStatusOpen || len(reopened.Timeline) != 3 {
		t.Errorf("reopened = %+v", reopened)
	}
	if _, err := f.svc.Reopen(ctx, ticket.ID); domainCode(err) != "INVALID_TRANSITION" {
		t.Errorf("reopen of Open ticket error = %v", err)
	}
	if _, err := f.svc.SetStatus(ctx, "missing", domain.TicketStatusResolved); domainCode(err) != "NOT_FOUND" {
		t.Errorf("missing ticket error = %v", err)
	}
}

func TestTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, _ := f.svc.Submit(ctx, SubmissionInput{Product: "Penne", Complaint: "mold", Email: "a@example.com"})

	if _, err := f.svc.Track(ctx, ticket.TicketID, ""); err != nil {
		t.Errorf("Track without email error = %v", err)
	}
	if _, err := f.svc.Track(ctx, ticket.TicketID, "b@example.com"); domainCode(err) != "NOT_FOUND" {
		t.Errorf("Track wrong email error = %v", err)
	}
	if _, err := f.svc.Track(ctx, " ", ""); domainCode(err) != "VALIDATION_FAILED" {
		t.Errorf("Track blank error = %v", err)
	}
}

func TestSeedAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Seed(ctx); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	all, _ := f.svc.List(ctx, TicketListFilter{})
	if len(all) != len(seedComplaints) {
		t.Fatalf("seeded %d tickets, want %d", len(all), len(seedComplaints))
	}
	for _, tk := range all {
		if len(tk.Timeline) == 0 || tk.Timeline[0].Note != domain.NoteSubmitted || tk.Source != domain.SourceSeed {
			t.Errorf("seed ticket %s invalid: %+v", tk.TicketID, tk)
		}
	}

	sum, err := f.svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.Total != 8 || sum.Active+sum.Resolved != 8 {
		t.Errorf("totals = %+v", sum)
	}
	if sum.ByStatus[domain.TicketStatusResolved] != 3 || sum.ByStatus[domain.TicketStatusEscalated] != 1 {
		t.Errorf("ByStatus = %v", sum.ByStatus)
	}
	if _, ok := sum.ByCategory[domain.CategoryDelivery]; !ok || len(sum.ByCategory) != len(domain.TicketCategories) {
		t.Errorf("ByCategory = %v", sum.ByCategory)
	}
	if sum.NeedsReview != 1 {
		t.Errorf("NeedsReview = %d, want 1", sum.NeedsReview)
	}
	if len(sum.ByProduct) == 0 || sum.ByProduct[0].Count < sum.ByProduct[len(sum.ByProduct)-1].Count {
		t.Errorf("ByProduct not sorted: %v", sum.ByProduct)
	}
}
