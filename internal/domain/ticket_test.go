package domain

import (
	"testing"
	"time"
)

func TestCloneIsolatesTimeline(t *testing.T) {
	at := time.Date(2024, 1, 2, 13, 5, 0, 0, time.UTC)
	orig := &Ticket{ID: "1", Status: TicketStatusOpen, Timeline: []TimelineEntry{{At: at, Note: NoteSubmitted}}}

	cp := orig.Clone()
	cp.Timeline = append(cp.Timeline, TimelineEntry{At: at, Note: StatusNote(TicketStatusResolved)})
	cp.Timeline[0].Note = "changed"

	if len(orig.Timeline) != 1 || orig.Timeline[0].Note != NoteSubmitted {
		t.Fatalf("original timeline mutated: %+v", orig.Timeline)
	}
}

func TestStatusNote(t *testing.T) {
	if got, want := StatusNote(TicketStatusInProgress), "Status → In Progress"; got != want {
		t.Errorf("StatusNote() = %q, want %q", got, want)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want TicketStatus
		ok   bool
	}{
		{"open", TicketStatusOpen, true},
		{" In Progress ", TicketStatusInProgress, true},
		{"ESCALATED", TicketStatusEscalated, true},
		{"resolved", TicketStatusResolved, true},
		{"closed", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReviewFlags(t *testing.T) {
	if (ReviewFlags{}).NeedsReview() {
		t.Error("zero flags should not need review")
	}
	if !(ReviewFlags{CategoryUnmapped: true}).NeedsReview() {
		t.Error("unmapped category should need review")
	}
}
