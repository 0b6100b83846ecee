package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/banza/complaint-desk/internal/clock"
	"github.com/banza/complaint-desk/internal/domain"
	"github.com/banza/complaint-desk/internal/identity"
	"github.com/banza/complaint-desk/internal/ingest"
	"github.com/banza/complaint-desk/internal/normalize"
)

var (
	// ErrDuplicateTicketCode is returned for an imported code that is already taken.
	ErrDuplicateTicketCode = errors.New("duplicate ticket code")
	// ErrCodeSpaceExhausted is returned when regeneration keeps colliding.
	ErrCodeSpaceExhausted = errors.New("could not generate a unique ticket code")
)

const (
	codePrefix       = "BAN"
	codeProductWidth = 3
	codeSuffixLen    = 4
	maxCodeAttempts  = 16
)

// SubmissionInput is the complaint form payload.
type SubmissionInput struct {
	ConsumerName string
	Product      string
	LotCode      string
	Expiration   string
	Location     string
	Email        string
	Complaint    string
	Severity     string
}

// TicketFactory builds canonical tickets from form submissions and import drafts.
type TicketFactory struct {
	clock clock.Clock
	ids   identity.Provider
	rules normalize.Rules
}

// NewTicketFactory constructs the factory.
func NewTicketFactory(clk clock.Clock, ids identity.Provider, rules normalize.Rules) *TicketFactory {
	return &TicketFactory{clock: clk, ids: ids, rules: rules}
}

// ProductCode is the 3-character code segment for product: the first word,
// letters and digits only, upper-cased and cut or padded with X. Products
// without usable characters get BAN.
func ProductCode(product string) string {
	fields := strings.Fields(product)
	if len(fields) == 0 {
		return codePrefix
	}
	var b strings.Builder
	for _, r := range fields[0] {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
		if b.Len() == codeProductWidth {
			break
		}
	}
	if b.Len() == 0 {
		return codePrefix
	}
	for b.Len() < codeProductWidth {
		b.WriteByte('X')
	}
	return b.String()
}

// TicketCode returns a BAN-<product>-<suffix> code that exists reports as free.
func (f *TicketFactory) TicketCode(product string, exists func(string) bool) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", codePrefix, ProductCode(product))
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := prefix + f.ids.Suffix(codeSuffixLen)
		if exists == nil || !exists(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: prefix %s", ErrCodeSpaceExhausted, prefix)
}

// FromSubmission builds an Open ticket with a single "Complaint submitted" entry.
func (f *TicketFactory) FromSubmission(in SubmissionInput, exists func(string) bool) (*domain.Ticket, error) {
	in = trimSubmission(in)
	code, err := f.TicketCode(in.Product, exists)
	if err != nil {
		return nil, err
	}

	now := f.clock.Now()
	category, matched := f.rules.MatchCategory(in.Complaint)
	return &domain.Ticket{
		ID:           f.ids.NewID(),
		TicketID:     code,
		ConsumerName: in.ConsumerName,
		Product:      in.Product,
		LotCode:      in.LotCode,
		Expiration:   in.Expiration,
		Location:     in.Location,
		Email:        in.Email,
		Complaint:    in.Complaint,
		Category:     category,
		Severity:     f.rules.NormalizeSeverity(in.Severity),
		Status:       domain.TicketStatusOpen,
		Source:       domain.SourceForm,
		Review:       domain.ReviewFlags{CategoryUnmapped: !matched},
		CreatedAt:    now,
		Timeline:     []domain.TimelineEntry{{At: now, Note: domain.NoteSubmitted}},
	}, nil
}

// FromDraft turns an import draft into a ticket. A code taken from the file
// that already exists rejects the row; a synthesized code is regenerated.
func (f *TicketFactory) FromDraft(d ingest.Draft, exists func(string) bool) (*domain.Ticket, error) {
	code := d.TicketID
	if exists != nil && exists(code) {
		if !d.GeneratedTicketID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTicketCode, code)
		}
		code = ""
		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			candidate := ingest.FallbackTicketID(f.ids)
			if !exists(candidate) {
				code = candidate
				break
			}
		}
		if code == "" {
			return nil, fmt.Errorf("%w: prefix %s", ErrCodeSpaceExhausted, ingest.FallbackPrefix)
		}
	}

	timeline := append([]domain.TimelineEntry(nil), d.Timeline...)
	if len(timeline) == 0 {
		timeline = []domain.TimelineEntry{{At: d.CreatedAt, Note: domain.NoteImported}}
	}
	return &domain.Ticket{
		ID:           f.ids.NewID(),
		TicketID:     code,
		ConsumerName: d.ConsumerName,
		Product:      d.Product,
		LotCode:      d.LotCode,
		Expiration:   d.Expiration,
		Location:     d.Location,
		Email:        d.Email,
		Complaint:    d.Complaint,
		Category:     d.Category,
		Severity:     d.Severity,
		Status:       d.Status,
		Source:       domain.SourceImport,
		Review:       d.Review,
		CreatedAt:    d.CreatedAt,
		Timeline:     timeline,
	}, nil
}

func trimSubmission(in SubmissionInput) SubmissionInput {
	return SubmissionInput{
		ConsumerName: strings.TrimSpace(in.ConsumerName),
		Product:      strings.TrimSpace(in.Product),
		LotCode:      strings.TrimSpace(in.LotCode),
		Expiration:   strings.TrimSpace(in.Expiration),
		Location:     strings.TrimSpace(in.Location),
		Email:        strings.TrimSpace(in.Email),
		Complaint:    strings.TrimSpace(in.Complaint),
		Severity:     strings.TrimSpace(in.Severity),
	}
}
