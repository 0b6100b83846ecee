package ingest

import (
	"strings"
	"time"

	"github.com/banza/complaint-desk/internal/domain"
	"github.com/banza/complaint-desk/internal/identity"
	"github.com/banza/complaint-desk/internal/normalize"
)

// FallbackPrefix starts every ticket code synthesized for rows without one.
const FallbackPrefix = "BAN-CSV-"

// FallbackTicketID synthesizes a code for a row that carries none.
func FallbackTicketID(ids identity.Provider) string {
	return FallbackPrefix + ids.Sequence()
}

// Draft is one imported row normalized onto the canonical schema, ready for
// the ticket factory.
type Draft struct {
	Row               int
	TicketID          string
	GeneratedTicketID bool
	ConsumerName      string
	Product           string
	LotCode           string
	Expiration        string
	Location          string
	Email             string
	Complaint         string
	Category          domain.TicketCategory
	Severity          domain.TicketSeverity
	Status            domain.TicketStatus
	Review            domain.ReviewFlags
	CreatedAt         time.Time
	DateParsed        bool
	Timeline          []domain.TimelineEntry
}

// Transformer converts rows that share one header list into drafts.
type Transformer struct {
	columns Columns
	rules   normalize.Rules
	dates   normalize.DateTimeParser
	ids     identity.Provider
}

// NewTransformer resolves headers once so every row reuses the column map.
func NewTransformer(headers []string, aliases AliasTable, rules normalize.Rules, dates normalize.DateTimeParser, ids identity.Provider) *Transformer {
	return &Transformer{
		columns: ResolveColumns(headers, aliases),
		rules:   rules,
		dates:   dates,
		ids:     ids,
	}
}

// Columns exposes the resolved column map.
func (t *Transformer) Columns() Columns {
	return t.columns
}

// Transform normalizes one row. ok is false for rows whose cells are all
// blank; those are dropped without being reported.
func (t *Transformer) Transform(row []string) (Draft, bool) {
	if isBlankRow(row) {
		return Draft{}, false
	}

	cell := func(field FieldKey) string {
		v, _ := t.columns.Cell(row, field)
		return v
	}

	d := Draft{
		TicketID:     cell(FieldTicketID),
		ConsumerName: cell(FieldConsumerName),
		Product:      cell(FieldProduct),
		LotCode:      cell(FieldLotCode),
		Expiration:   cell(FieldExpiration),
		Location:     cell(FieldStore),
		Email:        cell(FieldEmail),
		Complaint:    cell(FieldDescription),
		Severity:     t.rules.NormalizeSeverity(cell(FieldSeverity)),
	}
	if d.TicketID == "" {
		d.TicketID = FallbackTicketID(t.ids)
		d.GeneratedTicketID = true
	}

	var statusMatched, categoryMatched bool
	d.Status, statusMatched = t.rules.MatchStatus(cell(FieldStatus))
	d.Category, categoryMatched = t.rules.MatchCategory(d.Complaint)
	d.Review = domain.ReviewFlags{StatusUnmapped: !statusMatched, CategoryUnmapped: !categoryMatched}

	d.CreatedAt, d.DateParsed = t.dates.Combine(cell(FieldCreatedDate), cell(FieldTimeStamp))

	d.Timeline = []domain.TimelineEntry{{At: d.CreatedAt, Note: domain.NoteImported}}
	if d.Status != domain.TicketStatusOpen {
		d.Timeline = append(d.Timeline, domain.TimelineEntry{At: d.CreatedAt, Note: domain.StatusNote(d.Status)})
	}
	return d, true
}

// TransformTable converts every data row of table, in file order, and
// reports how many blank rows were dropped.
func (t *Transformer) TransformTable(table *Table) (drafts []Draft, blank int) {
	drafts = make([]Draft, 0, len(table.Rows))
	for i, row := range table.Rows {
		d, ok := t.Transform(row)
		if !ok {
			blank++
			continue
		}
		d.Row = table.DataRowNumber(i)
		drafts = append(drafts, d)
	}
	return drafts, blank
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
