package ingest

import "strings"

// NotFound is the column index reported for a field no header matches.
const NotFound = -1

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// NormalizeHeader folds a raw header so that wrapped multi-line headers and
// irregular spacing compare equal: line breaks and tabs become spaces, runs
// of spaces collapse, and the result is lower-cased and trimmed.
func NormalizeHeader(s string) string {
	s = lineBreaks.Replace(s)
	return strings.TrimSpace(strings.ToLower(strings.Join(strings.Fields(s), " ")))
}

// ResolveColumn returns the index of the first header matching the
// highest-priority alias that matches anything, or NotFound.
func ResolveColumn(headers []string, aliases []string) int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}
	return resolveNormalized(normalized, aliases)
}

func resolveNormalized(normalized []string, aliases []string) int {
	for _, alias := range aliases {
		want := NormalizeHeader(alias)
		if want == "" {
			continue
		}
		for i, h := range normalized {
			if h == want {
				return i
			}
		}
	}
	return NotFound
}

// Columns holds the resolved column index for every canonical field.
type Columns map[FieldKey]int

// ResolveColumns resolves every canonical field of table against headers.
func ResolveColumns(headers []string, table AliasTable) Columns {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}
	cols := make(Columns, len(CanonicalFields))
	for _, field := range CanonicalFields {
		cols[field] = resolveNormalized(normalized, table.Aliases[field])
	}
	return cols
}

// Index returns the column for field, NotFound when absent.
func (c Columns) Index(field FieldKey) int {
	if idx, ok := c[field]; ok {
		return idx
	}
	return NotFound
}

// Cell returns the trimmed value of field in row and whether the column
// exists and the row reaches it.
func (c Columns) Cell(row []string, field FieldKey) (string, bool) {
	idx := c.Index(field)
	if idx == NotFound || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

// Missing lists canonical fields with no matching column.
func (c Columns) Missing() []FieldKey {
	var out []FieldKey
	for _, field := range CanonicalFields {
		if c.Index(field) == NotFound {
			out = append(out, field)
		}
	}
	return out
}

// LocateHeaderRow picks the row that holds the real headers. Row 0 wins when
// it resolves the identity field. Otherwise the first later row with a cell
// containing the table marker is used. When nothing qualifies row 0 is
// returned as a best guess; recovered reports whether a later row was chosen.
func LocateHeaderRow(rows [][]string, table AliasTable) (index int, recovered bool) {
	if len(rows) == 0 {
		return 0, false
	}
	if ResolveColumn(rows[0], table.Aliases[FieldTicketID]) != NotFound {
		return 0, false
	}
	marker := NormalizeHeader(table.Marker)
	if marker == "" {
		return 0, false
	}
	for i := 1; i < len(rows); i++ {
		for _, cell := range rows[i] {
			if strings.Contains(NormalizeHeader(cell), marker) {
				return i, true
			}
		}
	}
	return 0, false
}
