package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadableTable marks a file that cannot be turned into rows at all.
// It is the only import failure that aborts a whole batch.
var ErrUnreadableTable = errors.New("unreadable table")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a parsed export with its header row located.
type Table struct {
	Sheet           string
	Headers         []string
	Rows            [][]string
	HeaderRow       int
	HeaderRecovered bool
}

// DataRowNumber converts an index into Rows to the 1-based row number of the source file.
func (t *Table) DataRowNumber(i int) int {
	return t.HeaderRow + i + 2
}

// ReadTable parses a CSV/TSV or XLSX export, chosen by the extension of
// name, and locates its header row.
func ReadTable(name string, r io.Reader, aliases AliasTable) (*Table, error) {
	var (
		rows  [][]string
		sheet string
		err   error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		rows, sheet, err = readWorkbook(r)
	case ".tsv", ".tab":
		rows, err = readDelimited(r, '\t')
	default:
		rows, err = readDelimited(r, 0)
	}
	if err != nil {
		return nil, err
	}
	table, err := NewTable(rows, aliases)
	if err != nil {
		return nil, err
	}
	table.Sheet = sheet
	return table, nil
}

// NewTable locates the header row in rows and slices off the data below it.
func NewTable(rows [][]string, aliases AliasTable) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrUnreadableTable)
	}
	idx, recovered := LocateHeaderRow(rows, aliases)
	return &Table{
		Headers:         rows[idx],
		Rows:            rows[idx+1:],
		HeaderRow:       idx,
		HeaderRecovered: recovered,
	}, nil
}

// readDelimited reads CSV-style text. A zero delimiter is sniffed from the first line.
func readDelimited(r io.Reader, delim rune) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	if delim == 0 {
		delim = sniffDelimiter(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableTable, err)
	}
	return rows, nil
}

// sniffLines bounds how many leading records the delimiter guess looks at.
const sniffLines = 20

var delimiterCandidates = []rune{',', ';', '\t'}

// sniffDelimiter picks the candidate that splits the leading records into
// the most rows of one consistent width. Title rows above the real header
// therefore cannot decide the delimiter on their own.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	lines := delimiterCounts(peek)

	best, bestScore, bestWidth := ',', 0, 0
	for _, candidate := range delimiterCandidates {
		freq := map[int]int{}
		for _, counts := range lines {
			if n := counts[candidate]; n > 0 {
				freq[n]++
			}
		}
		for width, score := range freq {
			if score > bestScore || score == bestScore && width > bestWidth {
				best, bestScore, bestWidth = candidate, score, width
			}
		}
	}
	return best
}

// delimiterCounts counts candidate delimiters per record, ignoring quoted text.
func delimiterCounts(data []byte) []map[rune]int {
	var (
		lines   []map[rune]int
		current = map[rune]int{}
		quoted  bool
		blank   = true
	)
	for _, b := range data {
		switch {
		case b == '"':
			quoted = !quoted
			blank = false
		case quoted:
		case b == '\n':
			if !blank {
				lines = append(lines, current)
				if len(lines) == sniffLines {
					return lines
				}
			}
			current, blank = map[rune]int{}, true
		case b == ',' || b == ';' || b == '\t':
			current[rune(b)]++
			blank = false
		case b != '\r' && b != ' ':
			blank = false
		}
	}
	if !blank {
		lines = append(lines, current)
	}
	return lines
}

// readWorkbook returns the rows of the first sheet that has any.
func readWorkbook(r io.Reader) ([][]string, string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnreadableTable, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, "", fmt.Errorf("%w: sheet %q: %v", ErrUnreadableTable, sheet, err)
		}
		if len(rows) > 0 {
			return rows, sheet, nil
		}
	}
	return nil, "", fmt.Errorf("%w: workbook has no rows", ErrUnreadableTable)
}
