package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/banza/complaint-desk/internal/clock"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"01-02-06",
	"1-2-06",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
}

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	"3:04:05PM",
	"3 PM",
}

// instantLayouts carry their own date and time in one string.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var combinedLayouts = buildCombinedLayouts()

func buildCombinedLayouts() []string {
	out := make([]string, 0, len(dateLayouts)*len(timeLayouts))
	for _, d := range dateLayouts {
		for _, t := range timeLayouts {
			out = append(out, d+" "+t)
		}
	}
	return out
}

// Excel serial day numbers between these bounds (1954..2119) are treated as dates.
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// DateTimeParser combines spreadsheet date and time cells into one instant.
type DateTimeParser struct {
	clock clock.Clock
	loc   *time.Location
}

// NewDateTimeParser returns a parser interpreting zone-less values in loc
// (UTC when nil) and falling back to clk.
func NewDateTimeParser(clk clock.Clock, loc *time.Location) DateTimeParser {
	if loc == nil {
		loc = time.UTC
	}
	if clk == nil {
		clk = clock.Real()
	}
	return DateTimeParser{clock: clk, loc: loc}
}

// Combine joins dateStr and timeStr with a space and parses the result. A
// lone date is parsed by itself. Anything unparsable yields the current
// instant and ok=false; no error ever reaches the caller.
func (p DateTimeParser) Combine(dateStr, timeStr string) (time.Time, bool) {
	dateStr = collapseSpace(dateStr)
	timeStr = strings.ToUpper(collapseSpace(timeStr))

	switch {
	case dateStr != "" && timeStr != "":
		if t, ok := p.parse(dateStr+" "+timeStr, combinedLayouts); ok {
			return t, true
		}
		if day, ok := p.excelSerial(dateStr); ok {
			if t, ok := p.parse(day.Format("2006-01-02")+" "+timeStr, combinedLayouts); ok {
				return t, true
			}
		}
	case dateStr != "":
		if t, ok := p.parse(dateStr, instantLayouts); ok {
			return t, true
		}
		if t, ok := p.parse(dateStr, combinedLayouts); ok {
			return t, true
		}
		if t, ok := p.parse(dateStr, dateLayouts); ok {
			return t, true
		}
		if t, ok := p.excelSerial(dateStr); ok {
			return t, true
		}
	}
	return p.clock.Now().In(p.loc), false
}

func (p DateTimeParser) parse(value string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, p.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p DateTimeParser) excelSerial(value string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial < minExcelSerial || serial > maxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, p.loc), true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
