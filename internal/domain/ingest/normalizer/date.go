package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

// ISODate is the canonical date layout of every entry.
const ISODate = "2006-01-02"

var (
	isoPrefix  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	dayFirst   = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})$`)
	dayFirstYY = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{2})$`)
)

// Excel serial range accepted for numeric date cells (1954-10-03 .. 2119-01-14).
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// ParseDate converts a raw cell into an ISO date. When the cell holds nothing
// parseable the fallback is returned and defaulted is true.
func ParseDate(c ledger.Cell, fallback time.Time) (iso string, defaulted bool) {
	switch c.Kind {
	case ledger.CellDate:
		return c.Time.Format(ISODate), false
	case ledger.CellNumber:
		if c.Number >= minExcelSerial && c.Number <= maxExcelSerial {
			if t, err := excelize.ExcelDateToTime(c.Number, false); err == nil {
				return t.Format(ISODate), false
			}
		}
	case ledger.CellText:
		if t, ok := ParseDateString(c.Text); ok {
			return t.Format(ISODate), false
		}
	}
	return fallback.Format(ISODate), true
}

// ParseDateString accepts ISO (YYYY-MM-DD, optionally followed by a time),
// DD/MM/YYYY and DD/MM/YY. Slashes, dots and dashes are all accepted as
// separators in the day-first forms; two-digit years are read as 20YY.
func ParseDateString(s string) (time.Time, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return time.Time{}, false
	}
	v := fields[0]

	if isoPrefix.MatchString(v) {
		t, err := time.Parse(ISODate, v[:10])
		return t, err == nil
	}

	if m := dayFirst.FindStringSubmatch(v); m != nil {
		return buildDate(m[3], m[2], m[1])
	}
	if m := dayFirstYY.FindStringSubmatch(v); m != nil {
		return buildDate("20"+m[3], m[2], m[1])
	}
	return time.Time{}, false
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t, err := time.Parse(ISODate, fmt.Sprintf("%04d-%02d-%02d", y, m, d))
	return t, err == nil
}

// MonthStart returns the first day of t's month, used as the reference date
// for single-month budget sheets.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseReferenceMonth accepts "YYYY-MM" or "YYYY-MM-DD". An empty value
// resolves to the current month of now.
func ParseReferenceMonth(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return MonthStart(now), nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(ISODate, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid reference month %q: expected YYYY-MM or YYYY-MM-DD", s)
}
