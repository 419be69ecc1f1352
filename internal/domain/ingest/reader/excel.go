package reader

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

// formattedDate matches the display text excelize produces for date-styled
// cells (e.g. "03-01-24", "2024-03-01", "01/03/2024").
var formattedDate = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}`)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// readWorkbook opens data by its container signature rather than the declared
// format, so an .xls that is really an .xlsx (or the reverse) still reads.
func readWorkbook(data []byte, declared Format) (*Workbook, error) {
	var (
		wb  *Workbook
		err error
	)
	switch {
	case bytes.HasPrefix(data, zipMagic):
		wb, err = readXLSX(data)
	case bytes.HasPrefix(data, oleMagic):
		wb, err = readXLS(data)
	default:
		err = fmt.Errorf("content is not a %s workbook", declared)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return wb, nil
}

func readXLSX(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	wb := &Workbook{Format: FormatXLSX}
	for _, sheet := range f.GetSheetList() {
		formatted, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		wb.add(sheet, mergeRows(formatted, raw))
	}
	if len(wb.sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return wb, nil
}

// mergeRows builds typed cells from the formatted and raw views of a sheet.
func mergeRows(formatted, raw [][]string) ledger.Grid {
	grid := make(ledger.Grid, max(len(formatted), len(raw)))
	for i := range grid {
		var f, r []string
		if i < len(formatted) {
			f = formatted[i]
		}
		if i < len(raw) {
			r = raw[i]
		}
		row := make(ledger.Row, max(len(f), len(r)))
		for j := range row {
			row[j] = typedCell(at(f, j), at(r, j))
		}
		grid[i] = row
	}
	return grid
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// typedCell recovers native numbers and dates: the raw value of a numeric
// cell parses as a float, and a date-styled one also displays as a date.
func typedCell(formatted, raw string) ledger.Cell {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ledger.TextCell(formatted)
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ledger.TextCell(formatted)
	}
	if formattedDate.MatchString(strings.TrimSpace(formatted)) {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return ledger.DateCell(t)
		}
	}
	return ledger.NumberCell(n)
}

func readXLS(data []byte) (*Workbook, error) {
	book, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}

	wb := &Workbook{Format: FormatXLS}
	for i, sheet := range book.GetSheets() {
		name := sheet.GetName()
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}

		var grid ledger.Grid
		for _, r := range sheet.GetRows() {
			cols := r.GetCols()
			row := make(ledger.Row, len(cols))
			for j, c := range cols {
				if c != nil {
					row[j] = ledger.TextCell(strings.TrimSpace(c.GetString()))
				}
			}
			grid = append(grid, row)
		}
		wb.add(name, grid)
	}
	if len(wb.sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return wb, nil
}
