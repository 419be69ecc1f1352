package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

// ExportFormat selects the rendering of exported drafts.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "csv" or "xlsx"; empty means csv.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType is the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

type exportRow struct {
	Date          string `csv:"date"`
	Type          string `csv:"type"`
	Description   string `csv:"description"`
	Amount        string `csv:"amount"`
	Category      string `csv:"category"`
	Section       string `csv:"section"`
	PaymentMethod string `csv:"payment_method"`
	DateDefaulted bool   `csv:"date_defaulted"`
}

var exportHeader = []string{"date", "type", "description", "amount", "category", "section", "payment_method", "date_defaulted"}

func toExportRows(entries []ledger.EntryDraft) []*exportRow {
	rows := make([]*exportRow, len(entries))
	for i, e := range entries {
		rows[i] = &exportRow{
			Date:          e.Date,
			Type:          string(e.Type),
			Description:   e.Description,
			Amount:        e.Amount.StringFixed(2),
			Category:      e.Category,
			Section:       e.Section,
			PaymentMethod: string(e.PaymentMethod),
			DateDefaulted: e.DateDefaulted,
		}
	}
	return rows
}

// Export renders drafts to w.
func Export(w io.Writer, format ExportFormat, entries []ledger.EntryDraft) error {
	if format == ExportXLSX {
		return exportXLSX(w, entries)
	}
	rows := toExportRows(entries)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write csv export: %w", err)
	}
	return nil
}

func exportXLSX(w io.Writer, entries []ledger.EntryDraft) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Entries"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name export sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			e.Date, string(e.Type), e.Description, e.Amount.Round(2).InexactFloat64(),
			e.Category, e.Section, string(e.PaymentMethod), e.DateDefaulted,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write export row %d: %w", i, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx export: %w", err)
	}
	return nil
}
