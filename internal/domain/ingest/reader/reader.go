// Package reader loads uploaded spreadsheet and CSV files into raw grids.
package reader

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

// Upload size limits per endpoint.
const (
	MaxSpreadsheetBytes int64 = 10 << 20
	MaxDocumentBytes    int64 = 5 << 20
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrParseFailure        = errors.New("could not read file contents")
	ErrSheetNotFound       = errors.New("sheet not found")
)

// Format is the container format of an upload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

var formatByExtension = map[string]Format{
	".csv":  FormatCSV,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
}

var formatByMIME = map[string]Format{
	"text/csv":                    FormatCSV,
	"application/csv":             FormatCSV,
	"text/comma-separated-values": FormatCSV,

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,

	"application/vnd.ms-excel": FormatXLS,
}

// Source is an uploaded file.
type Source struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DetectFormat accepts a file when either its extension or its declared MIME
// type is a known spreadsheet type. The extension wins when both are known,
// since browsers commonly label .csv files as application/vnd.ms-excel.
func DetectFormat(filename, contentType string) (Format, error) {
	if f, ok := formatByExtension[strings.ToLower(filepath.Ext(filename))]; ok {
		return f, nil
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if f, ok := formatByMIME[strings.ToLower(mediaType)]; ok {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedFileType, filename, contentType)
}

// Workbook is a fully read upload: one grid per sheet, in workbook order.
type Workbook struct {
	Format Format
	sheets []string
	grids  map[string]ledger.Grid
}

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// NeedsSelection reports whether the caller must pick a sheet.
func (w *Workbook) NeedsSelection() bool {
	return len(w.sheets) > 1
}

// Grid returns the grid of sheet.
func (w *Workbook) Grid(sheet string) (ledger.Grid, error) {
	g, ok := w.grids[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	return g, nil
}

// First returns the first sheet name and its grid.
func (w *Workbook) First() (string, ledger.Grid) {
	if len(w.sheets) == 0 {
		return "", nil
	}
	return w.sheets[0], w.grids[w.sheets[0]]
}

// ResolveSheet maps a caller-supplied sheet name onto a workbook sheet:
// exact match, then case-insensitive, then the closest fuzzy match. A fuzzy
// match is only taken when a single sheet ranks best.
func (w *Workbook) ResolveSheet(name string) (string, error) {
	name = strings.TrimSpace(name)
	if _, ok := w.grids[name]; ok {
		return name, nil
	}
	for _, s := range w.sheets {
		if strings.EqualFold(s, name) {
			return s, nil
		}
	}
	if name != "" {
		ranks := fuzzy.RankFindNormalizedFold(name, w.sheets)
		sort.Sort(ranks)
		switch {
		case len(ranks) == 1, len(ranks) > 1 && ranks[0].Distance < ranks[1].Distance:
			return ranks[0].Target, nil
		case len(ranks) > 1:
			return "", fmt.Errorf("%w: %q matches more than one sheet (available: %s)",
				ErrSheetNotFound, name, strings.Join(w.sheets, ", "))
		}
	}
	return "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, name, strings.Join(w.sheets, ", "))
}

func (w *Workbook) add(name string, grid ledger.Grid) {
	if w.grids == nil {
		w.grids = make(map[string]ledger.Grid)
	}
	w.sheets = append(w.sheets, name)
	w.grids[name] = grid
}

// Read validates src against maxBytes and the accepted types, then parses it.
func Read(src Source, maxBytes int64) (*Workbook, error) {
	if int64(len(src.Data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(src.Data), maxBytes)
	}

	format, err := DetectFormat(src.Filename, src.ContentType)
	if err != nil {
		return nil, err
	}
	if len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrParseFailure)
	}

	switch format {
	case FormatCSV:
		return readCSV(src)
	default:
		return readWorkbook(src.Data, format)
	}
}
