package reader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

// delimiterScanLines is how many leading lines vote on the delimiter.
const delimiterScanLines = 10

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns data as UTF-8. A BOM is stripped; bytes that are not
// valid UTF-8 are decoded as Windows-1252, the usual encoding of
// spreadsheet exports on Windows.
func decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode text: %w", err)
	}
	return decoded, nil
}

// detectDelimiter picks the candidate that occurs most often on the widest
// of the leading lines. Comma is the default.
func detectDelimiter(text []byte) rune {
	candidates := []rune{';', '\t', ',', '|'}
	best, bestCount := ',', 0

	lines := strings.SplitN(string(text), "\n", delimiterScanLines+1)
	if len(lines) > delimiterScanLines {
		lines = lines[:delimiterScanLines]
	}
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		for _, d := range candidates {
			if n := strings.Count(line, string(d)); n > bestCount {
				best, bestCount = d, n
			}
		}
	}
	return best
}

func readCSV(src Source) (*Workbook, error) {
	text, err := decodeText(src.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = detectDelimiter(text)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var grid ledger.Grid
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		row := make(ledger.Row, len(record))
		for i, v := range record {
			row[i] = ledger.TextCell(strings.TrimSpace(v))
		}
		grid = append(grid, row)
	}

	wb := &Workbook{Format: FormatCSV}
	wb.add(csvSheetName(src.Filename), grid)
	return wb, nil
}

func csvSheetName(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if name == "" || name == "." {
		return "csv"
	}
	return name
}
