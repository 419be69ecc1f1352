// Package ledger holds the shared data model of the ingestion pipeline:
// the raw cell grid produced by the reader and the normalized entry drafts
// produced by the extractors.
package ledger

import (
	"strconv"
	"strings"
	"time"
)

// CellKind identifies what a cell held in the source file.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// Cell is a single raw value as read from the file.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

// TextCell builds a text cell. Blank strings become empty cells.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a native numeric cell.
func NumberCell(n float64) Cell {
	return Cell{Kind: CellNumber, Number: n, Text: strconv.FormatFloat(n, 'f', -1, 64)}
}

// DateCell builds a native date cell.
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Time: t, Text: t.Format("2006-01-02")}
}

// String returns the cell's text form; empty cells return "".
func (c Cell) String() string {
	if c.Kind == CellEmpty {
		return ""
	}
	return c.Text
}

// IsEmpty reports whether the cell carries no content.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || (c.Kind == CellText && strings.TrimSpace(c.Text) == "")
}

// Row is one row of cells, left to right.
type Row []Cell

// Grid is the row-major content of one sheet. It is never mutated after the
// reader produces it.
type Grid []Row

// At returns the cell at (row, col), or an empty cell when out of range.
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{}
	}
	return g[row][col]
}

// Width returns the number of columns of the widest row.
func (g Grid) Width() int {
	width := 0
	for _, r := range g {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}

// Strings renders the first n rows as plain strings, used for diagnostics.
func (g Grid) Strings(n int) [][]string {
	if n > len(g) {
		n = len(g)
	}
	out := make([][]string, 0, n)
	for _, r := range g[:n] {
		row := make([]string, len(r))
		for i, c := range r {
			row[i] = c.String()
		}
		out = append(out, row)
	}
	return out
}

// GridFromStrings builds a grid of text cells.
func GridFromStrings(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, r := range rows {
		g[i] = make(Row, len(r))
		for j, v := range r {
			g[i][j] = TextCell(v)
		}
	}
	return g
}
