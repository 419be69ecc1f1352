package extractor

import (
	"strings"
	"time"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
)

const (
	// valueColumnOffset is the distance from a section's label column to its
	// value column.
	valueColumnOffset = 1
	// sectionScanRows is how many leading rows are searched for section headers.
	sectionScanRows = 5
	// firstDataRow is where walks that do not anchor on their header begin.
	firstDataRow = 1
)

// SectionKind identifies a known budget block.
type SectionKind string

const (
	SectionFixed         SectionKind = "fixed"
	SectionVariable      SectionKind = "variable"
	SectionIncome        SectionKind = "income"
	SectionSubscriptions SectionKind = "subscriptions"
)

// SectionSpec describes how to find and walk one budget block. Header
// matching is done on folded text: Aliases are substrings, while Tokens and
// Prefixes must cover the whole cell, so a line such as "Income tax" or
// "Assinatura Netflix" is never taken for a header.
type SectionSpec struct {
	Kind     SectionKind
	Name     string
	Type     ledger.EntryType
	Category string
	Aliases  []string
	Tokens   []string
	Prefixes []string
}

// DefaultSections is the table of recognized budget blocks.
var DefaultSections = []SectionSpec{
	{
		Kind: SectionFixed, Name: "Fixed Expenses", Type: ledger.Outflow, Category: "other_expenses",
		Aliases: []string{"fixed expenses", "gastos fixos", "despesas fixas", "custos fixos"},
	},
	{
		Kind: SectionVariable, Name: "Variable Expenses", Type: ledger.Outflow, Category: "other_expenses",
		Aliases: []string{"variable expenses", "gastos variaveis", "despesas variaveis", "custos variaveis"},
	},
	{
		Kind: SectionIncome, Name: "Income", Type: ledger.Inflow, Category: "other_income",
		Tokens: []string{"income", "receitas", "entradas"},
	},
	{
		Kind: SectionSubscriptions, Name: "Subscriptions", Type: ledger.Outflow, Category: "subscriptions",
		Prefixes: []string{"subscription", "assinatura"},
	},
}

// incomeSubHeaders appear inside income blocks without being income lines.
var incomeSubHeaders = []string{
	"goal", "total", "essential", "invest", "leisure", "education", "subscription",
	"meta", "essencia", "lazer", "educacao", "assinatura",
}

// fallbackInflowKeywords mark a label found by the whole-grid scan as income.
var fallbackInflowKeywords = []string{
	"income", "received", "sale", "entry", "receita", "recebido", "recebimento", "venda", "entrada",
	"ifood", "mercado pago", "mercadopago", "pagseguro", "stripe", "paypal", "hotmart", "stone", "cielo",
}

func (s SectionSpec) matches(folded string) bool {
	if folded == "" {
		return false
	}
	if normalizer.ContainsAny(folded, s.Aliases...) {
		return true
	}

	words := strings.FieldsFunc(folded, isSeparator)
	if len(words) != 1 {
		return false
	}
	for _, tok := range s.Tokens {
		if words[0] == tok {
			return true
		}
	}
	for _, p := range s.Prefixes {
		if strings.HasPrefix(words[0], p) {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}

// sectionHeader is where a section's header cell was found.
type sectionHeader struct {
	spec SectionSpec
	col  int
	row  int
}

// SectionIndex maps each present section to its header cell.
type SectionIndex map[SectionKind]sectionHeader

// Columns returns section name -> label column, for diagnostics.
func (idx SectionIndex) Columns() map[string]int {
	out := make(map[string]int, len(idx))
	for _, h := range idx {
		out[h.spec.Name] = h.col
	}
	return out
}

// DiscoverSections scans the first sectionScanRows rows of every column and
// records the first column holding each known section header.
func (x *Extractor) DiscoverSections(grid ledger.Grid) SectionIndex {
	idx := make(SectionIndex)
	rows := min(sectionScanRows, len(grid))
	width := grid.Width()

	for _, spec := range x.sections {
	scan:
		for col := 0; col < width; col++ {
			for row := 0; row < rows; row++ {
				_, folded := cellLabel(grid.At(row, col))
				if spec.matches(folded) {
					idx[spec.Kind] = sectionHeader{spec: spec, col: col, row: row}
					break scan
				}
			}
		}
	}
	return idx
}

// sectionByKind returns the configured spec for kind.
func (x *Extractor) sectionByKind(kind SectionKind) (SectionSpec, bool) {
	for _, spec := range x.sections {
		if spec.Kind == kind {
			return spec, true
		}
	}
	return SectionSpec{}, false
}

func isValueHeader(folded string) bool {
	return folded == "valor" || folded == "value"
}

// sectionWalk describes one pass down a label column.
type sectionWalk struct {
	header sectionHeader
	start  int
	offset int
	stop   func(folded string) bool
	skip   func(folded string) bool
	prefix string
}

// ExtractBudget walks every present section of a budget grid. Every entry is
// dated with reference. When no section yields anything the whole grid is
// scanned for label/value pairs instead.
func (x *Extractor) ExtractBudget(grid ledger.Grid, reference time.Time) []ledger.EntryDraft {
	idx := x.DiscoverSections(grid)
	date := reference.Format(normalizer.ISODate)

	var entries []ledger.EntryDraft
	for _, spec := range x.sections {
		h, ok := idx[spec.Kind]
		if !ok {
			continue
		}
		entries = append(entries, x.walkSection(grid, x.planWalk(h), date)...)
	}

	if len(entries) == 0 {
		entries = x.scanPairs(grid, valueColumnOffset, date)
	}
	return entries
}

// planWalk decides start row and termination rules for a section. Fixed
// expenses end where the variable block starts in the same column; variable
// expenses and subscriptions end at their total row; income runs to the end.
func (x *Extractor) planWalk(h sectionHeader) sectionWalk {
	isTotal := func(folded string) bool { return strings.Contains(folded, "total") }
	never := func(string) bool { return false }

	w := sectionWalk{header: h, offset: valueColumnOffset}

	switch h.spec.Kind {
	case SectionFixed:
		w.start = firstDataRow
		w.stop = never
		if variable, ok := x.sectionByKind(SectionVariable); ok {
			w.stop = variable.matches
		}
		w.skip = func(folded string) bool { return isTotal(folded) || isValueHeader(folded) }
	case SectionIncome:
		w.start = firstDataRow
		w.stop = never
		w.skip = func(folded string) bool {
			return isValueHeader(folded) || h.spec.matches(folded) || normalizer.ContainsAny(folded, incomeSubHeaders...)
		}
		w.prefix = "Income: "
	default:
		w.start = h.row + 1
		w.stop = isTotal
		w.skip = isValueHeader
	}
	return w
}

func (x *Extractor) walkSection(grid ledger.Grid, w sectionWalk, date string) []ledger.EntryDraft {
	var entries []ledger.EntryDraft
	col := w.header.col

	for row := w.start; row < len(grid); row++ {
		label, folded := cellLabel(grid.At(row, col))
		if w.stop(folded) {
			break
		}
		if label == "" || w.skip(folded) {
			continue
		}

		amount := normalizer.ParseAmount(grid.At(row, col+w.offset))
		if !amount.IsPositive() || !longerThan(label, 1) {
			continue
		}

		entries = append(entries, ledger.EntryDraft{
			Type:          w.header.spec.Type,
			Description:   w.prefix + label,
			Amount:        amount,
			Date:          date,
			DateDefaulted: true,
			Category:      w.header.spec.Category,
			Section:       w.header.spec.Name,
		})
	}
	return entries
}

// scanPairs treats every column as a label column and the one offset to its
// right as values, admitting pairs that look like real budget lines.
func (x *Extractor) scanPairs(grid ledger.Grid, offset int, date string) []ledger.EntryDraft {
	var entries []ledger.EntryDraft

	for row := range grid {
		for col := 0; col+offset < len(grid[row]); col++ {
			label, folded := cellLabel(grid[row][col])
			if !longerThan(label, 2) || !normalizer.HasLetter(label) || strings.Contains(folded, "total") {
				continue
			}

			amount := normalizer.ParseAmount(grid[row][col+offset])
			if !amount.IsPositive() {
				continue
			}

			typ := ledger.Outflow
			if normalizer.ContainsAny(folded, fallbackInflowKeywords...) {
				typ = ledger.Inflow
			}

			entries = append(entries, ledger.EntryDraft{
				Type:          typ,
				Description:   label,
				Amount:        amount,
				Date:          date,
				DateDefaulted: true,
				Category:      x.inferencer.Infer(label, typ),
			})
		}
	}
	return entries
}
