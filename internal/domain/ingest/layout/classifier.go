// Package layout decides whether a grid is a sectioned budget sheet or a
// conventional one-row-per-transaction table.
package layout

import (
	"strings"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
)

// Kind is the layout of a grid.
type Kind string

const (
	Tabular         Kind = "tabular"
	SectionedBudget Kind = "sectioned_budget"
)

const (
	// ScanRows is how many leading rows are inspected.
	ScanRows = 10
	// MinConcepts is the number of distinct budget concepts required.
	MinConcepts = 2
)

// Concept is one budget vocabulary term with its localized spellings.
// Aliases are already folded (lowercase, no diacritics).
type Concept struct {
	Name    string
	Aliases []string
}

// DefaultConcepts is the keyword table used by Classify.
var DefaultConcepts = []Concept{
	{Name: "fixed expenses", Aliases: []string{"fixed expenses", "gastos fixos", "despesas fixas", "custos fixos"}},
	{Name: "variable expenses", Aliases: []string{"variable expenses", "gastos variaveis", "despesas variaveis", "custos variaveis"}},
	{Name: "income", Aliases: []string{"income", "receitas", "renda"}},
	{Name: "spending goal", Aliases: []string{"spending goal", "meta de gastos", "meta de despesas"}},
	{Name: "entry/inflow", Aliases: []string{"entry/inflow", "entradas", "entrada/inflow"}},
	{Name: "subscriptions", Aliases: []string{"subscriptions", "assinaturas"}},
}

// Classifier holds the concept table. The zero value is not usable; use New.
type Classifier struct {
	concepts []Concept
}

// New returns a classifier over concepts, or DefaultConcepts when nil.
func New(concepts []Concept) *Classifier {
	if concepts == nil {
		concepts = DefaultConcepts
	}
	return &Classifier{concepts: concepts}
}

// Classify flattens the first ScanRows rows into one folded text blob and
// reports SectionedBudget when at least MinConcepts distinct concepts occur.
// Everything else is Tabular.
func (c *Classifier) Classify(grid ledger.Grid) Kind {
	if len(c.Matches(grid)) >= MinConcepts {
		return SectionedBudget
	}
	return Tabular
}

// Matches returns the names of the concepts found in the leading rows.
func (c *Classifier) Matches(grid ledger.Grid) []string {
	blob := leadingText(grid, ScanRows)

	var found []string
	for _, concept := range c.concepts {
		if normalizer.ContainsAny(blob, concept.Aliases...) {
			found = append(found, concept.Name)
		}
	}
	return found
}

func leadingText(grid ledger.Grid, rows int) string {
	if rows > len(grid) {
		rows = len(grid)
	}
	var b strings.Builder
	for _, row := range grid[:rows] {
		for _, cell := range row {
			if s := cell.String(); s != "" {
				b.WriteString(s)
				b.WriteByte(' ')
			}
		}
	}
	return normalizer.Fold(b.String())
}
