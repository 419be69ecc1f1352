// Package extractor turns classified grids into ledger entry drafts. Budget
// sheets are walked section by section; transaction tables are walked row by
// row after their header has been mapped to column roles.
package extractor

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
)

// CategoryInferencer assigns a category tag to an entry lacking one.
type CategoryInferencer interface {
	Infer(description string, typ ledger.EntryType) string
}

// Extractor holds the read-only keyword tables shared by both extraction
// paths. Per-call state (section index, column roles) never outlives a call.
type Extractor struct {
	inferencer  CategoryInferencer
	now         func() time.Time
	sections    []SectionSpec
	columnRules []ColumnRule
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the clock used for the "today" date default.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) { x.now = now }
}

// WithSections replaces the budget section table.
func WithSections(sections []SectionSpec) Option {
	return func(x *Extractor) { x.sections = sections }
}

// WithColumnRules replaces the header-to-role table.
func WithColumnRules(rules []ColumnRule) Option {
	return func(x *Extractor) { x.columnRules = rules }
}

// New creates an Extractor.
func New(inferencer CategoryInferencer, opts ...Option) *Extractor {
	x := &Extractor{
		inferencer:  inferencer,
		now:         time.Now,
		sections:    DefaultSections,
		columnRules: DefaultColumnRules,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// cellLabel returns the trimmed text of a cell and its folded form.
func cellLabel(c ledger.Cell) (label, folded string) {
	label = strings.TrimSpace(c.String())
	return label, normalizer.Fold(label)
}

func longerThan(s string, n int) bool {
	return utf8.RuneCountInString(s) > n
}
