// Package assembler packages extracted drafts into an ingestion result with
// summary totals, or a diagnostic failure when nothing was extracted.
package assembler

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/pkg/money"
)

// OtherSection groups entries that came without a section.
const OtherSection = "Other"

// SampleRowCount is how many raw rows accompany a NoEntriesError.
const SampleRowCount = 5

// ErrNoEntriesExtracted signals that the grid produced zero admissible entries.
var ErrNoEntriesExtracted = errors.New("no entries could be extracted from the file")

// DefaultHint is shown when extraction produced nothing.
const DefaultHint = "Check that the sheet has a description column and a value column, with at least one row below the header."

// NoEntriesError carries what a user needs to fix the file.
type NoEntriesError struct {
	Hint       string
	SampleRows [][]string
}

func (e *NoEntriesError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNoEntriesExtracted, e.Hint)
}

// Is makes errors.Is(err, ErrNoEntriesExtracted) hold.
func (e *NoEntriesError) Is(target error) bool {
	return target == ErrNoEntriesExtracted
}

// Summary holds counts and totals of a result.
type Summary struct {
	Total        int                        `json:"total"`
	InflowCount  int                        `json:"inflowCount"`
	OutflowCount int                        `json:"outflowCount"`
	InflowSum    decimal.Decimal            `json:"inflowSum"`
	OutflowSum   decimal.Decimal            `json:"outflowSum"`
	Net          decimal.Decimal            `json:"net"`
	BySection    map[string]decimal.Decimal `json:"bySection"`
	Currency     string                     `json:"currency"`
}

// Result is the outcome of one ingestion.
type Result struct {
	Entries         []ledger.EntryDraft `json:"entries"`
	Summary         Summary             `json:"summary"`
	ProcessedSheet  string              `json:"processedSheet"`
	SheetsAvailable []string            `json:"sheets"`
}

// Assembler builds results in one currency.
type Assembler struct {
	currency string
}

// New returns an Assembler summing in currencyCode.
func New(currencyCode string) (*Assembler, error) {
	if !money.ValidCurrency(currencyCode) {
		return nil, fmt.Errorf("%w: %q", money.ErrUnknownCurrency, currencyCode)
	}
	return &Assembler{currency: currencyCode}, nil
}

// Assemble admits the drafts that satisfy the admission rules and summarizes
// them. When none survive it returns a *NoEntriesError carrying the first
// SampleRowCount rows of grid.
func (a *Assembler) Assemble(entries []ledger.EntryDraft, grid ledger.Grid, sheet string, sheets []string) (*Result, error) {
	admitted := make([]ledger.EntryDraft, 0, len(entries))
	for _, e := range entries {
		if e.Admissible() {
			admitted = append(admitted, e)
		}
	}

	if len(admitted) == 0 {
		return nil, &NoEntriesError{
			Hint:       DefaultHint,
			SampleRows: grid.Strings(SampleRowCount),
		}
	}

	summary, err := a.Summarize(admitted)
	if err != nil {
		return nil, err
	}

	return &Result{
		Entries:         admitted,
		Summary:         summary,
		ProcessedSheet:  sheet,
		SheetsAvailable: sheets,
	}, nil
}

// Summarize computes counts, sums by type and sums by section.
func (a *Assembler) Summarize(entries []ledger.EntryDraft) (Summary, error) {
	byType, err := money.NewTally(a.currency)
	if err != nil {
		return Summary{}, err
	}
	bySection, err := money.NewTally(a.currency)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Total: len(entries), Currency: a.currency}
	for _, e := range entries {
		switch e.Type {
		case ledger.Inflow:
			s.InflowCount++
		case ledger.Outflow:
			s.OutflowCount++
		}
		byType.Add(string(e.Type), e.Amount)

		section := e.Section
		if section == "" {
			section = OtherSection
		}
		bySection.Add(section, e.Amount)
	}

	inflow := byType.Get(string(ledger.Inflow))
	outflow := byType.Get(string(ledger.Outflow))
	net, err := inflow.Subtract(outflow)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to compute net: %w", err)
	}

	s.InflowSum = inflow.ToDecimal()
	s.OutflowSum = outflow.ToDecimal()
	s.Net = net.ToDecimal()
	s.BySection = bySection.Decimals()
	return s, nil
}
