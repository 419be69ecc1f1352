package extractor

import (
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
)

// inflowTypeValues are the type-column values read as inflow.
var inflowTypeValues = []string{"entrada", "inflow"}

// tabularInflowKeywords mark a description as inflow when no type column exists.
var tabularInflowKeywords = []string{
	"recebimento", "recebido", "receipt", "received", "venda", "sale", "entrada", "receita", "income",
}

// ExtractTabular maps the header row and converts every following row into
// a draft. Rows without a usable description or a positive amount are
// dropped.
func (x *Extractor) ExtractTabular(grid ledger.Grid) []ledger.EntryDraft {
	if len(grid) == 0 {
		return nil
	}

	headerRow := FindHeaderRow(grid)
	roles := x.MapColumns(grid[headerRow])
	today := x.now()

	descCol, hasDesc := roles.Column(RoleDescription)
	amountCol, hasAmount := roles.Column(RoleAmount)
	if !hasDesc || !hasAmount {
		return nil
	}

	var entries []ledger.EntryDraft
	for row := headerRow + 1; row < len(grid); row++ {
		description, _ := cellLabel(grid.At(row, descCol))
		amount := normalizer.ParseAmount(grid.At(row, amountCol))
		if description == "" || !amount.IsPositive() || !longerThan(description, 1) {
			continue
		}

		entry := ledger.EntryDraft{
			Description: description,
			Amount:      amount,
		}

		entry.Type = x.rowType(grid, row, roles, description)

		if col, ok := roles.Column(RoleCategory); ok && !grid.At(row, col).IsEmpty() {
			entry.Category = normalizeCategory(grid.At(row, col).String())
		} else {
			entry.Category = x.inferencer.Infer(description, entry.Type)
		}

		if col, ok := roles.Column(RoleDate); ok {
			entry.Date, entry.DateDefaulted = normalizer.ParseDate(grid.At(row, col), today)
		} else {
			entry.Date, entry.DateDefaulted = today.Format(normalizer.ISODate), true
		}

		if col, ok := roles.Column(RolePaymentMethod); ok && !grid.At(row, col).IsEmpty() {
			entry.PaymentMethod = ledger.ParsePaymentMethod(grid.At(row, col).String())
		}

		entries = append(entries, entry)
	}
	return entries
}

func (x *Extractor) rowType(grid ledger.Grid, row int, roles ColumnRoleMap, description string) ledger.EntryType {
	if col, ok := roles.Column(RoleType); ok {
		v := normalizer.Fold(grid.At(row, col).String())
		for _, in := range inflowTypeValues {
			if v == in {
				return ledger.Inflow
			}
		}
		return ledger.Outflow
	}

	if normalizer.ContainsAny(normalizer.Fold(description), tabularInflowKeywords...) {
		return ledger.Inflow
	}
	return ledger.Outflow
}
