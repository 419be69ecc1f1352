// Package categorization assigns semantic category tags to ledger entries
// using ordered literal keyword tables.
package categorization

import "github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"

// Category describes one tag of the fixed category vocabulary.
type Category struct {
	Tag   string           `json:"tag" yaml:"tag"`
	Label string           `json:"label" yaml:"label"`
	Icon  string           `json:"icon" yaml:"icon"`
	Type  ledger.EntryType `json:"type" yaml:"type"`
}

// Fallback tags used when no keyword matches.
const (
	OtherExpenses = "other_expenses"
	OtherIncome   = "other_income"
)

// Taxonomy is the fixed vocabulary the inferencer may emit.
var Taxonomy = []Category{
	{Tag: "sales", Label: "Sales", Icon: "shopping-bag", Type: ledger.Inflow},
	{Tag: "services", Label: "Services", Icon: "briefcase", Type: ledger.Inflow},
	{Tag: "freelance_income", Label: "Freelance", Icon: "laptop", Type: ledger.Inflow},
	{Tag: OtherIncome, Label: "Other income", Icon: "plus-circle", Type: ledger.Inflow},

	{Tag: "energy", Label: "Energy", Icon: "zap", Type: ledger.Outflow},
	{Tag: "water", Label: "Water", Icon: "droplet", Type: ledger.Outflow},
	{Tag: "internet", Label: "Internet & phone", Icon: "wifi", Type: ledger.Outflow},
	{Tag: "rent", Label: "Rent", Icon: "home", Type: ledger.Outflow},
	{Tag: "payroll", Label: "Payroll", Icon: "users", Type: ledger.Outflow},
	{Tag: "taxes", Label: "Taxes", Icon: "landmark", Type: ledger.Outflow},
	{Tag: "transport", Label: "Transport", Icon: "car", Type: ledger.Outflow},
	{Tag: "subscriptions", Label: "Subscriptions", Icon: "repeat", Type: ledger.Outflow},
	{Tag: "marketing", Label: "Marketing", Icon: "megaphone", Type: ledger.Outflow},
	{Tag: "suppliers", Label: "Suppliers", Icon: "truck", Type: ledger.Outflow},
	{Tag: OtherExpenses, Label: "Other expenses", Icon: "circle", Type: ledger.Outflow},
}

// Lookup returns the taxonomy entry for tag.
func Lookup(tag string) (Category, bool) {
	for _, c := range Taxonomy {
		if c.Tag == tag {
			return c, true
		}
	}
	return Category{}, false
}
