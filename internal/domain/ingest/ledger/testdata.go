package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator builds realistic ledger grids using gofakeit, together
// with the rows a correct extraction must return.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a fixed seed for reproducibility.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// GeneratedRow is one data row of a generated grid.
type GeneratedRow struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Type        EntryType
}

// Amount returns a positive amount with two decimals.
func (g *TestDataGenerator) Amount(lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(g.faker.Float64Range(lo, hi)).Round(2).Add(decimal.NewFromFloat(0.01))
}

// Description returns a short multi-word description.
func (g *TestDataGenerator) Description() string {
	return fmt.Sprintf("%s %s", g.faker.Company(), g.faker.Noun())
}

// BrazilianAmount formats d as "R$ 1.234,56".
func BrazilianAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	whole, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteByte(whole[i])
	}
	return "R$ " + b.String() + "," + cents
}

// TabularGrid returns a transaction table with a header row, n data rows and
// the expected extraction of each row.
func (g *TestDataGenerator) TabularGrid(n int) (Grid, []GeneratedRow) {
	rows := [][]string{{"Data", "Descrição", "Valor", "Tipo"}}
	expected := make([]GeneratedRow, 0, n)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r := GeneratedRow{
			Date:        start.AddDate(0, 0, g.faker.Number(0, 364)).Format("2006-01-02"),
			Description: g.Description(),
			Amount:      g.Amount(1, 20000),
			Type:        Outflow,
		}
		typeCell := "Saída"
		if g.faker.Bool() {
			r.Type = Inflow
			typeCell = "Entrada"
		}

		d, _ := time.Parse("2006-01-02", r.Date)
		rows = append(rows, []string{d.Format("02/01/2006"), r.Description, BrazilianAmount(r.Amount), typeCell})
		expected = append(expected, r)
	}
	return GridFromStrings(rows), expected
}

// NoisyRows returns rows that extraction must drop: blank descriptions,
// zero or unparseable amounts and one-character descriptions.
func (g *TestDataGenerator) NoisyRows() [][]string {
	return [][]string{
		{"01/02/2024", "", "R$ 10,00", "Saída"},
		{"01/02/2024", g.Description(), "0", "Saída"},
		{"01/02/2024", g.Description(), "n/a", "Entrada"},
		{"01/02/2024", "x", "R$ 5,00", "Saída"},
		{"", "", "", ""},
	}
}
