package layout_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/layout"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

func TestClassify(t *testing.T) {
	c := layout.New(nil)

	tests := []struct {
		name     string
		rows     [][]string
		expected layout.Kind
	}{
		{
			name:     "two english sections",
			rows:     [][]string{{"Fixed Expenses", "Value", "", "Variable Expenses", "Value"}},
			expected: layout.SectionedBudget,
		},
		{
			name:     "portuguese sections with accents",
			rows:     [][]string{{"GASTOS FIXOS", "Valor"}, {"Aluguel", "1200"}, {"Gastos Variáveis", "Valor"}},
			expected: layout.SectionedBudget,
		},
		{
			name:     "single concept stays tabular",
			rows:     [][]string{{"Income", "Value"}, {"Salary", "5000"}},
			expected: layout.Tabular,
		},
		{
			name:     "transaction table",
			rows:     [][]string{{"Date", "Description", "Value", "Type"}, {"2024-03-01", "Client payment", "500", "Entrada"}},
			expected: layout.Tabular,
		},
		{
			name:     "empty grid",
			rows:     nil,
			expected: layout.Tabular,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(ledger.GridFromStrings(tt.rows)))
		})
	}
}

func TestClassify_OnlyLeadingRows(t *testing.T) {
	rows := make([][]string, 0, 12)
	for i := 0; i < 10; i++ {
		rows = append(rows, []string{"Item", "10"})
	}
	rows = append(rows, []string{"Fixed Expenses", "Variable Expenses"})

	assert.Equal(t, layout.Tabular, layout.New(nil).Classify(ledger.GridFromStrings(rows)))
}

func TestClassify_Deterministic(t *testing.T) {
	faker := gofakeit.New(7)
	c := layout.New(nil)

	for i := 0; i < 50; i++ {
		rows := make([][]string, 12)
		for r := range rows {
			rows[r] = []string{faker.Word(), faker.Word(), faker.Word()}
		}
		if i%2 == 0 {
			rows[3][1] = "Subscriptions"
			rows[5][0] = "Income"
		}

		grid := ledger.GridFromStrings(rows)
		first := c.Classify(grid)
		assert.Equal(t, first, c.Classify(grid))
		assert.Equal(t, first, layout.New(nil).Classify(grid))
		if i%2 == 0 {
			assert.Equal(t, layout.SectionedBudget, first)
		}
	}
}

func TestMatches(t *testing.T) {
	grid := ledger.GridFromStrings([][]string{{"Entradas", "Assinaturas", "Meta de gastos"}})
	assert.ElementsMatch(t, []string{"entry/inflow", "subscriptions", "spending goal"}, layout.New(nil).Matches(grid))
}
