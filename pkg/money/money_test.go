package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		cents    int64
	}{
		{"whole", "1200", BRL, 120000},
		{"two decimals", "1234.56", BRL, 123456},
		{"rounds half up", "0.005", USD, 1},
		{"unknown currency falls back to BRL", "10", "XXX1", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFromDecimal(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.cents, m.Amount())
		})
	}
}

func TestAddSubtract(t *testing.T) {
	a := NewFromDecimal(decimal.RequireFromString("0.10"), BRL)
	b := NewFromDecimal(decimal.RequireFromString("0.20"), BRL)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.30").Equal(sum.ToDecimal()))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, int64(-10), diff.Amount())

	_, err = a.Add(NewFromDecimal(decimal.NewFromInt(1), EUR))
	assert.Error(t, err)
}

func TestNilSafety(t *testing.T) {
	var m *Money
	assert.True(t, m.IsZero())
	assert.Equal(t, int64(0), m.Amount())
	assert.Equal(t, "", m.Currency())
	assert.True(t, m.ToDecimal().IsZero())

	other := Zero(BRL)
	sum, err := m.Add(other)
	require.NoError(t, err)
	assert.Equal(t, BRL, sum.Currency())
}

func TestTally(t *testing.T) {
	t.Run("sums per key without float drift", func(t *testing.T) {
		tally, err := NewTally(BRL)
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			tally.Add("Fixed Expenses", decimal.RequireFromString("0.1"))
		}
		tally.Add("Income", decimal.RequireFromString("1500.55"))

		assert.Equal(t, []string{"Fixed Expenses", "Income"}, tally.Keys())
		assert.True(t, decimal.NewFromInt(1).Equal(tally.Get("Fixed Expenses").ToDecimal()))
		assert.True(t, tally.Get("missing").IsZero())

		decimals := tally.Decimals()
		assert.True(t, decimal.RequireFromString("1500.55").Equal(decimals["Income"]))
	})

	t.Run("rejects unknown currency", func(t *testing.T) {
		_, err := NewTally("NOPE")
		assert.ErrorIs(t, err, ErrUnknownCurrency)
	})
}

func TestDisplay(t *testing.T) {
	m := NewFromDecimal(decimal.RequireFromString("1234.56"), USD)
	assert.Equal(t, "$1,234.56", m.Display())
}
