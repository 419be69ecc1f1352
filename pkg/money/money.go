// Package money provides currency-safe sums over ledger amounts using integer
// minor units, so totals never accumulate floating point error.
package money

import (
	"errors"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	BRL = "BRL"
	USD = "USD"
	EUR = "EUR"
)

// ErrUnknownCurrency is returned for codes go-money does not know.
var ErrUnknownCurrency = errors.New("unknown currency code")

// Money is an amount in one currency.
type Money struct {
	m *money.Money
}

// ValidCurrency reports whether code is a known ISO-4217 code.
func ValidCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

// NewFromDecimal converts a decimal amount to Money, rounding half away from
// zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(BRL)
	}
	cents := amount.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return &Money{m: money.New(cents, currency.Code)}
}

// Zero returns a zero amount in currencyCode.
func Zero(currencyCode string) *Money {
	return NewFromDecimal(decimal.Zero, currencyCode)
}

// Amount returns the value in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero reports whether the amount is zero.
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Add returns m + other. Currencies must match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	sum, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: sum}, nil
}

// Subtract returns m - other. Currencies must match.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if other == nil || other.m == nil {
		return m, nil
	}
	if m == nil || m.m == nil {
		return &Money{m: other.m.Negative()}, nil
	}
	diff, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: diff}, nil
}

// ToDecimal converts back to a decimal in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

// Display formats the amount with its currency symbol (e.g. "R$1.234,56").
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// Tally accumulates sums per key in a single currency.
type Tally struct {
	currency string
	sums     map[string]*Money
}

// NewTally returns an empty Tally for currencyCode.
func NewTally(currencyCode string) (*Tally, error) {
	if !ValidCurrency(currencyCode) {
		return nil, ErrUnknownCurrency
	}
	return &Tally{currency: currencyCode, sums: make(map[string]*Money)}, nil
}

// Add adds amount to key.
func (t *Tally) Add(key string, amount decimal.Decimal) {
	next := NewFromDecimal(amount, t.currency)
	if cur, ok := t.sums[key]; ok {
		// same currency by construction
		next, _ = cur.Add(next)
	}
	t.sums[key] = next
}

// Get returns the sum for key, zero when absent.
func (t *Tally) Get(key string) *Money {
	if m, ok := t.sums[key]; ok {
		return m
	}
	return Zero(t.currency)
}

// Keys returns the keys in sorted order.
func (t *Tally) Keys() []string {
	keys := make([]string, 0, len(t.sums))
	for k := range t.sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Decimals returns every sum as a decimal keyed like the tally.
func (t *Tally) Decimals() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(t.sums))
	for k, m := range t.sums {
		out[k] = m.ToDecimal()
	}
	return out
}

// Currency returns the tally currency.
func (t *Tally) Currency() string {
	return t.currency
}
