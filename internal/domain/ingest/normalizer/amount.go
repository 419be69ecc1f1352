package normalizer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

// amountPattern accepts a plain number or one with grouped thousands,
// optionally wrapped in parentheses, signed and marked with a currency symbol
// or code on either side. Dates and any other text fail to match.
var amountPattern = regexp.MustCompile(`(?i)^\(?[-+]?(?:r\$|us\$|\$|€|£|brl|usd|eur|gbp)?[-+]?` +
	`(\d+(?:[.,]\d+)?|\d{1,3}(?:\.\d{3})+(?:,\d+)?|\d{1,3}(?:,\d{3})+(?:\.\d+)?)` +
	`(?:brl|usd|eur|gbp|€)?-?\)?$`)

// ParseAmount converts a raw cell into a non-negative amount. Native numbers
// keep their magnitude; strings go through ParseAmountString; anything else
// yields zero, which callers treat as "drop this row".
func ParseAmount(c ledger.Cell) decimal.Decimal {
	switch c.Kind {
	case ledger.CellNumber:
		return decimal.NewFromFloat(c.Number).Abs()
	case ledger.CellText:
		return ParseAmountString(c.Text)
	default:
		return decimal.Zero
	}
}

// ParseAmountString parses monetary text in mixed locale formats.
//
//	"R$ 1.234,56" -> 1234.56
//	"$1,234.56"   -> 1234.56
//	"150,00"      -> 150
//	"1.500"       -> 1500
//	"-80"         -> 80
//	"abc"         -> 0
//	"01/03/2024"  -> 0
//
// When both separators appear the rightmost one is the decimal mark. A lone
// comma is a decimal comma. A lone dot followed by exactly three digits, or
// repeated dots, are thousands separators.
func ParseAmountString(s string) decimal.Decimal {
	compact := strings.Join(strings.Fields(s), "")
	m := amountPattern.FindStringSubmatch(compact)
	if m == nil {
		return decimal.Zero
	}
	cleaned := m[1]

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(cleaned, ".") > 1 || len(cleaned)-lastDot-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d.Abs()
}
