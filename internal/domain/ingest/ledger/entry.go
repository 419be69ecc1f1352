package ledger

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// EntryType carries the direction of a ledger entry. Amounts are always
// non-negative; the sign lives here.
type EntryType string

const (
	Inflow  EntryType = "inflow"
	Outflow EntryType = "outflow"
)

// Valid reports whether t is one of the known directions.
func (t EntryType) Valid() bool {
	return t == Inflow || t == Outflow
}

// PaymentMethod is the canonical payment instrument of an entry.
type PaymentMethod string

const (
	PaymentPix      PaymentMethod = "pix"
	PaymentDebit    PaymentMethod = "debit"
	PaymentCredit   PaymentMethod = "credit"
	PaymentCash     PaymentMethod = "cash"
	PaymentBoleto   PaymentMethod = "boleto"
	PaymentVoucher  PaymentMethod = "voucher"
	PaymentTransfer PaymentMethod = "transfer"
)

// paymentAliases maps lowercased source spellings to canonical methods.
var paymentAliases = map[string]PaymentMethod{
	"pix": PaymentPix,

	"debit":            PaymentDebit,
	"debito":           PaymentDebit,
	"débito":           PaymentDebit,
	"cartao de debito": PaymentDebit,
	"cartão de débito": PaymentDebit,

	"credit":            PaymentCredit,
	"credito":           PaymentCredit,
	"crédito":           PaymentCredit,
	"cartao de credito": PaymentCredit,
	"cartão de crédito": PaymentCredit,

	"cash":     PaymentCash,
	"dinheiro": PaymentCash,

	"boleto": PaymentBoleto,

	"voucher": PaymentVoucher,
	"vale":    PaymentVoucher,

	"transfer":      PaymentTransfer,
	"transferencia": PaymentTransfer,
	"transferência": PaymentTransfer,
	"ted":           PaymentTransfer,
	"doc":           PaymentTransfer,
}

// ParsePaymentMethod lowercases and trims s, mapping known aliases onto the
// canonical set. Unknown values are returned lowercased as-is.
func ParsePaymentMethod(s string) PaymentMethod {
	v := strings.ToLower(strings.TrimSpace(s))
	if m, ok := paymentAliases[v]; ok {
		return m
	}
	return PaymentMethod(v)
}

// EntryDraft is a normalized ledger entry awaiting review and persistence.
type EntryDraft struct {
	Type          EntryType       `json:"type" csv:"type"`
	Description   string          `json:"description" csv:"description"`
	Amount        decimal.Decimal `json:"amount" csv:"-"`
	Date          string          `json:"date" csv:"date"`
	DateDefaulted bool            `json:"dateDefaulted" csv:"date_defaulted"`
	Category      string          `json:"category,omitempty" csv:"category"`
	Section       string          `json:"section,omitempty" csv:"section"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty" csv:"payment_method"`
}

// Admissible reports whether the draft satisfies the admission rules:
// a known type, a positive amount and a description longer than one character.
func (e EntryDraft) Admissible() bool {
	return e.Type.Valid() &&
		e.Amount.IsPositive() &&
		utf8.RuneCountInString(strings.TrimSpace(e.Description)) > 1
}
