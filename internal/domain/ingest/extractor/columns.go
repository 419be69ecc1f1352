package extractor

import (
	"strings"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
)

// Role is the semantic meaning of a tabular column.
type Role string

const (
	RoleDescription   Role = "description"
	RoleAmount        Role = "amount"
	RoleType          Role = "type"
	RoleCategory      Role = "category"
	RoleDate          Role = "date"
	RolePaymentMethod Role = "paymentMethod"
	RoleIgnore        Role = "ignore"
)

const (
	headerScanRows        = 10
	minHeaderCells        = 2
	defaultDescriptionCol = 1
	defaultAmountCol      = 2
)

// ColumnRule assigns Role to a header equal to one of Exact or containing
// one of Contains. Patterns are folded.
type ColumnRule struct {
	Role     Role
	Exact    []string
	Contains []string
}

// DefaultColumnRules is checked in order; a column takes the first rule it
// matches whose role is still unassigned.
var DefaultColumnRules = []ColumnRule{
	{Role: RoleDescription, Contains: []string{"descri", "historico"}},
	{Role: RoleAmount, Exact: []string{"valor", "value", "amount", "montante"}},
	{Role: RoleType, Exact: []string{"tipo", "type"}},
	{Role: RoleCategory, Contains: []string{"categor"}},
	{Role: RoleDate, Exact: []string{"data", "date"}},
	{Role: RolePaymentMethod, Contains: []string{"forma", "pagamento", "payment"}},
}

func (r ColumnRule) matches(folded string) bool {
	for _, e := range r.Exact {
		if folded == e {
			return true
		}
	}
	return normalizer.ContainsAny(folded, r.Contains...)
}

// ColumnRoleMap is the per-call mapping from column index to role.
type ColumnRoleMap struct {
	byColumn map[int]Role
	byRole   map[Role]int
}

// Column returns the column holding role, if any.
func (m ColumnRoleMap) Column(role Role) (int, bool) {
	col, ok := m.byRole[role]
	return col, ok
}

// Role returns the role of col, RoleIgnore when unmapped.
func (m ColumnRoleMap) Role(col int) Role {
	if r, ok := m.byColumn[col]; ok {
		return r
	}
	return RoleIgnore
}

func (m ColumnRoleMap) assign(col int, role Role) {
	m.byColumn[col] = role
	m.byRole[role] = col
}

// FindHeaderRow returns the first of the leading rows with at least two
// non-empty text cells, or 0 when none qualifies.
func FindHeaderRow(grid ledger.Grid) int {
	rows := min(headerScanRows, len(grid))
	for i := 0; i < rows; i++ {
		count := 0
		for _, c := range grid[i] {
			if c.Kind == ledger.CellText && !c.IsEmpty() {
				count++
			}
		}
		if count >= minHeaderCells {
			return i
		}
	}
	return 0
}

// MapColumns builds the role map for a header row. Description and amount
// fall back to positional defaults when no header names them and the
// default column is still free.
func (x *Extractor) MapColumns(header ledger.Row) ColumnRoleMap {
	m := ColumnRoleMap{byColumn: make(map[int]Role), byRole: make(map[Role]int)}

	for col, cell := range header {
		folded := normalizer.Fold(cell.String())
		if folded == "" {
			continue
		}
		for _, rule := range x.columnRules {
			if _, taken := m.byRole[rule.Role]; taken {
				continue
			}
			if rule.matches(folded) {
				m.assign(col, rule.Role)
				break
			}
		}
	}

	m.assignDefault(RoleDescription, defaultDescriptionCol)
	m.assignDefault(RoleAmount, defaultAmountCol)
	return m
}

func (m ColumnRoleMap) assignDefault(role Role, col int) {
	if _, ok := m.byRole[role]; ok {
		return
	}
	if _, used := m.byColumn[col]; used {
		return
	}
	m.assign(col, role)
}

// normalizeCategory lowercases a source category and joins its words with
// underscores.
func normalizeCategory(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}
