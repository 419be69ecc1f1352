package categorization

import "github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"

// Rule maps a set of keywords to a category for one entry type. Keywords are
// matched as substrings of the folded description padded with one space on
// each side, so " oi " only matches the whole word.
type Rule struct {
	Type     ledger.EntryType `yaml:"type"`
	Category string           `yaml:"category"`
	Keywords []string         `yaml:"keywords"`
}

// RuleSet is an ordered rule table. Earlier rules win over later ones.
type RuleSet struct {
	InflowDefault  string `yaml:"inflow_default"`
	OutflowDefault string `yaml:"outflow_default"`
	Rules          []Rule `yaml:"rules"`
}

// DefaultRuleSet returns the built-in keyword table.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		InflowDefault:  OtherIncome,
		OutflowDefault: OtherExpenses,
		Rules: []Rule{
			{Type: ledger.Inflow, Category: "sales", Keywords: []string{"sale", "venda"}},
			{Type: ledger.Inflow, Category: "services", Keywords: []string{"service", "servico", "prestacao"}},
			{Type: ledger.Inflow, Category: "freelance_income", Keywords: []string{"freelance", "freela", "gig", " bico "}},

			{Type: ledger.Outflow, Category: "energy", Keywords: []string{
				"electric", "eletric", "energia", "conta de luz", "enel", "cemig", "copel", "celesc",
				"eletropaulo", "coelba", "celpe", "neoenergia", "cpfl", "equatorial energia",
			}},
			{Type: ledger.Outflow, Category: "water", Keywords: []string{
				"water", "agua", "sabesp", "copasa", "cedae", "sanepar", "embasa", "compesa", "saneamento",
			}},
			{Type: ledger.Outflow, Category: "internet", Keywords: []string{
				"internet", "telecom", "telefone", "phone", "celular", "fibra", "broadband",
				" vivo ", " claro ", " tim ", " oi ", "comcast", "verizon",
			}},
			{Type: ledger.Outflow, Category: "rent", Keywords: []string{" rent", "aluguel", "condominio"}},
			{Type: ledger.Outflow, Category: "payroll", Keywords: []string{
				"salary", "salario", "employee", "funcionario", "folha de pagamento", "payroll", "pro-labore", "pro labore",
			}},
			{Type: ledger.Outflow, Category: "taxes", Keywords: []string{
				"tax ", "taxes", "imposto", "tributo", " das ", "simples nacional", "darf", "inss", "fgts",
				"icms", " iss ", "irpj", "iptu", "ipva",
			}},
			{Type: ledger.Outflow, Category: "transport", Keywords: []string{
				"uber", " 99 ", "99pop", "cabify", "taxi", "fuel", "gasolina", "combustivel", "etanol",
				"posto ", "estacionamento", "parking", "pedagio",
			}},
			{Type: ledger.Outflow, Category: "subscriptions", Keywords: []string{
				"subscription", "assinatura", "software", "saas", "netflix", "spotify", "adobe", "microsoft",
				"google workspace", "canva", "chatgpt", "openai", "notion", "slack", "zoom", "dropbox", "github",
			}},
			{Type: ledger.Outflow, Category: "marketing", Keywords: []string{
				"marketing", " ads ", "anuncio", "publicidade", "propaganda", "impulsionamento",
			}},
			{Type: ledger.Outflow, Category: "suppliers", Keywords: []string{"supplier", "fornecedor", "mercadoria"}},
		},
	}
}
