package categorization

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRuleSet decodes a YAML rule table:
//
//	inflow_default: other_income
//	outflow_default: other_expenses
//	rules:
//	  - type: outflow
//	    category: energy
//	    keywords: [electric, energia]
func LoadRuleSet(r io.Reader) (RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return RuleSet{}, fmt.Errorf("failed to decode rule set: %w", err)
	}
	if rs.InflowDefault == "" {
		rs.InflowDefault = OtherIncome
	}
	if rs.OutflowDefault == "" {
		rs.OutflowDefault = OtherExpenses
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadRuleSetFile reads a rule table from path.
func LoadRuleSetFile(path string) (RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to open rule set: %w", err)
	}
	defer f.Close()
	return LoadRuleSet(f)
}
