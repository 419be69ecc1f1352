package categorization

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
)

// table is the compiled matcher for one entry type. Pattern indexes follow
// rule order, so the smallest matched index is the first rule in the table.
type table struct {
	matcher    *ahocorasick.Matcher
	categories []string
	fallback   string
}

// Inferencer assigns a category to a description using the ordered keyword
// table of a RuleSet. It is a pure function of (description, type).
type Inferencer struct {
	// ahocorasick.Matcher keeps per-call hit state, so Match is serialized.
	mu      sync.Mutex
	inflow  table
	outflow table
}

// NewInferencer compiles rs into a matcher per entry type.
func NewInferencer(rs RuleSet) (*Inferencer, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &Inferencer{
		inflow:  compile(rs.Rules, ledger.Inflow, rs.InflowDefault),
		outflow: compile(rs.Rules, ledger.Outflow, rs.OutflowDefault),
	}, nil
}

// NewDefaultInferencer builds an Inferencer over DefaultRuleSet.
func NewDefaultInferencer() *Inferencer {
	inf, err := NewInferencer(DefaultRuleSet())
	if err != nil {
		panic(fmt.Sprintf("categorization: invalid default rule set: %v", err))
	}
	return inf
}

func compile(rules []Rule, typ ledger.EntryType, fallback string) table {
	seen := make(map[string]bool)
	var patterns [][]byte
	var categories []string

	for _, r := range rules {
		if r.Type != typ {
			continue
		}
		for _, kw := range r.Keywords {
			p := foldKeyword(kw)
			if strings.TrimSpace(p) == "" || seen[p] {
				continue
			}
			seen[p] = true
			patterns = append(patterns, []byte(p))
			categories = append(categories, r.Category)
		}
	}

	t := table{categories: categories, fallback: fallback}
	if len(patterns) > 0 {
		t.matcher = ahocorasick.NewMatcher(patterns)
	}
	return t
}

// foldKeyword folds a keyword but keeps its word-boundary padding.
func foldKeyword(kw string) string {
	f := normalizer.Fold(kw)
	if strings.HasPrefix(kw, " ") {
		f = " " + f
	}
	if strings.HasSuffix(kw, " ") {
		f += " "
	}
	return f
}

// Infer returns the category tag for description. Inflow and outflow use
// separate tables; when nothing matches the type's fallback tag is returned.
func (inf *Inferencer) Infer(description string, typ ledger.EntryType) string {
	t := &inf.outflow
	if typ == ledger.Inflow {
		t = &inf.inflow
	}
	if t.matcher == nil {
		return t.fallback
	}

	text := " " + normalizer.Fold(description) + " "

	inf.mu.Lock()
	hits := t.matcher.Match([]byte(text))
	inf.mu.Unlock()

	if len(hits) == 0 {
		return t.fallback
	}

	best := hits[0]
	for _, idx := range hits[1:] {
		if idx < best {
			best = idx
		}
	}
	return t.categories[best]
}

// Validate checks that every rule targets a known tag of the matching type.
func (rs RuleSet) Validate() error {
	if err := checkTag(rs.InflowDefault, ledger.Inflow); err != nil {
		return fmt.Errorf("inflow_default: %w", err)
	}
	if err := checkTag(rs.OutflowDefault, ledger.Outflow); err != nil {
		return fmt.Errorf("outflow_default: %w", err)
	}
	for i, r := range rs.Rules {
		if !r.Type.Valid() {
			return fmt.Errorf("rule %d: unknown type %q", i, r.Type)
		}
		if err := checkTag(r.Category, r.Type); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d (%s): no keywords", i, r.Category)
		}
	}
	return nil
}

func checkTag(tag string, typ ledger.EntryType) error {
	c, ok := Lookup(tag)
	if !ok {
		return fmt.Errorf("unknown category %q", tag)
	}
	if c.Type != typ {
		return fmt.Errorf("category %q is %s, not %s", tag, c.Type, typ)
	}
	return nil
}
