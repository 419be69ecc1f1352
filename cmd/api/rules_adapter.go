package main

import (
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/categorization"
)

// newInferencer builds the category inferencer from an edited rule file when
// one is configured, falling back to the built-in keyword tables.
func newInferencer(rulesFile string, logger *slog.Logger) (*categorization.Inferencer, error) {
	if rulesFile == "" {
		logger.Info("using built-in category rules")
		return categorization.NewDefaultInferencer(), nil
	}

	rs, err := categorization.LoadRuleSetFile(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load category rules: %w", err)
	}
	inf, err := categorization.NewInferencer(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to compile category rules: %w", err)
	}

	logger.Info("category rules loaded",
		slog.String("file", rulesFile),
		slog.Int("rules", len(rs.Rules)),
	)
	return inf, nil
}
