// Package repository persists reviewed ledger drafts and the ingestion run log.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

// RunStatus describes how an ingestion attempt ended
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunNoEntries RunStatus = "no_entries"
	RunFailed    RunStatus = "failed"
)

// ErrEmptyBatch is returned when SaveEntries is called with nothing to save.
var ErrEmptyBatch = errors.New("no entries to save")

// Run is one row of the ingestion run log
type Run struct {
	ID           uuid.UUID       `json:"id"`
	CompanyID    uuid.UUID       `json:"companyId"`
	Filename     string          `json:"filename"`
	Sheet        string          `json:"sheet"`
	Layout       string          `json:"layout"`
	Status       RunStatus       `json:"status"`
	EntryCount   int             `json:"entryCount"`
	InflowTotal  decimal.Decimal `json:"inflowTotal"`
	OutflowTotal decimal.Decimal `json:"outflowTotal"`
	Error        *string         `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// DBTX is the subset of pgxpool.Pool the repository needs.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LedgerRepository defines persistence for ledger entries and runs
type LedgerRepository interface {
	SaveEntries(ctx context.Context, companyID uuid.UUID, runID *uuid.UUID, entries []ledger.EntryDraft) (int, error)
	RecordRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, companyID uuid.UUID, limit int) ([]*Run, error)
}

// PostgresLedgerRepository implements LedgerRepository using PostgreSQL
type PostgresLedgerRepository struct {
	db DBTX
}

// NewPostgresLedgerRepository creates a new PostgreSQL-backed ledger repository
func NewPostgresLedgerRepository(db DBTX) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

const insertEntryQuery = `
	INSERT INTO ledger_entries (
		company_id, run_id, entry_type, description, amount, entry_date,
		date_defaulted, category, section, payment_method
	) VALUES ($1, $2, $3, $4, $5::numeric, $6::date, $7, $8, $9, $10)
`

// SaveEntries inserts every draft in a single transaction. Either all rows
// land or none do.
func (r *PostgresLedgerRepository) SaveEntries(ctx context.Context, companyID uuid.UUID, runID *uuid.UUID, entries []ledger.EntryDraft) (int, error) {
	if len(entries) == 0 {
		return 0, ErrEmptyBatch
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, e := range entries {
		_, err := tx.Exec(ctx, insertEntryQuery,
			companyID,
			runID,
			string(e.Type),
			e.Description,
			e.Amount.StringFixed(2),
			e.Date,
			e.DateDefaulted,
			nullable(e.Category),
			nullable(e.Section),
			nullable(string(e.PaymentMethod)),
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit entries: %w", err)
	}
	return len(entries), nil
}

// RecordRun appends to the run log and fills in the generated id and timestamp.
func (r *PostgresLedgerRepository) RecordRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO ingestion_runs (
			company_id, filename, sheet, layout, status, entry_count,
			inflow_total, outflow_total, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		run.CompanyID,
		run.Filename,
		run.Sheet,
		run.Layout,
		string(run.Status),
		run.EntryCount,
		run.InflowTotal.StringFixed(2),
		run.OutflowTotal.StringFixed(2),
		run.Error,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record ingestion run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs for a company
func (r *PostgresLedgerRepository) ListRuns(ctx context.Context, companyID uuid.UUID, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, company_id, filename, sheet, layout, status, entry_count,
			inflow_total::text, outflow_total::text, error_message, created_at
		FROM ingestion_runs
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run             Run
			status          string
			inflow, outflow string
		)
		if err := rows.Scan(
			&run.ID, &run.CompanyID, &run.Filename, &run.Sheet, &run.Layout,
			&status, &run.EntryCount, &inflow, &outflow, &run.Error, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ingestion run: %w", err)
		}
		run.Status = RunStatus(status)
		if run.InflowTotal, err = decimal.NewFromString(inflow); err != nil {
			return nil, fmt.Errorf("failed to parse inflow total: %w", err)
		}
		if run.OutflowTotal, err = decimal.NewFromString(outflow); err != nil {
			return nil, fmt.Errorf("failed to parse outflow total: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingestion runs: %w", err)
	}
	return runs, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
