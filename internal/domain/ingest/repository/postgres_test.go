package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
)

func sampleDrafts() []ledger.EntryDraft {
	return []ledger.EntryDraft{
		{
			Type:        ledger.Outflow,
			Description: "Aluguel",
			Amount:      decimal.RequireFromString("1500"),
			Date:        "2024-03-01",
			Category:    "rent",
			Section:     "Fixed Expenses",
		},
		{
			Type:          ledger.Inflow,
			Description:   "Venda balcão",
			Amount:        decimal.RequireFromString("89.9"),
			Date:          "2024-03-04",
			DateDefaulted: true,
			PaymentMethod: ledger.PaymentPix,
		},
	}
}

func TestSaveEntries(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("commits every row in one transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO ledger_entries`).
			WithArgs(companyID, pgxmock.AnyArg(), "outflow", "Aluguel", "1500.00", "2024-03-01", false,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`INSERT INTO ledger_entries`).
			WithArgs(companyID, pgxmock.AnyArg(), "inflow", "Venda balcão", "89.90", "2024-03-04", true,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		repo := NewPostgresLedgerRepository(mock)
		n, err := repo.SaveEntries(ctx, companyID, nil, sampleDrafts())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when an insert fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO ledger_entries`).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`INSERT INTO ledger_entries`).
			WillReturnError(errors.New("check constraint violated"))
		mock.ExpectRollback()

		repo := NewPostgresLedgerRepository(mock)
		n, err := repo.SaveEntries(ctx, companyID, nil, sampleDrafts())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entry 1")
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch never opens a transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPostgresLedgerRepository(mock)
		_, err = repo.SaveEntries(ctx, companyID, nil, nil)
		assert.ErrorIs(t, err, ErrEmptyBatch)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	companyID := uuid.New()
	runID := uuid.New()
	createdAt := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO ingestion_runs`).
		WithArgs(companyID, "março.xlsx", "Orçamento", "sectioned_budget", "succeeded", 3,
			"150.00", "40.50", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(runID, createdAt))

	run := &Run{
		CompanyID:    companyID,
		Filename:     "março.xlsx",
		Sheet:        "Orçamento",
		Layout:       "sectioned_budget",
		Status:       RunSucceeded,
		EntryCount:   3,
		InflowTotal:  decimal.RequireFromString("150"),
		OutflowTotal: decimal.RequireFromString("40.5"),
	}

	repo := NewPostgresLedgerRepository(mock)
	require.NoError(t, repo.RecordRun(context.Background(), run))
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, createdAt, run.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	companyID := uuid.New()
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	failure := "no entries could be extracted"

	mock.ExpectQuery(`SELECT id, company_id, filename`).
		WithArgs(companyID, 50).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_id", "filename", "sheet", "layout", "status", "entry_count",
			"inflow_total", "outflow_total", "error_message", "created_at",
		}).AddRow(
			uuid.New(), companyID, "extrato.csv", "extrato", "tabular", "succeeded", 12,
			"980.00", "455.25", (*string)(nil), now,
		).AddRow(
			uuid.New(), companyID, "vazio.csv", "vazio", "tabular", "no_entries", 0,
			"0.00", "0.00", &failure, now.Add(-time.Hour),
		))

	repo := NewPostgresLedgerRepository(mock)
	runs, err := repo.ListRuns(context.Background(), companyID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, RunSucceeded, runs[0].Status)
	assert.True(t, runs[0].InflowTotal.Equal(decimal.RequireFromString("980")))
	assert.True(t, runs[0].OutflowTotal.Equal(decimal.RequireFromString("455.25")))
	assert.Nil(t, runs[0].Error)

	assert.Equal(t, RunNoEntries, runs[1].Status)
	require.NotNil(t, runs[1].Error)
	assert.Equal(t, failure, *runs[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}
