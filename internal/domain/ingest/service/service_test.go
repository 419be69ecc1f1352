package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/assembler"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/categorization"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/extractor"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/layout"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/reader"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/repository"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

// MockLedgerRepository records calls made by the service
type MockLedgerRepository struct {
	mu           sync.Mutex
	runs         []*repository.Run
	saved        []ledger.EntryDraft
	savedCompany uuid.UUID
	saveErr      error
	runErr       error
}

func (m *MockLedgerRepository) SaveEntries(ctx context.Context, companyID uuid.UUID, runID *uuid.UUID, entries []ledger.EntryDraft) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	m.savedCompany = companyID
	m.saved = append(m.saved, entries...)
	return len(entries), nil
}

func (m *MockLedgerRepository) RecordRun(ctx context.Context, run *repository.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runErr != nil {
		return m.runErr
	}
	run.ID = uuid.New()
	m.runs = append(m.runs, run)
	return nil
}

func (m *MockLedgerRepository) ListRuns(ctx context.Context, companyID uuid.UUID, limit int) ([]*repository.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.Run
	for _, r := range m.runs {
		if r.CompanyID == companyID {
			out = append(out, r)
		}
	}
	return out, nil
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC) }

func newTestService(t *testing.T, repo repository.LedgerRepository) (*IngestService, *Metrics) {
	t.Helper()

	ext := extractor.New(categorization.NewDefaultInferencer(), extractor.WithClock(fixedNow))
	asm, err := assembler.New("BRL")
	require.NoError(t, err)
	uploads, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	documents, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewIngestService(DefaultConfig(), layout.New(nil), ext, asm, repo, logger).
		WithUploadStorage(uploads).
		WithDocumentStorage(documents).
		WithMetrics(metrics).
		WithClock(fixedNow)
	return svc, metrics
}

func buildWorkbook(t *testing.T, sheets map[string][][]interface{}, order ...string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			for c, v := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, cell, v))
			}
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

const statementCSV = "Data;Descrição;Valor;Tipo\n" +
	"05/03/2024;Venda balcão;150,00;Entrada\n" +
	"06/03/2024;Conta de luz;89,90;Saída\n" +
	";;;\n"

func budgetWorkbook(t *testing.T) []byte {
	return buildWorkbook(t, map[string][][]interface{}{
		"Extrato": {
			{"Data", "Descrição", "Valor"},
			{"05/03/2024", "Venda", 10},
		},
		"Orçamento": {
			{"Gastos Fixos", "Valor", "", "Gastos Variáveis", "Valor"},
			{"Aluguel", 1200, "", "Material", 80},
			{"Internet", 300, "", "", ""},
		},
	}, "Extrato", "Orçamento")
}

func TestIngest_TabularCSV(t *testing.T) {
	repo := &MockLedgerRepository{}
	svc, metrics := newTestService(t, repo)
	companyID := uuid.New()

	out, err := svc.Ingest(context.Background(), IngestRequest{
		CompanyID:   companyID,
		Filename:    "extrato.csv",
		ContentType: "text/csv",
		Data:        []byte(statementCSV),
	})
	require.NoError(t, err)
	require.False(t, out.RequiresSelection)
	assert.Equal(t, layout.Tabular, out.Layout)

	res := out.Result
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "extrato", res.ProcessedSheet)
	assert.Equal(t, ledger.Inflow, res.Entries[0].Type)
	assert.Equal(t, "2024-03-05", res.Entries[0].Date)
	assert.False(t, res.Entries[0].DateDefaulted)
	assert.Equal(t, ledger.Outflow, res.Entries[1].Type)
	assert.True(t, res.Summary.InflowSum.Equal(decimal.RequireFromString("150")))
	assert.True(t, res.Summary.OutflowSum.Equal(decimal.RequireFromString("89.90")))

	t.Run("records a run", func(t *testing.T) {
		require.Len(t, repo.runs, 1)
		run := repo.runs[0]
		assert.Equal(t, repository.RunSucceeded, run.Status)
		assert.Equal(t, "extrato.csv", run.Filename)
		assert.Equal(t, "tabular", run.Layout)
		assert.Equal(t, 2, run.EntryCount)
	})

	t.Run("counts metrics", func(t *testing.T) {
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ingestions.WithLabelValues("tabular", outcomeSuccess)))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.entries.WithLabelValues("inflow")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.entries.WithLabelValues("outflow")))
	})
}

func TestIngest_SheetSelectionHandoff(t *testing.T) {
	repo := &MockLedgerRepository{}
	svc, _ := newTestService(t, repo)
	companyID := uuid.New()
	ctx := context.Background()

	first, err := svc.Ingest(ctx, IngestRequest{
		CompanyID:      companyID,
		Filename:       "financas.xlsx",
		Data:           budgetWorkbook(t),
		ReferenceMonth: "2024-03",
	})
	require.NoError(t, err)
	require.True(t, first.RequiresSelection)
	assert.Equal(t, []string{"Extrato", "Orçamento"}, first.Sheets)
	assert.True(t, first.LooksLikeBudget)
	assert.NotEmpty(t, first.Message)
	require.NotNil(t, first.UploadID)
	assert.Nil(t, first.Result)
	assert.Empty(t, repo.runs)

	second, err := svc.Ingest(ctx, IngestRequest{
		CompanyID:      companyID,
		UploadID:       first.UploadID,
		SheetName:      "orçamento",
		ReferenceMonth: "2024-03",
	})
	require.NoError(t, err)
	require.False(t, second.RequiresSelection)
	assert.Equal(t, layout.SectionedBudget, second.Layout)
	assert.Equal(t, "Orçamento", second.Result.ProcessedSheet)
	assert.Equal(t, []string{"Extrato", "Orçamento"}, second.Result.SheetsAvailable)

	require.Len(t, second.Result.Entries, 3)
	for _, e := range second.Result.Entries {
		assert.Equal(t, "2024-03-01", e.Date)
		assert.True(t, e.DateDefaulted)
		assert.Equal(t, ledger.Outflow, e.Type)
	}
	assert.True(t, second.Result.Summary.OutflowSum.Equal(decimal.RequireFromString("1580")))

	require.Len(t, repo.runs, 1)
	assert.Equal(t, "financas.xlsx", repo.runs[0].Filename)

	t.Run("upload is consumed", func(t *testing.T) {
		_, err := svc.Ingest(ctx, IngestRequest{
			CompanyID: companyID,
			UploadID:  first.UploadID,
			SheetName: "Extrato",
		})
		assert.ErrorIs(t, err, ErrUploadNotFound)
	})
}

func TestIngest_SelectedSheetOnFirstCall(t *testing.T) {
	svc, _ := newTestService(t, nil)

	out, err := svc.Ingest(context.Background(), IngestRequest{
		Filename:  "financas.xlsx",
		Data:      budgetWorkbook(t),
		SheetName: "Extrato",
	})
	require.NoError(t, err)
	assert.Equal(t, layout.Tabular, out.Layout)
	require.Len(t, out.Result.Entries, 1)
	assert.Equal(t, "Venda", out.Result.Entries[0].Description)

	t.Run("unknown sheet", func(t *testing.T) {
		_, err := svc.Ingest(context.Background(), IngestRequest{
			Filename:  "financas.xlsx",
			Data:      budgetWorkbook(t),
			SheetName: "Balanço 2019",
		})
		assert.ErrorIs(t, err, reader.ErrSheetNotFound)
	})
}

func TestIngest_Failures(t *testing.T) {
	repo := &MockLedgerRepository{}
	svc, metrics := newTestService(t, repo)
	companyID := uuid.New()
	ctx := context.Background()

	t.Run("no entries carries sample rows", func(t *testing.T) {
		_, err := svc.Ingest(ctx, IngestRequest{
			CompanyID: companyID,
			Filename:  "notas.csv",
			Data:      []byte("Nome;Observação\nfoo;bar\n"),
		})
		require.ErrorIs(t, err, assembler.ErrNoEntriesExtracted)

		var noEntries *assembler.NoEntriesError
		require.True(t, errors.As(err, &noEntries))
		assert.Equal(t, [][]string{{"Nome", "Observação"}, {"foo", "bar"}}, noEntries.SampleRows)

		require.Len(t, repo.runs, 1)
		assert.Equal(t, repository.RunNoEntries, repo.runs[0].Status)
		require.NotNil(t, repo.runs[0].Error)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ingestions.WithLabelValues("tabular", outcomeNoEntries)))
	})

	t.Run("reader errors pass through", func(t *testing.T) {
		_, err := svc.Ingest(ctx, IngestRequest{Filename: "nota.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
		assert.ErrorIs(t, err, reader.ErrUnsupportedFileType)

		big := bytes.Repeat([]byte("a"), int(reader.MaxSpreadsheetBytes)+1)
		_, err = svc.Ingest(ctx, IngestRequest{Filename: "big.csv", Data: big})
		assert.ErrorIs(t, err, reader.ErrFileTooLarge)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := svc.Ingest(ctx, IngestRequest{Filename: "x.csv"})
		assert.ErrorIs(t, err, ErrMissingFile)
	})

	t.Run("bad reference month", func(t *testing.T) {
		_, err := svc.Ingest(ctx, IngestRequest{Filename: "x.csv", Data: []byte(statementCSV), ReferenceMonth: "março"})
		assert.ErrorIs(t, err, ErrInvalidReference)
	})

	t.Run("unknown upload", func(t *testing.T) {
		id := uuid.New()
		_, err := svc.Ingest(ctx, IngestRequest{CompanyID: companyID, UploadID: &id})
		assert.ErrorIs(t, err, ErrUploadNotFound)
	})

	t.Run("run log failure does not fail ingestion", func(t *testing.T) {
		failing := &MockLedgerRepository{runErr: errors.New("connection refused")}
		svc, _ := newTestService(t, failing)
		out, err := svc.Ingest(ctx, IngestRequest{CompanyID: companyID, Filename: "extrato.csv", Data: []byte(statementCSV)})
		require.NoError(t, err)
		assert.Len(t, out.Result.Entries, 2)
	})
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	valid := ledger.EntryDraft{
		Type:          ledger.Outflow,
		Description:   "Conta de luz",
		Amount:        decimal.RequireFromString("89.90"),
		Date:          "2024-03-06",
		Category:      "energy",
		PaymentMethod: "Débito",
	}

	t.Run("persists reviewed drafts", func(t *testing.T) {
		repo := &MockLedgerRepository{}
		svc, metrics := newTestService(t, repo)

		n, err := svc.Commit(ctx, companyID, []ledger.EntryDraft{valid})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, companyID, repo.savedCompany)
		require.Len(t, repo.saved, 1)
		assert.Equal(t, ledger.PaymentDebit, repo.saved[0].PaymentMethod)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.committed))
	})

	tests := []struct {
		name    string
		company uuid.UUID
		mutate  func(e *ledger.EntryDraft)
		want    error
	}{
		{"missing company", uuid.Nil, func(e *ledger.EntryDraft) {}, ErrMissingCompany},
		{"zero amount", companyID, func(e *ledger.EntryDraft) { e.Amount = decimal.Zero }, ErrInvalidEntry},
		{"one letter description", companyID, func(e *ledger.EntryDraft) { e.Description = "x" }, ErrInvalidEntry},
		{"unknown type", companyID, func(e *ledger.EntryDraft) { e.Type = "transfer" }, ErrInvalidEntry},
		{"non iso date", companyID, func(e *ledger.EntryDraft) { e.Date = "06/03/2024" }, ErrInvalidEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockLedgerRepository{}
			svc, _ := newTestService(t, repo)

			e := valid
			tt.mutate(&e)
			_, err := svc.Commit(ctx, tt.company, []ledger.EntryDraft{valid, e})
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, repo.saved)
		})
	}

	t.Run("empty batch", func(t *testing.T) {
		svc, _ := newTestService(t, &MockLedgerRepository{})
		_, err := svc.Commit(ctx, companyID, nil)
		assert.ErrorIs(t, err, ErrInvalidEntry)
	})

	t.Run("repository error", func(t *testing.T) {
		svc, _ := newTestService(t, &MockLedgerRepository{saveErr: errors.New("deadlock detected")})
		_, err := svc.Commit(ctx, companyID, []ledger.EntryDraft{valid})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deadlock detected")
	})

	t.Run("without persistence", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		_, err := svc.Commit(ctx, companyID, []ledger.EntryDraft{valid})
		assert.ErrorIs(t, err, ErrPersistenceDisabled)
	})
}

func TestListRuns(t *testing.T) {
	repo := &MockLedgerRepository{}
	svc, _ := newTestService(t, repo)
	companyID := uuid.New()
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestRequest{CompanyID: companyID, Filename: "extrato.csv", Data: []byte(statementCSV)})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, IngestRequest{CompanyID: uuid.New(), Filename: "outro.csv", Data: []byte(statementCSV)})
	require.NoError(t, err)

	runs, err := svc.ListRuns(ctx, companyID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "extrato.csv", runs[0].Filename)

	_, err = svc.ListRuns(ctx, uuid.Nil, 10)
	assert.ErrorIs(t, err, ErrMissingCompany)
}

func TestDocuments(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	companyID := uuid.New()

	info, err := svc.UploadDocument(ctx, companyID, "nota-fiscal.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)

	docs, err := svc.ListDocuments(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "nota-fiscal.pdf", docs[0].Name)

	t.Run("too large", func(t *testing.T) {
		big := bytes.NewReader(make([]byte, reader.MaxDocumentBytes+1))
		_, err := svc.UploadDocument(ctx, companyID, "scan.png", "image/png", big)
		assert.ErrorIs(t, err, reader.ErrFileTooLarge)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := svc.UploadDocument(ctx, companyID, "setup.exe", "application/octet-stream", strings.NewReader("MZ"))
		assert.ErrorIs(t, err, reader.ErrUnsupportedFileType)
	})

	t.Run("missing company", func(t *testing.T) {
		_, err := svc.UploadDocument(ctx, uuid.Nil, "scan.png", "image/png", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrMissingCompany)
	})
}

func TestSweepUploads(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	out, err := svc.Ingest(ctx, IngestRequest{Filename: "financas.xlsx", Data: budgetWorkbook(t)})
	require.NoError(t, err)
	require.NotNil(t, out.UploadID)

	removed, err := svc.SweepUploads(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	svc.WithClock(func() time.Time { return time.Now().Add(48 * time.Hour) })
	removed, err = svc.SweepUploads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
