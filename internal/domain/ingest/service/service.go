// Package service orchestrates one ingestion: read the upload, classify the
// chosen sheet, extract drafts and assemble the result.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/assembler"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/extractor"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/layout"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/reader"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/repository"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/service"

var (
	ErrUploadNotFound      = errors.New("upload not found or expired")
	ErrMissingFile         = errors.New("no file or upload id provided")
	ErrMissingCompany      = errors.New("company id is required")
	ErrInvalidEntry        = errors.New("invalid ledger entry")
	ErrInvalidReference    = errors.New("invalid reference month")
	ErrUploadsDisabled     = errors.New("upload storage is not configured")
	ErrPersistenceDisabled = errors.New("ledger persistence is not configured")
)

// Config holds the limits applied by the service.
type Config struct {
	MaxSpreadsheetBytes int64
	MaxDocumentBytes    int64
	UploadRetention     time.Duration
}

// DefaultConfig returns the standard upload limits.
func DefaultConfig() Config {
	return Config{
		MaxSpreadsheetBytes: reader.MaxSpreadsheetBytes,
		MaxDocumentBytes:    reader.MaxDocumentBytes,
		UploadRetention:     24 * time.Hour,
	}
}

// IngestRequest is one call of the ingestion entry point. Either Data or
// UploadID must be set.
type IngestRequest struct {
	CompanyID      uuid.UUID
	Filename       string
	ContentType    string
	Data           []byte
	UploadID       *uuid.UUID
	SheetName      string
	ReferenceMonth string
}

// IngestOutcome is either a sheet-selection prompt or an assembled result.
type IngestOutcome struct {
	RequiresSelection bool
	Sheets            []string
	LooksLikeBudget   bool
	Message           string
	UploadID          *uuid.UUID

	Layout layout.Kind
	Result *assembler.Result
}

// IngestService orchestrates file ingestion
type IngestService struct {
	cfg        Config
	classifier *layout.Classifier
	extractor  *extractor.Extractor
	assembler  *assembler.Assembler
	repo       repository.LedgerRepository
	uploads    storage.Storage
	documents  storage.Storage
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// NewIngestService creates a new ingestion service
func NewIngestService(
	cfg Config,
	classifier *layout.Classifier,
	ext *extractor.Extractor,
	asm *assembler.Assembler,
	repo repository.LedgerRepository,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		cfg:        cfg,
		classifier: classifier,
		extractor:  ext,
		assembler:  asm,
		repo:       repo,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
		now:        time.Now,
	}
}

// WithUploadStorage enables the sheet-selection handoff
func (s *IngestService) WithUploadStorage(st storage.Storage) *IngestService {
	s.uploads = st
	return s
}

// WithDocumentStorage enables generic document uploads
func (s *IngestService) WithDocumentStorage(st storage.Storage) *IngestService {
	s.documents = st
	return s
}

// WithMetrics records Prometheus metrics for every ingestion
func (s *IngestService) WithMetrics(m *Metrics) *IngestService {
	s.metrics = m
	return s
}

// WithClock overrides time.Now
func (s *IngestService) WithClock(now func() time.Time) *IngestService {
	s.now = now
	return s
}

// Ingest runs the pipeline over one upload.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestOutcome, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "ingest.Ingest", trace.WithAttributes(
		attribute.String("ingest.filename", req.Filename),
		attribute.String("ingest.company_id", req.CompanyID.String()),
	))
	defer span.End()

	reference, err := normalizer.ParseReferenceMonth(req.ReferenceMonth, s.now())
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("%w: %v", ErrInvalidReference, err))
	}

	src, err := s.source(ctx, req)
	if err != nil {
		return nil, s.fail(span, err)
	}
	req.Filename = src.Filename
	s.metrics.observeUpload(len(src.Data))

	wb, err := s.read(ctx, src)
	if err != nil {
		s.metrics.observeIngestion("", outcomeRejected, started)
		return nil, s.fail(span, err)
	}

	if wb.NeedsSelection() && req.SheetName == "" {
		outcome, err := s.promptSelection(ctx, req, src, wb)
		if err != nil {
			return nil, s.fail(span, err)
		}
		s.metrics.observeIngestion("", outcomeSelection, started)
		return outcome, nil
	}

	sheet, grid, err := pickSheet(wb, req.SheetName)
	if err != nil {
		s.metrics.observeIngestion("", outcomeRejected, started)
		return nil, s.fail(span, err)
	}

	kind := s.classify(ctx, grid)
	entries := s.extract(ctx, kind, grid, reference)

	result, err := s.assembler.Assemble(entries, grid, sheet, wb.Sheets())
	if err != nil {
		if errors.Is(err, assembler.ErrNoEntriesExtracted) {
			s.metrics.observeIngestion(string(kind), outcomeNoEntries, started)
			s.recordRun(ctx, req, sheet, kind, nil, err)
		}
		return nil, s.fail(span, err)
	}

	s.metrics.observeIngestion(string(kind), outcomeSuccess, started)
	s.metrics.observeEntries(string(ledger.Inflow), result.Summary.InflowCount)
	s.metrics.observeEntries(string(ledger.Outflow), result.Summary.OutflowCount)
	s.recordRun(ctx, req, sheet, kind, result, nil)

	if req.UploadID != nil && s.uploads != nil {
		if err := s.uploads.Delete(ctx, req.CompanyID, *req.UploadID); err != nil {
			s.logger.Warn("failed to delete consumed upload",
				slog.String("upload_id", req.UploadID.String()),
				slog.Any("error", err),
			)
		}
	}

	span.SetAttributes(
		attribute.String("ingest.layout", string(kind)),
		attribute.String("ingest.sheet", sheet),
		attribute.Int("ingest.entries", len(result.Entries)),
	)
	s.logger.Info("ingestion completed",
		slog.String("filename", src.Filename),
		slog.String("sheet", sheet),
		slog.String("layout", string(kind)),
		slog.Int("entries", len(result.Entries)),
	)

	return &IngestOutcome{
		Layout: kind,
		Result: result,
		Sheets: result.SheetsAvailable,
	}, nil
}

// source returns the upload bytes, fetching them from upload storage on the
// second call of a sheet-selection handoff.
func (s *IngestService) source(ctx context.Context, req IngestRequest) (reader.Source, error) {
	if req.UploadID == nil {
		if req.Data == nil {
			return reader.Source{}, ErrMissingFile
		}
		return reader.Source{Filename: req.Filename, ContentType: req.ContentType, Data: req.Data}, nil
	}
	if s.uploads == nil {
		return reader.Source{}, ErrUploadsDisabled
	}

	rc, info, err := s.uploads.Download(ctx, req.CompanyID, *req.UploadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return reader.Source{}, fmt.Errorf("%w: %s", ErrUploadNotFound, req.UploadID)
		}
		return reader.Source{}, fmt.Errorf("failed to load upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.cfg.MaxSpreadsheetBytes+1))
	if err != nil {
		return reader.Source{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return reader.Source{Filename: info.Name, ContentType: info.ContentType, Data: data}, nil
}

func (s *IngestService) read(ctx context.Context, src reader.Source) (*reader.Workbook, error) {
	_, span := s.tracer.Start(ctx, "ingest.read")
	defer span.End()

	wb, err := reader.Read(src, s.cfg.MaxSpreadsheetBytes)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ingest.format", string(wb.Format)),
		attribute.Int("ingest.sheets", len(wb.Sheets())),
	)
	return wb, nil
}

// promptSelection stores the upload for the follow-up call and reports the
// sheets to choose from.
func (s *IngestService) promptSelection(ctx context.Context, req IngestRequest, src reader.Source, wb *reader.Workbook) (*IngestOutcome, error) {
	sheets := wb.Sheets()
	outcome := &IngestOutcome{
		RequiresSelection: true,
		Sheets:            sheets,
		Message:           fmt.Sprintf("The workbook has %d sheets. Choose the sheet to import.", len(sheets)),
		UploadID:          req.UploadID,
	}
	for _, name := range sheets {
		grid, err := wb.Grid(name)
		if err != nil {
			return nil, err
		}
		if s.classifier.Classify(grid) == layout.SectionedBudget {
			outcome.LooksLikeBudget = true
			break
		}
	}

	if outcome.UploadID == nil && s.uploads != nil {
		info, err := s.uploads.Upload(ctx, req.CompanyID, src.Filename, src.ContentType, bytes.NewReader(src.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to store upload: %w", err)
		}
		outcome.UploadID = &info.ID
	}
	return outcome, nil
}

func pickSheet(wb *reader.Workbook, requested string) (string, ledger.Grid, error) {
	if requested == "" {
		name, grid := wb.First()
		return name, grid, nil
	}
	name, err := wb.ResolveSheet(requested)
	if err != nil {
		return "", nil, err
	}
	grid, err := wb.Grid(name)
	if err != nil {
		return "", nil, err
	}
	return name, grid, nil
}

func (s *IngestService) classify(ctx context.Context, grid ledger.Grid) layout.Kind {
	_, span := s.tracer.Start(ctx, "ingest.classify")
	defer span.End()

	kind := s.classifier.Classify(grid)
	span.SetAttributes(attribute.String("ingest.layout", string(kind)))
	return kind
}

func (s *IngestService) extract(ctx context.Context, kind layout.Kind, grid ledger.Grid, reference time.Time) []ledger.EntryDraft {
	ctx, span := s.tracer.Start(ctx, "ingest.extract")
	defer span.End()

	var entries []ledger.EntryDraft
	if kind == layout.SectionedBudget {
		sections := s.extractor.DiscoverSections(grid)
		if len(sections) == 0 {
			s.logger.InfoContext(ctx, "no budget section headers in leading rows, scanning whole grid")
		}
		span.SetAttributes(attribute.Int("ingest.sections", len(sections)))
		entries = s.extractor.ExtractBudget(grid, reference)
	} else {
		entries = s.extractor.ExtractTabular(grid)
	}
	span.SetAttributes(attribute.Int("ingest.candidates", len(entries)))
	return entries
}

// recordRun appends to the run log. Failures are logged, never returned:
// the caller already has its drafts.
func (s *IngestService) recordRun(ctx context.Context, req IngestRequest, sheet string, kind layout.Kind, result *assembler.Result, cause error) {
	if s.repo == nil || req.CompanyID == uuid.Nil {
		return
	}

	run := &repository.Run{
		CompanyID: req.CompanyID,
		Filename:  req.Filename,
		Sheet:     sheet,
		Layout:    string(kind),
		Status:    repository.RunSucceeded,
	}
	if result != nil {
		run.EntryCount = result.Summary.Total
		run.InflowTotal = result.Summary.InflowSum
		run.OutflowTotal = result.Summary.OutflowSum
	}
	if cause != nil {
		msg := cause.Error()
		run.Status = repository.RunNoEntries
		run.Error = &msg
	}

	if err := s.repo.RecordRun(ctx, run); err != nil {
		s.logger.Warn("failed to record ingestion run",
			slog.String("company_id", req.CompanyID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *IngestService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Commit persists reviewed drafts for a company in one transaction. Every
// draft is checked again before anything is written.
func (s *IngestService) Commit(ctx context.Context, companyID uuid.UUID, entries []ledger.EntryDraft) (int, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.Commit")
	defer span.End()

	if s.repo == nil {
		return 0, s.fail(span, ErrPersistenceDisabled)
	}
	if companyID == uuid.Nil {
		return 0, s.fail(span, ErrMissingCompany)
	}
	if len(entries) == 0 {
		return 0, s.fail(span, fmt.Errorf("%w: no entries", ErrInvalidEntry))
	}

	clean := make([]ledger.EntryDraft, len(entries))
	for i, e := range entries {
		if !e.Admissible() {
			return 0, s.fail(span, fmt.Errorf("%w: entry %d needs a type, a positive amount and a description", ErrInvalidEntry, i))
		}
		if _, err := time.Parse(normalizer.ISODate, e.Date); err != nil {
			return 0, s.fail(span, fmt.Errorf("%w: entry %d has date %q, expected YYYY-MM-DD", ErrInvalidEntry, i, e.Date))
		}
		if e.PaymentMethod != "" {
			e.PaymentMethod = ledger.ParsePaymentMethod(string(e.PaymentMethod))
		}
		clean[i] = e
	}

	n, err := s.repo.SaveEntries(ctx, companyID, nil, clean)
	if err != nil {
		return 0, s.fail(span, fmt.Errorf("failed to commit entries: %w", err))
	}
	s.metrics.observeCommit(n)
	s.logger.Info("ledger entries committed",
		slog.String("company_id", companyID.String()),
		slog.Int("entries", n),
	)
	return n, nil
}

// ListRuns returns the recent ingestion runs of a company
func (s *IngestService) ListRuns(ctx context.Context, companyID uuid.UUID, limit int) ([]*repository.Run, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	if companyID == uuid.Nil {
		return nil, ErrMissingCompany
	}
	runs, err := s.repo.ListRuns(ctx, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// SweepUploads removes pending uploads older than the retention window.
func (s *IngestService) SweepUploads(ctx context.Context) (int, error) {
	if s.uploads == nil {
		return 0, nil
	}
	return s.uploads.Sweep(ctx, s.now().Add(-s.cfg.UploadRetention))
}
