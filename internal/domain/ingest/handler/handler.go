// Package handler exposes the ingestion pipeline over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/assembler"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/categorization"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/ledger"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/reader"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/repository"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/service"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

func init() {
	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// multipartOverhead is allowed on top of the file limit for form fields and
// part headers.
const multipartOverhead = 1 << 20

// IngestService is what the handler needs from the service layer
type IngestService interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*service.IngestOutcome, error)
	Commit(ctx context.Context, companyID uuid.UUID, entries []ledger.EntryDraft) (int, error)
	ListRuns(ctx context.Context, companyID uuid.UUID, limit int) ([]*repository.Run, error)
	UploadDocument(ctx context.Context, companyID uuid.UUID, filename, contentType string, r io.Reader) (*storage.FileInfo, error)
	ListDocuments(ctx context.Context, companyID uuid.UUID) ([]*storage.FileInfo, error)
}

// Limits bounds request bodies
type Limits struct {
	MaxSpreadsheetBytes int64
	MaxDocumentBytes    int64
}

// IngestHandler implements the ingestion HTTP API
type IngestHandler struct {
	svc    IngestService
	limits Limits
	logger *slog.Logger
}

// NewIngestHandler creates a new ingestion handler
func NewIngestHandler(svc IngestService, limits Limits, logger *slog.Logger) *IngestHandler {
	if limits.MaxSpreadsheetBytes <= 0 {
		limits.MaxSpreadsheetBytes = reader.MaxSpreadsheetBytes
	}
	if limits.MaxDocumentBytes <= 0 {
		limits.MaxDocumentBytes = reader.MaxDocumentBytes
	}
	return &IngestHandler{svc: svc, limits: limits, logger: logger}
}

// Register mounts every route on mux.
func (h *IngestHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ingestions", h.Ingest)
	mux.HandleFunc("GET /api/v1/ingestions", h.ListRuns)
	mux.HandleFunc("POST /api/v1/ingestions/commit", h.Commit)
	mux.HandleFunc("POST /api/v1/ingestions/export", h.Export)
	mux.HandleFunc("POST /api/v1/documents", h.UploadDocument)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/categories", h.ListCategories)
	mux.HandleFunc("GET /healthz", h.Health)
}

type selectionResponse struct {
	RequiresSelection bool       `json:"requiresSelection"`
	Sheets            []string   `json:"sheets"`
	LooksLikeBudget   bool       `json:"looksLikeBudgetLayout"`
	Message           string     `json:"message"`
	UploadID          *uuid.UUID `json:"uploadId,omitempty"`
}

type successResponse struct {
	Success        bool                `json:"success"`
	Entries        []ledger.EntryDraft `json:"entries"`
	Summary        assembler.Summary   `json:"summary"`
	ProcessedSheet string              `json:"processedSheet"`
	Sheets         []string            `json:"sheets"`
	Layout         string              `json:"layout"`
}

// Ingest handles POST /api/v1/ingestions
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxSpreadsheetBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, r, formError(err))
		return
	}

	req := service.IngestRequest{
		SheetName:      strings.TrimSpace(r.FormValue("sheetName")),
		ReferenceMonth: strings.TrimSpace(r.FormValue("referenceMonth")),
	}

	var err error
	if req.CompanyID, err = optionalUUID(r.FormValue("companyId"), "companyId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if raw := strings.TrimSpace(r.FormValue("uploadId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: invalid uploadId", service.ErrUploadNotFound))
			return
		}
		req.UploadID = &id
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		if req.UploadID == nil {
			h.writeError(w, r, service.ErrMissingFile)
			return
		}
	case err != nil:
		h.writeError(w, r, formError(err))
		return
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("failed to read upload: %w", err))
			return
		}
		req.Data = data
		req.Filename = header.Filename
		req.ContentType = header.Header.Get("Content-Type")
	}

	outcome, err := h.svc.Ingest(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if outcome.RequiresSelection {
		writeJSON(w, http.StatusOK, selectionResponse{
			RequiresSelection: true,
			Sheets:            outcome.Sheets,
			LooksLikeBudget:   outcome.LooksLikeBudget,
			Message:           outcome.Message,
			UploadID:          outcome.UploadID,
		})
		return
	}

	res := outcome.Result
	writeJSON(w, http.StatusOK, successResponse{
		Success:        true,
		Entries:        res.Entries,
		Summary:        res.Summary,
		ProcessedSheet: res.ProcessedSheet,
		Sheets:         res.SheetsAvailable,
		Layout:         string(outcome.Layout),
	})
}

type commitRequest struct {
	CompanyID uuid.UUID           `json:"companyId"`
	Entries   []ledger.EntryDraft `json:"entries"`
}

// Commit handles POST /api/v1/ingestions/commit
func (h *IngestHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var body commitRequest
	if err := h.decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	n, err := h.svc.Commit(r.Context(), body.CompanyID, body.Entries)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "saved": n})
}

// ListRuns handles GET /api/v1/ingestions?companyId=&limit=
func (h *IngestHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	companyID, err := optionalUUID(r.URL.Query().Get("companyId"), "companyId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			h.writeError(w, r, fmt.Errorf("%w: invalid limit %q", service.ErrInvalidEntry, v))
			return
		}
	}

	runs, err := h.svc.ListRuns(r.Context(), companyID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*repository.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type exportRequest struct {
	Entries []ledger.EntryDraft `json:"entries"`
}

// Export handles POST /api/v1/ingestions/export?format=csv|xlsx
func (h *IngestHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := service.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", service.ErrInvalidEntry, err))
		return
	}

	var body exportRequest
	if err := h.decodeJSON(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ledger-entries.%s"`, format))
	if err := service.Export(w, format, body.Entries); err != nil {
		h.logger.Error("export failed", slog.Any("error", err))
	}
}

// UploadDocument handles POST /api/v1/documents
func (h *IngestHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxDocumentBytes+multipartOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		h.writeError(w, r, formError(err))
		return
	}

	companyID, err := optionalUUID(r.FormValue("companyId"), "companyId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = service.ErrMissingFile
		}
		h.writeError(w, r, formError(err))
		return
	}
	defer file.Close()

	info, err := h.svc.UploadDocument(r.Context(), companyID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"document": info})
}

// ListDocuments handles GET /api/v1/documents?companyId=
func (h *IngestHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	companyID, err := optionalUUID(r.URL.Query().Get("companyId"), "companyId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	docs, err := h.svc.ListDocuments(r.Context(), companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// ListCategories handles GET /api/v1/categories
func (h *IngestHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": categorization.Taxonomy})
}

// Health handles GET /healthz
func (h *IngestHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *IngestHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxSpreadsheetBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: malformed request body: %v", service.ErrInvalidEntry, err)
	}
	return nil
}

func optionalUUID(raw, field string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", service.ErrMissingCompany, field)
	}
	return id, nil
}

// formError keeps size violations recognizable and turns every other
// multipart problem into a parse failure.
func formError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) || errors.Is(err, service.ErrMissingFile) {
		return err
	}
	return fmt.Errorf("%w: %v", reader.ErrParseFailure, err)
}
