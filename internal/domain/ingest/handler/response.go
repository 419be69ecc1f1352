package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/assembler"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/reader"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/repository"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/service"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error      string     `json:"error"`
	Hint       string     `json:"hint,omitempty"`
	SampleRows [][]string `json:"sampleRows,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// statusFor maps domain errors onto HTTP statuses. Anything unknown is a 500.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes),
		errors.Is(err, reader.ErrFileTooLarge),
		errors.Is(err, reader.ErrUnsupportedFileType),
		errors.Is(err, reader.ErrParseFailure),
		errors.Is(err, reader.ErrSheetNotFound),
		errors.Is(err, assembler.ErrNoEntriesExtracted),
		errors.Is(err, service.ErrMissingFile),
		errors.Is(err, service.ErrMissingCompany),
		errors.Is(err, service.ErrInvalidEntry),
		errors.Is(err, service.ErrInvalidReference),
		errors.Is(err, repository.ErrEmptyBatch):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUploadNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUploadsDisabled),
		errors.Is(err, service.ErrPersistenceDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err and logs it at a level matching who is at fault.
func (h *IngestHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var noEntries *assembler.NoEntriesError
	if errors.As(err, &noEntries) {
		body.Error = assembler.ErrNoEntriesExtracted.Error()
		body.Hint = noEntries.Hint
		body.SampleRows = noEntries.SampleRows
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		body.Error = reader.ErrFileTooLarge.Error()
	}

	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Any("error", err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", attrs...)
		body = errorResponse{Error: "internal error"}
		if status == http.StatusServiceUnavailable {
			body.Error = err.Error()
		}
	} else {
		h.logger.Warn("request rejected", attrs...)
	}

	writeJSON(w, status, body)
}
