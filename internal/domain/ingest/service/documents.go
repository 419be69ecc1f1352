package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/reader"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

var documentExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// UploadDocument stores an arbitrary supporting document for a company.
func (s *IngestService) UploadDocument(ctx context.Context, companyID uuid.UUID, filename, contentType string, r io.Reader) (*storage.FileInfo, error) {
	if s.documents == nil {
		return nil, fmt.Errorf("document storage is not configured")
	}
	if companyID == uuid.Nil {
		return nil, ErrMissingCompany
	}
	if !documentExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil, fmt.Errorf("%w: %q", reader.ErrUnsupportedFileType, filename)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", reader.ErrFileTooLarge, s.cfg.MaxDocumentBytes)
	}

	info, err := s.documents.Upload(ctx, companyID, filename, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	s.logger.Info("document stored",
		slog.String("company_id", companyID.String()),
		slog.String("filename", filename),
		slog.Int64("size", info.Size),
	)
	return info, nil
}

// ListDocuments returns a company's documents, newest first
func (s *IngestService) ListDocuments(ctx context.Context, companyID uuid.UUID) ([]*storage.FileInfo, error) {
	if s.documents == nil {
		return nil, fmt.Errorf("document storage is not configured")
	}
	if companyID == uuid.Nil {
		return nil, ErrMissingCompany
	}
	return s.documents.List(ctx, companyID)
}
