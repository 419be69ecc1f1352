// Package storage keeps uploaded files on disk, scoped by owner.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a file id is unknown for the owner.
var ErrNotFound = errors.New("file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	Path        string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Storage defines the file operations used by the ingestion service.
type Storage interface {
	// Upload stores a file and returns its metadata
	Upload(ctx context.Context, ownerID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Download opens a stored file. The caller closes the reader.
	Download(ctx context.Context, ownerID uuid.UUID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	Delete(ctx context.Context, ownerID uuid.UUID, fileID uuid.UUID) error

	// List returns the owner's files, newest first
	List(ctx context.Context, ownerID uuid.UUID) ([]*FileInfo, error)

	// Sweep removes every file created before cutoff and reports how many went.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds storage configuration
type Config struct {
	LocalPath string
}

// New creates the local filesystem storage rooted at cfg.LocalPath.
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.LocalPath)
}
