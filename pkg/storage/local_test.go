package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	owner := uuid.New()

	info, err := s.Upload(ctx, owner, "../budget 2024.xlsx", "application/octet-stream", bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	assert.Equal(t, owner, info.OwnerID)
	assert.Equal(t, int64(7), info.Size)
	assert.NotContains(t, info.Path, "/")

	rc, got, err := s.Download(ctx, owner, info.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, info.Path, got.Path)
	assert.Equal(t, "../budget 2024.xlsx", got.Name)

	t.Run("other owners cannot see it", func(t *testing.T) {
		_, _, err := s.Download(ctx, uuid.New(), info.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, owner, info.ID))
		_, _, err := s.Download(ctx, owner, info.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLocalStorage_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	owner := uuid.New()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.csv", "b.csv", "c.csv"} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		_, err := s.Upload(ctx, owner, name, "text/csv", bytes.NewReader([]byte(name)))
		require.NoError(t, err)
	}

	files, err := s.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "c.csv", files[0].Name)
	assert.Equal(t, "a.csv", files[2].Name)

	empty, err := s.List(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalStorage_Sweep(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	first, second := uuid.New(), uuid.New()

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := old.Add(48 * time.Hour)

	s.now = func() time.Time { return old }
	_, err := s.Upload(ctx, first, "old.xlsx", "", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	_, err = s.Upload(ctx, second, "old.xls", "", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	s.now = func() time.Time { return fresh }
	kept, err := s.Upload(ctx, first, "fresh.csv", "", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	removed, err := s.Sweep(ctx, old.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	files, err := s.List(ctx, first)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, kept.ID, files[0].ID)

	files, err = s.List(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, files)
}
