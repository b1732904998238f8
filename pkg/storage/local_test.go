package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutGetList(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	info, err := store.Put(ctx, "forecast.csv", "", strings.NewReader("date,value\n"))
	require.NoError(t, err)
	assert.Equal(t, "forecast.csv", info.Name)
	assert.Equal(t, int64(11), info.Size)
	assert.Equal(t, "text/csv", info.ContentType)
	assert.Equal(t, filepath.Join(store.BasePath(), "forecast.csv"), info.Location)

	rc, err := store.Get(ctx, "forecast.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "date,value\n", string(data))

	_, err = store.Put(ctx, "chart.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)

	files, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "chart.png", files[0].Name)
	assert.Equal(t, "forecast.csv", files[1].Name)
}

func TestLocalStorage_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "ledger.csv", "", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "ledger.csv", "", strings.NewReader("second"))
	require.NoError(t, err)

	rc, err := store.Get(ctx, "ledger.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorage_GetMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_Namespace(t *testing.T) {
	base := t.TempDir()
	s, err := New(context.Background(), &Config{Type: StorageTypeLocal, LocalPath: base, Namespace: "run-1"})
	require.NoError(t, err)

	local, ok := s.(*LocalStorage)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(base, "run-1"), local.BasePath())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "__etc_passwd", sanitizeFilename("../etc/passwd"))
	assert.Equal(t, "a_b.png", sanitizeFilename("a:b.png"))
}
