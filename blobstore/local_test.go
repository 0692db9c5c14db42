package blobstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_OpenAndReadAt(t *testing.T) {
	tmpDir := t.TempDir()
	data := []byte("hello world, this is a test blob")
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "data.bin"), data, 0o644))

	store := NewLocalStore(tmpDir)

	blob, err := store.Open("data.bin")
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))
}

func TestLocalStore_ReadAtPastEOF(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "data.bin"), []byte("0123456789"), 0o644))

	store := NewLocalStore(tmpDir)
	blob, err := store.Open("data.bin")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 5)
	n, err := blob.ReadAt(buf, 20)
	require.Error(t, err)
	require.Equal(t, 0, n)
}

func TestLocalStore_OpenMissing(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	_, err := store.Open("missing.bin")
	require.Error(t, err)
}

func TestLocalStore_Mappable(t *testing.T) {
	tmpDir := t.TempDir()
	data := []byte("mmap-backed blob contents")
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "data.bin"), data, 0o644))

	store := NewLocalStore(tmpDir)
	blob, err := store.Open("data.bin")
	require.NoError(t, err)
	defer blob.Close()

	mappable, ok := blob.(Mappable)
	require.True(t, ok, "LocalStore blobs must support zero-copy access")

	b, err := mappable.Bytes()
	require.NoError(t, err)
	require.Equal(t, data, b)
}
