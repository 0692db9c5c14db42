package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annoyforest/internal/nodestore"
	"github.com/hupe1980/annoyforest/metric"
)

func writeLeaf(store *nodestore.Store, layout nodestore.Layout, v []float32) uint32 {
	id := store.Allocate()
	buf := store.Get(id)
	layout.SetNDescendants(buf, 1)
	layout.SetVector(buf, v)
	return id
}

func TestSaveLoadForestRoundTrip(t *testing.T) {
	met := metric.ByKind(metric.Euclidean)
	f := 3
	layout := nodestore.NewLayout(f, met)
	store := nodestore.New(layout)

	writeLeaf(store, layout, []float32{1, 2, 3})
	writeLeaf(store, layout, []float32{4, 5, 6})

	// A single descriptor-style root over both leaves.
	root := store.Allocate()
	buf := store.Get(root)
	layout.SetNDescendants(buf, 2)
	layout.SetInlineIDs(buf, []uint32{0, 1})

	path := filepath.Join(t.TempDir(), "forest.bin")
	sum, err := SaveForest(path, store)
	require.NoError(t, err)

	loaded, roots, nItems, err := LoadForest(path, layout)
	require.NoError(t, err)
	defer loaded.Close()

	require.EqualValues(t, 2, nItems)
	require.Equal(t, []uint32{root}, roots)
	require.EqualValues(t, 3, loaded.Count())
	require.Equal(t, sum, ChecksumStore(loaded))
}

func TestSaveForestChecksumDetectsCorruption(t *testing.T) {
	met := metric.ByKind(metric.Euclidean)
	f := 3
	layout := nodestore.NewLayout(f, met)
	store := nodestore.New(layout)
	writeLeaf(store, layout, []float32{1, 2, 3})

	path := filepath.Join(t.TempDir(), "forest.bin")
	sum, err := SaveForest(path, store)
	require.NoError(t, err)

	loaded, _, _, err := LoadForest(path, layout)
	require.NoError(t, err)
	defer loaded.Close()

	corrupted := ChecksumMismatchError{Expected: sum, Actual: ChecksumStore(loaded)}
	require.Equal(t, sum, corrupted.Actual, "sanity: an untouched file must checksum clean")
	require.False(t, IsChecksumMismatch(nil))

	// Flip the last byte of the only record and reload: the checksum must move.
	fh, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = fh.WriteAt([]byte{0xFF}, int64(layout.S-1))
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	tampered, _, _, err := LoadForest(path, layout)
	require.NoError(t, err)
	defer tampered.Close()
	require.NotEqual(t, sum, ChecksumStore(tampered), "a corrupted file must not checksum clean")

	var err2 error = &ChecksumMismatchError{Expected: 1, Actual: 2}
	require.True(t, IsChecksumMismatch(err2))
}

func TestMetaSidecarRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forest.bin")
	m := Meta{NItems: 100, Roots: []uint32{101, 102, 103}, Metric: "angular", Dimension: 8, Seed: 7}
	require.NoError(t, WriteMeta(path, m))

	loaded, ok, err := ReadMeta(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, m.NItems, loaded.NItems)
	require.Equal(t, m.Roots, loaded.Roots)
	require.Equal(t, m.Metric, loaded.Metric)
}

func TestMetaSidecarAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forest.bin")
	_, ok, err := ReadMeta(path)
	require.NoError(t, err)
	require.False(t, ok)
}
