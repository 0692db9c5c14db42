package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annoyforest/blobstore"
	"github.com/hupe1980/annoyforest/internal/nodestore"
	"github.com/hupe1980/annoyforest/metric"
)

func TestLoadForestFromBlobStore(t *testing.T) {
	met := metric.ByKind(metric.Euclidean)
	f := 3
	layout := nodestore.NewLayout(f, met)
	store := nodestore.New(layout)

	writeLeaf(store, layout, []float32{1, 2, 3})
	writeLeaf(store, layout, []float32{4, 5, 6})

	root := store.Allocate()
	buf := store.Get(root)
	layout.SetNDescendants(buf, 2)
	layout.SetInlineIDs(buf, []uint32{0, 1})

	dir := t.TempDir()
	path := filepath.Join(dir, "forest.bin")
	_, err := SaveForest(path, store)
	require.NoError(t, err)

	bs := blobstore.NewLocalStore(dir)
	reader, roots, nItems, err := LoadForestFromBlobStore(bs, "forest.bin", layout)
	require.NoError(t, err)
	defer reader.Close()

	require.EqualValues(t, 2, nItems)
	require.Equal(t, []uint32{root}, roots)
	require.EqualValues(t, 3, reader.Count())
	require.Equal(t, buf, reader.Get(root))
}
