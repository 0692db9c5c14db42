package forestsearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annoyforest/internal/builder"
	"github.com/hupe1980/annoyforest/internal/nodestore"
	"github.com/hupe1980/annoyforest/metric"
)

func writeItems(t *testing.T, store *nodestore.Store, layout nodestore.Layout, met metric.Metric, vectors [][]float32) {
	t.Helper()
	for _, v := range vectors {
		id := store.Allocate()
		buf := store.Get(id)
		layout.SetNDescendants(buf, 1)
		if met.Kind() == metric.Hamming {
			layout.SetPackedBits(buf, v)
		} else {
			layout.SetVector(buf, v)
		}
	}
}

func buildForest(t *testing.T, met metric.Metric, f int, vectors [][]float32, seed uint32, nTrees int) (*nodestore.Store, []uint32) {
	t.Helper()
	layout := nodestore.NewLayout(f, met)
	store := nodestore.New(layout)
	writeItems(t, store, layout, met, vectors)
	roots, err := builder.Build(context.Background(), store, met, f, uint32(len(vectors)), builder.Options{Seed: seed, NTrees: nTrees, NJobs: 2}, nil)
	require.NoError(t, err)
	return store, roots
}

func TestSearchFindsExactSelfMatch(t *testing.T) {
	met := metric.ByKind(metric.Euclidean)
	f := 2
	var vectors [][]float32
	for i := 0; i < 200; i++ {
		vectors = append(vectors, []float32{float32(i), float32(i * 3 % 17)})
	}
	store, roots := buildForest(t, met, f, vectors, 11, 8)

	for _, probe := range []uint32{0, 50, 150, 199} {
		results := SearchItem(store, met, f, roots, probe, 5, -1)
		require.NotEmpty(t, results)
		require.Equal(t, probe, results[0].ID, "nearest neighbor of an indexed point's own vector should be itself")
		require.InDelta(t, 0, results[0].Distance, 1e-4)
	}
}

func TestSearchReturnsKResultsWhenAvailable(t *testing.T) {
	met := metric.ByKind(metric.Angular)
	f := 3
	var vectors [][]float32
	for i := 0; i < 100; i++ {
		vectors = append(vectors, []float32{float32(i%5) + 1, float32(i%7) + 1, float32(i%3) + 1})
	}
	store, roots := buildForest(t, met, f, vectors, 5, 6)

	results := Search(store, met, f, roots, []float32{1, 1, 1}, 10, -1)
	require.Len(t, results, 10)
	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i-1].Distance, results[i].Distance, "results must be sorted by ascending distance")
	}
}

func TestSearchRespectsSearchKFloor(t *testing.T) {
	met := metric.ByKind(metric.Manhattan)
	f := 2
	var vectors [][]float32
	for i := 0; i < 50; i++ {
		vectors = append(vectors, []float32{float32(i), float32(50 - i)})
	}
	store, roots := buildForest(t, met, f, vectors, 3, 3)

	results := Search(store, met, f, roots, []float32{25, 25}, 4, 1)
	require.Len(t, results, 4)
}
