package annoyforest_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annoyforest"
)

func gridVectors(n, dim int) [][]float32 {
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32((i*31 + j*7) % 97)
		}
		vecs[i] = v
	}
	return vecs
}

func TestLifecycle_AddItemOutsideBuildingFails(t *testing.T) {
	f, err := annoyforest.Angular(3).Trees(2).Build(context.Background())
	require.NoError(t, err)

	err = f.AddItem(0, []float32{1, 2, 3})
	assert.ErrorIs(t, err, annoyforest.ErrIllegalState)
}

func TestLifecycle_SearchBeforeBuildFails(t *testing.T) {
	f, err := annoyforest.Angular(3).New()
	require.NoError(t, err)

	_, err = f.GetNNSByVector([]float32{1, 2, 3}, 1, -1)
	assert.ErrorIs(t, err, annoyforest.ErrIllegalState)
}

func TestLifecycle_UnbuildReturnsToBuilding(t *testing.T) {
	f, err := annoyforest.Angular(3).New()
	require.NoError(t, err)

	for i, v := range gridVectors(10, 3) {
		require.NoError(t, f.AddItem(uint32(i), v))
	}
	require.NoError(t, f.Build(context.Background(), 4))
	require.Equal(t, annoyforest.PhaseBuilt, f.Phase())

	require.NoError(t, f.Unbuild())
	assert.Equal(t, annoyforest.PhaseBuilding, f.Phase())
	assert.EqualValues(t, 10, f.GetNItems())

	// Items survive the round trip and the forest can be rebuilt.
	require.NoError(t, f.Build(context.Background(), 4))
	assert.Equal(t, annoyforest.PhaseBuilt, f.Phase())
}

func TestLifecycle_UnbuildOutsideBuiltFails(t *testing.T) {
	f, err := annoyforest.Angular(3).New()
	require.NoError(t, err)
	assert.ErrorIs(t, f.Unbuild(), annoyforest.ErrIllegalState)
}

func TestLifecycle_SaveRequiresBuilt(t *testing.T) {
	f, err := annoyforest.Angular(3).New()
	require.NoError(t, err)
	err = f.Save(filepath.Join(t.TempDir(), "forest.bin"))
	assert.ErrorIs(t, err, annoyforest.ErrIllegalState)
}

func TestLifecycle_SaveLoadRoundTrip(t *testing.T) {
	dim := 5
	f, err := annoyforest.Euclidean(dim).New()
	require.NoError(t, err)

	vecs := gridVectors(50, dim)
	for i, v := range vecs {
		require.NoError(t, f.AddItem(uint32(i), v))
	}
	require.NoError(t, f.Build(context.Background(), 8))

	path := filepath.Join(t.TempDir(), "forest.bin")
	require.NoError(t, f.Save(path))
	assert.Equal(t, annoyforest.PhaseLoaded, f.Phase())

	loaded, err := annoyforest.Euclidean(dim).New()
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path, false))
	defer loaded.Close()

	assert.Equal(t, annoyforest.PhaseLoaded, loaded.Phase())
	assert.EqualValues(t, len(vecs), loaded.GetNItems())

	results, err := loaded.GetNNSByVector(vecs[0], 3, -1)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.EqualValues(t, 0, results[0].ID)
}

func TestLifecycle_UnloadRequiresLoaded(t *testing.T) {
	f, err := annoyforest.Angular(3).New()
	require.NoError(t, err)
	assert.ErrorIs(t, f.Unload(), annoyforest.ErrIllegalState)
}

func TestLifecycle_CloseIdempotent(t *testing.T) {
	dim := 3
	f, err := annoyforest.Angular(dim).New()
	require.NoError(t, err)
	require.NoError(t, f.AddItem(0, []float32{1, 0, 0}))
	require.NoError(t, f.Build(context.Background(), 2))

	path := filepath.Join(t.TempDir(), "forest.bin")
	require.NoError(t, f.Save(path))

	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
}

func TestLifecycle_OnDiskBuild(t *testing.T) {
	dim := 4
	path := filepath.Join(t.TempDir(), "ondisk.bin")

	f, err := annoyforest.Euclidean(dim).New()
	require.NoError(t, err)
	require.NoError(t, f.OnDiskBuild(path))
	assert.Equal(t, annoyforest.PhaseOnDiskBuilding, f.Phase())

	vecs := gridVectors(20, dim)
	for i, v := range vecs {
		require.NoError(t, f.AddItem(uint32(i), v))
	}
	require.NoError(t, f.Build(context.Background(), 4))

	// An on-disk build writes straight into the Loaded phase: the file on
	// disk already is the final layout, there is nothing left to Save.
	assert.Equal(t, annoyforest.PhaseLoaded, f.Phase())

	results, err := f.GetNNSByVector(vecs[0], 3, -1)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestLifecycle_GetItemVectorAndDistance(t *testing.T) {
	f, err := annoyforest.Euclidean(3).New()
	require.NoError(t, err)
	require.NoError(t, f.AddItem(0, []float32{0, 0, 0}))
	require.NoError(t, f.AddItem(1, []float32{3, 4, 0}))
	require.NoError(t, f.Build(context.Background(), 2))

	v, err := f.GetItemVector(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, v)

	d, err := f.GetDistance(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-4)

	_, err = f.GetItemVector(99)
	var notFound *annoyforest.ErrItemNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestLifecycle_PresentItems(t *testing.T) {
	f, err := annoyforest.Angular(3).New()
	require.NoError(t, err)
	require.NoError(t, f.AddItem(0, []float32{1, 0, 0}))
	require.NoError(t, f.AddItem(2, []float32{0, 1, 0}))
	require.NoError(t, f.Build(context.Background(), 2))

	present := f.PresentItems()
	assert.True(t, present.Contains(0))
	assert.False(t, present.Contains(1))
	assert.True(t, present.Contains(2))
	assert.EqualValues(t, 2, present.GetCardinality())
}

func TestLifecycle_SetSeedRequiresBuilding(t *testing.T) {
	f, err := annoyforest.Angular(3).Build(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, f.SetSeed(1), annoyforest.ErrIllegalState)
}
