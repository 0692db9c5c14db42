package annoyforest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annoyforest"
)

func buildTestForest(t *testing.T) *annoyforest.Forest {
	t.Helper()
	f, err := annoyforest.Angular(4).New()
	require.NoError(t, err)

	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	for i, v := range vectors {
		require.NoError(t, f.AddItem(uint32(i), v))
	}
	require.NoError(t, f.Build(context.Background(), 10))
	return f
}

func TestSearchBuilder_KNN(t *testing.T) {
	f := buildTestForest(t)

	results, err := f.Search([]float32{1, 0, 0, 0}).KNN(2).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.EqualValues(t, 0, results[0].ID)
}

func TestSearchBuilder_SearchByItem(t *testing.T) {
	f := buildTestForest(t)

	results, err := f.SearchByItem(1).KNN(1).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.EqualValues(t, 1, results[0].ID)
}

func TestSearchBuilder_First(t *testing.T) {
	f := buildTestForest(t)

	result, err := f.Search([]float32{0, 0, 1, 0}).First(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.ID)
}

func TestSearchBuilder_First_NoResults(t *testing.T) {
	f, err := annoyforest.Angular(3).Build(context.Background())
	require.NoError(t, err)

	_, err = f.Search([]float32{1, 2, 3}).First(context.Background())
	assert.ErrorIs(t, err, annoyforest.ErrInvalidArgument)
}

func TestSearchBuilder_Count(t *testing.T) {
	f := buildTestForest(t)

	count, err := f.Search([]float32{1, 0, 0, 0}).KNN(3).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSearchBuilder_Exists(t *testing.T) {
	f := buildTestForest(t)

	exists, err := f.Search([]float32{1, 0, 0, 0}).Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSearchBuilder_MustExecute_Panics(t *testing.T) {
	f, err := annoyforest.Angular(3).Build(context.Background())
	require.NoError(t, err)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustExecute to panic on dimension mismatch")
		}
	}()
	_ = f.Search([]float32{1, 2}).MustExecute(context.Background())
}

func TestSearchBuilder_SearchK(t *testing.T) {
	f := buildTestForest(t)

	results, err := f.Search([]float32{1, 0, 0, 0}).KNN(2).SearchK(50).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
}
