package annoyforest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annoyforest"
)

func TestForestBuilder_New(t *testing.T) {
	f, err := annoyforest.Angular(4).New()
	require.NoError(t, err)
	assert.Equal(t, annoyforest.PhaseBuilding, f.Phase())
	assert.EqualValues(t, 0, f.GetNItems())
}

func TestForestBuilder_New_InvalidDimension(t *testing.T) {
	_, err := annoyforest.Angular(0).New()
	assert.ErrorIs(t, err, annoyforest.ErrInvalidArgument)
}

func TestForestBuilder_MustNew_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustNew to panic on invalid dimension")
		}
	}()
	_ = annoyforest.Angular(0).MustNew()
}

func TestForestBuilder_Build(t *testing.T) {
	f, err := annoyforest.Euclidean(3).Trees(5).Seed(7).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, annoyforest.PhaseBuilt, f.Phase())
	assert.Equal(t, 5, f.GetNTrees())
}

func TestForestBuilder_AllMetrics(t *testing.T) {
	builders := map[string]func(int) annoyforest.ForestBuilder{
		"angular":   annoyforest.Angular,
		"euclidean": annoyforest.Euclidean,
		"manhattan": annoyforest.Manhattan,
		"hamming":   annoyforest.Hamming,
		"dot":       annoyforest.Dot,
	}

	for name, newBuilder := range builders {
		t.Run(name, func(t *testing.T) {
			f, err := newBuilder(4).New()
			require.NoError(t, err)
			require.NoError(t, f.AddItem(0, []float32{1, 0, 0, 0}))
			require.NoError(t, f.AddItem(1, []float32{0, 1, 0, 0}))
			require.NoError(t, f.Build(context.Background(), 3))

			results, err := f.GetNNSByVector([]float32{1, 0, 0, 0}, 1, -1)
			require.NoError(t, err)
			require.Len(t, results, 1)
		})
	}
}
