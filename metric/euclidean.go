package metric

import (
	"math"

	"github.com/hupe1980/annoyforest/internal/mathx"
	"github.com/hupe1980/annoyforest/internal/rng"
)

// euclideanMetric implements straight-line splitting: the hyperplane's
// offset is chosen so it passes through the midpoint of the two sampled
// centroids, grounded on annoylib.h's Minkowski/Euclidean node.
type euclideanMetric struct{}

func (euclideanMetric) Kind() Kind          { return Euclidean }
func (euclideanMetric) HeaderWidth() int    { return 4 }
func (euclideanMetric) VectorWidth(f int) int { return f * 4 }

func (euclideanMetric) Distance(f int, a, b []float32) float32 {
	d := mathx.SquaredL2(a, b)
	if d < 0 {
		d = 0
	}
	return d
}

func (euclideanMetric) NormalizedDistance(d float32) float32 {
	if d < 0 {
		d = 0
	}
	return float32(math.Sqrt(float64(d)))
}

func (euclideanMetric) Margin(f int, header [2]float32, normal []float32, v []float32) float32 {
	return mathx.Dot(normal, v) + header[0]
}

func (euclideanMetric) Side(margin float32, tie *rng.Source) bool {
	if margin == 0 {
		return tie.Bool()
	}
	return margin > 0
}

func (euclideanMetric) CreateSplit(f int, points [][]float32, src *rng.Source) Split {
	p, q := twoMeans(points, src, func(a, b []float32) float32 { return euclideanMetric{}.Distance(f, a, b) }, false)
	normal := make([]float32, f)
	mid := make([]float32, f)
	for i := range normal {
		normal[i] = p[i] - q[i]
		mid[i] = (p[i] + q[i]) / 2
	}
	offset := -mathx.Dot(normal, mid)
	return Split{Header: [2]float32{offset, 0}, Normal: normal}
}

func (euclideanMetric) RandomSplit(f int, src *rng.Source) Split {
	normal := randomUnitNormal(f, src)
	// A random hyperplane through the origin is a fine fallback: it still
	// bisects the space, just without regard to the sample's centroid.
	return Split{Header: [2]float32{0, 0}, Normal: normal}
}

func (euclideanMetric) Preprocess(f int, buf []byte) {}
