package metric

import (
	"github.com/hupe1980/annoyforest/internal/mathx"
	"github.com/hupe1980/annoyforest/internal/rng"
)

// manhattanMetric implements L1 distance. Its split construction reuses
// two-means over Euclidean centroids (per the metric table: "two-means on
// Euclidean centroids; margin still linear") while distance itself is a
// plain L1 sum.
type manhattanMetric struct{}

func (manhattanMetric) Kind() Kind          { return Manhattan }
func (manhattanMetric) HeaderWidth() int    { return 4 }
func (manhattanMetric) VectorWidth(f int) int { return f * 4 }

func (manhattanMetric) Distance(f int, a, b []float32) float32 {
	var sum float32
	for i := 0; i < f; i++ {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

func (manhattanMetric) NormalizedDistance(d float32) float32 {
	if d < 0 {
		return 0
	}
	return d
}

func (manhattanMetric) Margin(f int, header [2]float32, normal []float32, v []float32) float32 {
	return mathx.Dot(normal, v) + header[0]
}

func (manhattanMetric) Side(margin float32, tie *rng.Source) bool {
	if margin == 0 {
		return tie.Bool()
	}
	return margin > 0
}

func (manhattanMetric) CreateSplit(f int, points [][]float32, src *rng.Source) Split {
	euclid := euclideanMetric{}
	p, q := twoMeans(points, src, func(a, b []float32) float32 { return euclid.Distance(f, a, b) }, false)
	normal := make([]float32, f)
	mid := make([]float32, f)
	for i := range normal {
		normal[i] = p[i] - q[i]
		mid[i] = (p[i] + q[i]) / 2
	}
	offset := -mathx.Dot(normal, mid)
	return Split{Header: [2]float32{offset, 0}, Normal: normal}
}

func (manhattanMetric) RandomSplit(f int, src *rng.Source) Split {
	return Split{Header: [2]float32{0, 0}, Normal: randomUnitNormal(f, src)}
}

func (manhattanMetric) Preprocess(f int, buf []byte) {}
