package metric

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/annoyforest/internal/mathx"
	"github.com/hupe1980/annoyforest/internal/rng"
)

// angularMetric implements cosine-style splitting: distance is derived from
// the dot product normalized by both vectors' norms, and split hyperplanes
// pass through the origin (no offset), grounded on annoylib.h's Angular
// node's distance/margin/create_split methods.
type angularMetric struct{}

func (angularMetric) Kind() Kind          { return Angular }
func (angularMetric) HeaderWidth() int    { return 0 }
func (angularMetric) VectorWidth(f int) int { return f * 4 }

func (angularMetric) Distance(f int, a, b []float32) float32 {
	pq := mathx.Dot(a, b)
	pp := mathx.SquaredNorm(a)
	qq := mathx.SquaredNorm(b)
	ppqq := pp * qq
	if ppqq > 0 {
		return 2 - 2*pq/float32(math.Sqrt(float64(ppqq)))
	}
	return 2
}

func (angularMetric) NormalizedDistance(d float32) float32 {
	if d < 0 {
		d = 0
	}
	return float32(math.Sqrt(float64(d)))
}

func (angularMetric) Margin(f int, header [2]float32, normal []float32, v []float32) float32 {
	return mathx.Dot(normal, v)
}

func (angularMetric) Side(margin float32, tie *rng.Source) bool {
	if margin == 0 {
		return tie.Bool()
	}
	return margin > 0
}

func (angularMetric) CreateSplit(f int, points [][]float32, src *rng.Source) Split {
	p, q := twoMeans(points, src, func(a, b []float32) float32 { return angularMetric{}.Distance(f, a, b) }, true)
	normal := make([]float32, f)
	for i := range normal {
		normal[i] = p[i] - q[i]
	}
	normalizeInPlace(normal)
	return Split{Normal: normal}
}

func (angularMetric) RandomSplit(f int, src *rng.Source) Split {
	return Split{Normal: randomUnitNormal(f, src)}
}

// Preprocess renormalizes the node's stored vector in place. Angular split
// normals are unit length; renormalizing after
// every write keeps the tiny per-write rounding error from accumulating
// across a long build.
func (angularMetric) Preprocess(f int, buf []byte) {
	off := vectorOffset(0)
	region := buf[off : off+f*4]
	v := make([]float32, f)
	for i := 0; i < f; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(region[i*4 : i*4+4]))
	}
	normalizeInPlace(v)
	for i, x := range v {
		binary.LittleEndian.PutUint32(region[i*4:i*4+4], math.Float32bits(x))
	}
}
