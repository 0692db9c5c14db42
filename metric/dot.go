package metric

import (
	"math"

	"github.com/hupe1980/annoyforest/internal/mathx"
	"github.com/hupe1980/annoyforest/internal/rng"
)

// dotMetric implements maximum-inner-product search by lifting samples
// into one extra dimension so a Euclidean-style two-means split still
// works: each sampled point p is extended with sqrt(max(0, M2-||p||^2))
// where M2 is the largest squared norm in the sample, grounded on
// annoylib.h's DotProduct node (which stores the same lift coefficient as
// part of its vector and a squared-norm/offset pair in its header).
//
// The extra lift coordinate is carried in the node's vector region itself
// (VectorWidth reserves f+1 floats, not f), and the offset plus the
// sample's M2 are carried in the two header slots so Margin can reconstruct
// the lift for an arbitrary query vector without needing anything beyond
// the node's own bytes.
type dotMetric struct{}

func (dotMetric) Kind() Kind            { return Dot }
func (dotMetric) HeaderWidth() int      { return 8 }
func (dotMetric) VectorWidth(f int) int { return (f + 1) * 4 }

func (dotMetric) Distance(f int, a, b []float32) float32 {
	return -mathx.Dot(a, b)
}

func (dotMetric) NormalizedDistance(d float32) float32 {
	return -d
}

// Margin reads a lifted normal of length f+1 out of normal, header[0] as
// the linear offset and header[1] as the sample's M2.
func (dotMetric) Margin(f int, header [2]float32, normal []float32, v []float32) float32 {
	m2 := header[1]
	qNorm := mathx.SquaredNorm(v)
	lift := m2 - qNorm
	if lift < 0 {
		lift = 0
	}
	return mathx.Dot(normal[:f], v) + normal[f]*float32(math.Sqrt(float64(lift))) + header[0]
}

func (dotMetric) Side(margin float32, tie *rng.Source) bool {
	if margin == 0 {
		return tie.Bool()
	}
	return margin > 0
}

func (dotMetric) CreateSplit(f int, points [][]float32, src *rng.Source) Split {
	var m2 float32
	for _, p := range points {
		if n := mathx.SquaredNorm(p); n > m2 {
			m2 = n
		}
	}

	lifted := make([][]float32, len(points))
	for i, p := range points {
		lp := make([]float32, f+1)
		copy(lp, p)
		rem := m2 - mathx.SquaredNorm(p)
		if rem < 0 {
			rem = 0
		}
		lp[f] = float32(math.Sqrt(float64(rem)))
		lifted[i] = lp
	}

	euclid := euclideanMetric{}
	p, q := twoMeans(lifted, src, func(a, b []float32) float32 { return euclid.Distance(f+1, a, b) }, false)

	normal := make([]float32, f+1)
	mid := make([]float32, f+1)
	for i := range normal {
		normal[i] = p[i] - q[i]
		mid[i] = (p[i] + q[i]) / 2
	}
	offset := -mathx.Dot(normal, mid)

	return Split{Header: [2]float32{offset, m2}, Normal: normal}
}

func (dotMetric) RandomSplit(f int, src *rng.Source) Split {
	normal := randomUnitNormal(f+1, src)
	return Split{Header: [2]float32{0, 0}, Normal: normal}
}

func (dotMetric) Preprocess(f int, buf []byte) {}
