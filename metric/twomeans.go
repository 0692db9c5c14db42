package metric

import (
	"math"

	"github.com/hupe1980/annoyforest/internal/rng"
)

// nIter is the number of refinement passes two-means runs over the sample,
// per the fixed iteration count.
const nIter = 200

// normalizeInPlace scales v to unit L2 norm in place, leaving it unchanged
// if its norm is negligible.
func normalizeInPlace(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum < 1e-20 {
		return
	}
	inv := float32(1) / float32(math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}

// twoMeans runs the weighted-incremental two-means refinement described for
// tree splits: two distinct points seed the centroids, then nIter samples,
// each drawn at random from points, are folded into their closer centroid
// with a running, count-weighted mean update. It returns the two centroids and, if
// normalize is true, normalizes them (angular splits normalize; Euclidean
// and Manhattan splits do not, since their offset depends on the raw
// midpoint).
func twoMeans(points [][]float32, src *rng.Source, dist func(a, b []float32) float32, normalize bool) (p, q []float32) {
	f := len(points[0])
	i, j := src.TwoDistinct(len(points))

	p = append([]float32(nil), points[i]...)
	q = append([]float32(nil), points[j]...)
	if normalize {
		normalizeInPlace(p)
		normalizeInPlace(q)
	}

	var ic, jc float32 = 1, 1

	for iter := 0; iter < nIter; iter++ {
		k := src.IntN(len(points))
		pt := points[k]

		dp := dist(p, pt)
		dq := dist(q, pt)

		var sw float32
		if dp < dq {
			sw = ic / (ic + 1)
			ic++
		} else {
			sw = jc / (jc + 1)
			jc++
		}

		target := p
		if dp >= dq {
			target = q
		}
		for d := 0; d < f; d++ {
			target[d] = target[d]*sw + pt[d]*(1-sw)
		}
		if normalize {
			normalizeInPlace(target)
		}
	}

	return p, q
}
