// Package mathx holds the vector kernels shared across metrics: dot product
// and squared Euclidean distance, both routed through Gonum's BLAS level-1
// implementation rather than hand-written loops.
package mathx

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/blas/gonum"
)

var engine = gonum.Implementation{}

var diffPool = sync.Pool{
	New: func() any {
		s := make([]float32, 0, 256)
		return &s
	},
}

// Dot returns the dot product of a and b, which must have equal length.
func Dot(a, b []float32) float32 {
	return engine.Sdot(len(a), a, 1, b, 1)
}

// SquaredL2 returns the squared Euclidean distance between a and b, which
// must have equal length. It borrows a scratch buffer from a pool and
// computes the difference via Saxpy before reducing it with Sdot, avoiding
// a hand-written subtract-and-square loop.
func SquaredL2(a, b []float32) float32 {
	n := len(a)
	ptr := diffPool.Get().(*[]float32)
	defer diffPool.Put(ptr)

	if cap(*ptr) < n {
		*ptr = make([]float32, n)
	}
	diff := (*ptr)[:n]

	copy(diff, a)
	engine.Saxpy(n, -1, b, 1, diff, 1)
	return engine.Sdot(n, diff, 1, diff, 1)
}

// SquaredNorm returns the squared L2 norm of v.
func SquaredNorm(v []float32) float32 {
	return engine.Sdot(len(v), v, 1, v, 1)
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return sqrt32(SquaredNorm(v))
}

// NormalizeInPlace scales v to unit L2 norm, leaving it unchanged if its
// norm is below eps.
func NormalizeInPlace(v []float32, eps float32) {
	n := Norm(v)
	if n < eps {
		return
	}
	inv := 1 / n
	engine.Sscal(len(v), inv, v, 1)
}

func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}
