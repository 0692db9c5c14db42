// Package metric implements the per-metric kernels that drive both tree
// construction and search: distance, margin, split construction and the
// side classifier used to route a point past an internal node.
//
// Each metric is a small stateless value type implementing Metric. Node
// byte layout (header width, vector region width) is exposed here so
// internal/nodestore can size records without depending on any one
// metric's internals.
package metric

import (
	"math"

	"github.com/hupe1980/annoyforest/internal/rng"
)

// Kind identifies one of the five supported metrics.
type Kind int

const (
	Angular Kind = iota
	Euclidean
	Manhattan
	Hamming
	Dot
)

func (k Kind) String() string {
	switch k {
	case Angular:
		return "angular"
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	case Hamming:
		return "hamming"
	case Dot:
		return "dot"
	default:
		return "unknown"
	}
}

// ParseKind maps a configuration string onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "angular":
		return Angular, true
	case "euclidean":
		return Euclidean, true
	case "manhattan":
		return Manhattan, true
	case "hamming":
		return Hamming, true
	case "dot":
		return Dot, true
	default:
		return 0, false
	}
}

// Split is the outcome of CreateSplit/RandomSplit: a hyperplane normal
// (for Hamming, a single-element slice holding the chosen bit index; for
// Dot, an f+1-length lifted normal) plus up to two metric-specific header
// values (an offset, a squared norm).
type Split struct {
	Header [2]float32
	Normal []float32
}

// Metric is implemented by each of the five supported space partitioners.
type Metric interface {
	Kind() Kind

	// HeaderWidth returns the number of header bytes a node needs, per
	// the node layout's header column: 0, 4 or 8.
	HeaderWidth() int

	// VectorWidth returns the number of bytes the vector/hyperplane region
	// needs for dimension f. This is f*4 for every metric except Dot,
	// which needs (f+1)*4 for its lifted normal, and Hamming, which packs
	// bits into 64-bit words.
	VectorWidth(f int) int

	// Distance returns the metric's raw (pre-normalization) distance
	// between two external-facing float32 vectors of length f.
	Distance(f int, a, b []float32) float32

	// NormalizedDistance maps a raw distance onto the value reported to
	// callers (a square root for angular/Euclidean, identity for
	// Manhattan/Hamming, negation for dot).
	NormalizedDistance(d float32) float32

	// Margin evaluates the split's linear functional at v.
	Margin(f int, header [2]float32, normal []float32, v []float32) float32

	// Side reports which child a point belongs to given its margin. Ties
	// (margin == 0) are broken by drawing from tie.
	Side(margin float32, tie *rng.Source) bool

	// CreateSplit builds a splitting hyperplane over a sample of points
	// drawn from the working set.
	CreateSplit(f int, points [][]float32, src *rng.Source) Split

	// RandomSplit builds a split with no reference to the data, used as
	// the degenerate-split fallback.
	RandomSplit(f int, src *rng.Source) Split

	// Preprocess runs once against each descriptor or internal node's raw
	// bytes as the builder writes it; leaf item records are never passed
	// to it. Every metric but Angular
	// leaves this a no-op; Angular renormalizes its stored vector so
	// floating-point drift from repeated writes never accumulates.
	Preprocess(f int, buf []byte)
}

// vectorOffset returns the byte offset of the vector/hyperplane region for
// a node with the given header width, matching nodestore.Layout's private
// accessor of the same shape.
func vectorOffset(headerWidth int) int {
	return 4 + headerWidth + 8
}

// ByKind returns the Metric implementation for k.
func ByKind(k Kind) Metric {
	switch k {
	case Angular:
		return angularMetric{}
	case Euclidean:
		return euclideanMetric{}
	case Manhattan:
		return manhattanMetric{}
	case Hamming:
		return hammingMetric{}
	case Dot:
		return dotMetric{}
	default:
		panic("metric: unknown kind")
	}
}

// randomUnitNormal draws a random unit-length hyperplane normal, used by
// every non-Hamming metric's RandomSplit.
func randomUnitNormal(f int, src *rng.Source) []float32 {
	n := make([]float32, f)
	for i := range n {
		// Box-Muller keeps the direction uniform over the sphere, which
		// plain uniform-per-coordinate sampling does not.
		u1 := src.Float64()
		u2 := src.Float64()
		if u1 < 1e-12 {
			u1 = 1e-12
		}
		r := math.Sqrt(-2 * math.Log(u1))
		n[i] = float32(r * math.Cos(2*math.Pi*u2))
	}
	normalizeInPlace(n)
	return n
}
