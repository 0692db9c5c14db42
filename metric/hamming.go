package metric

import (
	"github.com/hupe1980/annoyforest/internal/mathx"
	"github.com/hupe1980/annoyforest/internal/rng"
)

// hammingBitEntropyAttempts bounds how many random bit indices create_split
// tries before giving up and using whichever bit it last drew, mirroring
// the fixed retry budget the builder uses for degenerate hyperplane splits.
const hammingBitEntropyAttempts = 20

// hammingMetric splits on a single bit index instead of a hyperplane.
// Vectors are 0/1 floats on the external interface; the node's vector
// region stores 64-bit packed words for leaf items and, for internal
// nodes, records which bit was chosen in its first 4 bytes (there is no
// header).
// Grounded on annoylib.h's Hamming node.
type hammingMetric struct{}

func (hammingMetric) Kind() Kind       { return Hamming }
func (hammingMetric) HeaderWidth() int { return 0 }

// VectorWidth reserves ceil(f/64) 64-bit words for the packed leaf bits.
// Internal nodes reuse the low 4 bytes of this same region to hold the
// chosen bit index as an int32-valued float32, which always fits since the
// region is at least 8 bytes wide for any f >= 1.
func (hammingMetric) VectorWidth(f int) int {
	words := (f + 63) / 64
	if words == 0 {
		words = 1
	}
	return words * 8
}

// Distance counts differing bits between a and b. Since both are 0/1-valued,
// (a_i - b_i)^2 is 1 exactly where the bits differ and 0 where they agree, so
// the sum mathx.SquaredL2 computes is already the Hamming distance — no
// separate bit-count loop is needed.
func (hammingMetric) Distance(f int, a, b []float32) float32 {
	d := mathx.SquaredL2(a, b)
	if d < 0 {
		d = 0
	}
	return d
}

func (hammingMetric) NormalizedDistance(d float32) float32 {
	if d < 0 {
		return 0
	}
	return d
}

func (hammingMetric) Margin(f int, header [2]float32, normal []float32, v []float32) float32 {
	bit := int(normal[0])
	if bit < 0 || bit >= len(v) {
		return -0.5
	}
	if v[bit] != 0 {
		return 0.5
	}
	return -0.5
}

func (hammingMetric) Side(margin float32, tie *rng.Source) bool {
	if margin == 0 {
		return tie.Bool()
	}
	return margin > 0
}

func (hammingMetric) CreateSplit(f int, points [][]float32, src *rng.Source) Split {
	bit := 0
	for attempt := 0; attempt < hammingBitEntropyAttempts; attempt++ {
		bit = src.IntN(f)
		if hasEntropy(points, bit) {
			break
		}
	}
	return Split{Normal: []float32{float32(bit)}}
}

func (hammingMetric) RandomSplit(f int, src *rng.Source) Split {
	return Split{Normal: []float32{float32(src.IntN(f))}}
}

func (hammingMetric) Preprocess(f int, buf []byte) {}

func hasEntropy(points [][]float32, bit int) bool {
	if len(points) == 0 {
		return false
	}
	first := points[0][bit] != 0
	for _, p := range points[1:] {
		if (p[bit] != 0) != first {
			return true
		}
	}
	return false
}
