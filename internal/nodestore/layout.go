// Package nodestore implements the fixed-size packed node record and the
// growable byte-addressed store that holds them, addressed by id*S — the
// invariant that makes the whole forest directly memory-mappable.
//
// Byte-offset field accessors use plain little-endian encoding via
// encoding/binary, no struct tags, no reflection.
package nodestore

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/annoyforest/metric"
)

// Layout describes the fixed byte geometry of every node record for one
// index (fixed for the index's lifetime once f and the metric are chosen).
type Layout struct {
	F           int
	HeaderWidth int
	VectorWidth int
	S           int
	K           int
}

// NewLayout computes the node geometry for dimension f under m.
func NewLayout(f int, m metric.Metric) Layout {
	hw := m.HeaderWidth()
	vw := m.VectorWidth(f)
	s := 4 + hw + 8 + vw
	return Layout{
		F:           f,
		HeaderWidth: hw,
		VectorWidth: vw,
		S:           s,
		K:           (s - 4) / 4,
	}
}

// NDescendants reads the n_descendants field.
func (l Layout) NDescendants(buf []byte) int32 {
	return int32(binary.LittleEndian.Uint32(buf[0:4]))
}

// SetNDescendants writes the n_descendants field.
func (l Layout) SetNDescendants(buf []byte, n int32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
}

// Header reads the metric-specific header as up to two float32s.
func (l Layout) Header(buf []byte) [2]float32 {
	var h [2]float32
	if l.HeaderWidth >= 4 {
		h[0] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))
	}
	if l.HeaderWidth >= 8 {
		h[1] = math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))
	}
	return h
}

// SetHeader writes the metric-specific header.
func (l Layout) SetHeader(buf []byte, h [2]float32) {
	if l.HeaderWidth >= 4 {
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(h[0]))
	}
	if l.HeaderWidth >= 8 {
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(h[1]))
	}
}

func (l Layout) childrenOffset() int {
	return 4 + l.HeaderWidth
}

func (l Layout) vectorOffset() int {
	return l.childrenOffset() + 8
}

// Children reads the two child node ids of an internal node.
func (l Layout) Children(buf []byte) (c0, c1 uint32) {
	off := l.childrenOffset()
	return binary.LittleEndian.Uint32(buf[off : off+4]), binary.LittleEndian.Uint32(buf[off+4 : off+8])
}

// SetChildren writes the two child node ids of an internal node.
func (l Layout) SetChildren(buf []byte, c0, c1 uint32) {
	off := l.childrenOffset()
	binary.LittleEndian.PutUint32(buf[off:off+4], c0)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], c1)
}

// VectorRegion returns the raw bytes of the vector/hyperplane region.
func (l Layout) VectorRegion(buf []byte) []byte {
	off := l.vectorOffset()
	return buf[off : off+l.VectorWidth]
}

// Vector decodes the leaf item vector (f float32s) out of the vector
// region. Valid for leaf records of every metric except Hamming, whose
// leaves hold packed bits (see PackedBits); internal-node normals, which
// for Dot are f+1 floats, are read with Normal.
func (l Layout) Vector(buf []byte) []float32 {
	region := l.VectorRegion(buf)
	out := make([]float32, l.F)
	for i := 0; i < l.F; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(region[i*4 : i*4+4]))
	}
	return out
}

// SetVector encodes a leaf item vector (f float32s) into the vector region.
func (l Layout) SetVector(buf []byte, v []float32) {
	region := l.VectorRegion(buf)
	for i := 0; i < l.F; i++ {
		binary.LittleEndian.PutUint32(region[i*4:i*4+4], math.Float32bits(v[i]))
	}
}

// Normal decodes an internal node's hyperplane normal, which has
// normalLen float32 components (F for every metric except Dot, which
// stores F+1, and Hamming, which stores exactly 1: a bit index).
func (l Layout) Normal(buf []byte, normalLen int) []float32 {
	region := l.VectorRegion(buf)
	out := make([]float32, normalLen)
	for i := 0; i < normalLen; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(region[i*4 : i*4+4]))
	}
	return out
}

// SetNormal encodes an internal node's hyperplane normal.
func (l Layout) SetNormal(buf []byte, normal []float32) {
	region := l.VectorRegion(buf)
	for i, x := range normal {
		binary.LittleEndian.PutUint32(region[i*4:i*4+4], math.Float32bits(x))
	}
}

// PackedBits decodes the leaf's Hamming vector out of its packed uint64
// words back into 0/1 float32s of length l.F.
func (l Layout) PackedBits(buf []byte) []float32 {
	region := l.VectorRegion(buf)
	out := make([]float32, l.F)
	for i := 0; i < l.F; i++ {
		word := i / 64
		bit := uint(i % 64)
		w := binary.LittleEndian.Uint64(region[word*8 : word*8+8])
		if (w>>bit)&1 == 1 {
			out[i] = 1
		}
	}
	return out
}

// SetPackedBits encodes a 0/1 float32 vector into packed uint64 words.
func (l Layout) SetPackedBits(buf []byte, v []float32) {
	region := l.VectorRegion(buf)
	for i := range region {
		region[i] = 0
	}
	for i := 0; i < l.F; i++ {
		if v[i] == 0 {
			continue
		}
		word := i / 64
		bit := uint(i % 64)
		off := word * 8
		w := binary.LittleEndian.Uint64(region[off : off+8])
		w |= 1 << bit
		binary.LittleEndian.PutUint64(region[off:off+8], w)
	}
}

// InlineIDs decodes up to l.K descendant ids packed into every byte after
// n_descendants (header, children and vector regions reused as one flat
// uint32 array), per the builder's K = (S-4)/4 descriptor-node capacity.
func (l Layout) InlineIDs(buf []byte, n int) []uint32 {
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(buf[4+i*4 : 8+i*4])
	}
	return out
}

// SetInlineIDs writes descendant ids into the descriptor-node inline
// region. len(ids) must be <= l.K.
func (l Layout) SetInlineIDs(buf []byte, ids []uint32) {
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[4+i*4:8+i*4], id)
	}
}
