package builder

import (
	"github.com/hupe1980/annoyforest/internal/nodestore"
	"github.com/hupe1980/annoyforest/metric"
)

// LeafSource decodes item vectors out of already-written leaf records so
// makeTree never needs to hold the whole working set in memory twice.
type LeafSource interface {
	// Vector returns id's stored vector, decoded into the metric's external
	// (float32, 0/1-for-Hamming) representation.
	Vector(id uint32) []float32
	// IsHole reports whether id was never written (n_descendants == 0).
	IsHole(id uint32) bool
}

type storeLeaves struct {
	store nodestore.Reader
	met   metric.Metric
}

// NewLeafSource wraps a node store's already-populated leaf region [0,
// n_items) for use during tree construction.
func NewLeafSource(store nodestore.Reader, met metric.Metric) LeafSource {
	return &storeLeaves{store: store, met: met}
}

func (l *storeLeaves) IsHole(id uint32) bool        { return nodestore.IsHole(l.store, id) }
func (l *storeLeaves) Vector(id uint32) []float32   { return nodestore.LeafVector(l.store, l.met, id) }
