package nodestore

import "github.com/hupe1980/annoyforest/metric"

// IsHole reports whether id was never written (add_item skipped it while
// growing the store to cover a later, larger id).
func IsHole(store Reader, id uint32) bool {
	return store.Layout().NDescendants(store.Get(id)) == 0
}

// LeafVector decodes id's stored item vector into the metric's external
// (float32, 0/1-for-Hamming) representation. Both the builder and the
// searcher need this, so it lives here rather than duplicated in each.
func LeafVector(store Reader, met metric.Metric, id uint32) []float32 {
	layout := store.Layout()
	buf := store.Get(id)
	if met.Kind() == metric.Hamming {
		return layout.PackedBits(buf)
	}
	return layout.Vector(buf)
}
