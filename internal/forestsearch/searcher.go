// Package forestsearch implements best-first nearest-neighbor traversal
// over a built forest: a single max-priority queue seeded with every tree
// root drives descent across all trees at once, using the min(m, ±margin)
// rule from annoylib.h's _get_all_nns to keep the frontier's priorities
// comparable across trees of different depth and shape.
package forestsearch

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/annoyforest/internal/nodestore"
	"github.com/hupe1980/annoyforest/internal/queue"
	"github.com/hupe1980/annoyforest/metric"
)

// Neighbor is one ranked search result.
type Neighbor struct {
	ID       uint32
	Distance float32 // normalized_distance of the true raw distance to the query
}

// normalLen returns how many float32 components a metric's node normal has.
func normalLen(kind metric.Kind, f int) int {
	switch kind {
	case metric.Dot:
		return f + 1
	case metric.Hamming:
		return 1
	default:
		return f
	}
}

// Search runs get_nns_by_vector against store using roots as the forest's
// tree-root ids. If searchK < 0 it defaults to k * len(roots).
func Search(store nodestore.Reader, met metric.Metric, f int, roots []uint32, query []float32, k, searchK int) []Neighbor {
	if searchK < 0 {
		searchK = k * len(roots)
	}
	if searchK < k {
		searchK = k
	}

	layout := store.Layout()
	nlen := normalLen(met.Kind(), f)

	frontier := queue.NewMax(len(roots) * 4)
	for _, root := range roots {
		frontier.Push(queue.Item{Node: root, Key: float32(math.Inf(1))})
	}

	candidates := roaring.New()
	for frontier.Len() > 0 && int(candidates.GetCardinality()) < searchK {
		item, ok := frontier.Pop()
		if !ok {
			break
		}

		buf := store.Get(item.Node)
		n := layout.NDescendants(buf)
		switch {
		case n == 0:
			// a hole: never a real leaf or split, and never linked into a
			// tree by the builder. Nothing to add.
		case n == 1:
			candidates.Add(item.Node)
		case int(n) <= layout.K:
			for _, id := range layout.InlineIDs(buf, int(n)) {
				candidates.Add(id)
			}
		default:
			header := layout.Header(buf)
			normal := layout.Normal(buf, nlen)
			mu := met.Margin(f, header, normal, query)
			c0, c1 := layout.Children(buf)
			frontier.Push(queue.Item{Node: c0, Key: minF32(item.Key, mu)})
			frontier.Push(queue.Item{Node: c1, Key: minF32(item.Key, -mu)})
		}
	}

	return rankCandidates(store, met, f, candidates, query, k)
}

// SearchItem runs get_nns_by_item: the query vector is item i's own stored
// vector.
func SearchItem(store nodestore.Reader, met metric.Metric, f int, roots []uint32, item uint32, k, searchK int) []Neighbor {
	query := nodestore.LeafVector(store, met, item)
	return Search(store, met, f, roots, query, k, searchK)
}

func rankCandidates(store nodestore.Reader, met metric.Metric, f int, candidates *roaring.Bitmap, query []float32, k int) []Neighbor {
	ids := candidates.ToArray()
	type scored struct {
		id  uint32
		raw float32
	}
	ranked := make([]scored, len(ids))
	for i, id := range ids {
		v := nodestore.LeafVector(store, met, id)
		ranked[i] = scored{id: id, raw: met.Distance(f, query, v)}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].raw < ranked[j].raw })

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]Neighbor, len(ranked))
	for i, r := range ranked {
		out[i] = Neighbor{ID: r.id, Distance: met.NormalizedDistance(r.raw)}
	}
	return out
}

func minF32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
