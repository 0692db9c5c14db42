// Package builder implements recursive top-down tree construction:
// make_tree over one tree's working set, plus the forest-level coordinator
// that fans a build out across n_jobs workers using golang.org/x/sync/errgroup.
package builder

import (
	"context"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/annoyforest/internal/nodestore"
	"github.com/hupe1980/annoyforest/internal/rng"
	"github.com/hupe1980/annoyforest/metric"
)

const (
	// sampleSize bounds how many working-set ids create_split ever looks
	// at directly; larger working sets are subsampled.
	sampleSize = 1000

	// maxSplitAttempts bounds how many times make_tree retries a
	// degenerate split (first with create_split, then with increasingly
	// data-blind random hyperplanes) before accepting an arbitrary
	// position-parity partition just to guarantee termination.
	maxSplitAttempts = 20

	// imbalanceFraction is the "> 95% of samples on one side" degenerate
	// split threshold.
	imbalanceFraction = 0.95
)

// Options configures a forest build.
type Options struct {
	// Seed is the index's random seed; tree t always draws its randomness
	// from rng.Substream(Seed, t), independent of how work is scheduled
	// across workers, so a build is reproducible for a fixed (Seed, NTrees)
	// regardless of NJobs or goroutine interleaving.
	Seed uint32

	// NTrees is the number of trees to build, or -1 to autoscale: keep
	// building trees until the total internal node count exceeds n_items.
	NTrees int

	// NJobs is the number of concurrent workers, or -1 for runtime.NumCPU().
	NJobs int
}

// normalLen returns how many float32 components a metric's node normal has:
// f for every metric except Dot (f+1, the lifted normal) and Hamming (1, a
// bit index).
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

// Build runs a full forest build against store, whose ids [0, nItems)
// already hold the written leaf records (holes included). It returns the
// tree root ids in tree-index order.
//
// Each tree is first built into its own private, in-memory node store
// (b.store below), never touching the shared store while it works; only
// after a tree is complete does a single-threaded merge pass copy its
// records into store and translate its internal id references into the
// shared id space. This keeps the resulting byte image reproducible for a
// fixed (seed, n_trees) independent of n_jobs or goroutine scheduling, and
// it sidesteps a genuine correctness problem a naive shared-allocator
// design would have: two trees racing on the same store's Allocate()
// would still individually build valid trees, but which node ids each
// tree ends up with would depend on true goroutine interleaving, which no
// fixed-seed RNG stream controls.
func Build(ctx context.Context, store nodestore.Writer, met metric.Metric, f int, nItems uint32, opts Options, logger *slog.Logger) ([]uint32, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	leaves := NewLeafSource(store, met)
	indices := make([]uint32, 0, nItems)
	for id := uint32(0); id < nItems; id++ {
		if !leaves.IsHole(id) {
			indices = append(indices, id)
		}
	}

	// A forest with no items has no trees: makeTree on an empty index set
	// would allocate and return a genuine hole (n_descendants == 0) as a
	// tree root, which a searcher must never see in a children list, let
	// alone treat as a root. buildAutoscale's batch loop would also never
	// terminate, since a tree over zero items adds no internal nodes.
	if len(indices) == 0 {
		return nil, nil
	}

	nJobs := opts.NJobs
	if nJobs <= 0 {
		nJobs = runtime.NumCPU()
	}

	if opts.NTrees > 0 {
		return buildFixed(ctx, store, met, f, nItems, indices, opts.Seed, opts.NTrees, nJobs, logger)
	}
	return buildAutoscale(ctx, store, met, f, nItems, indices, opts.Seed, nJobs, logger)
}

// builtTree is one worker's output before it has been merged into the
// shared store.
type builtTree struct {
	local *nodestore.Store
	root  uint32 // virtual id: < nItems is a raw leaf, >= nItems is local.
}

func buildFixed(ctx context.Context, store nodestore.Writer, met metric.Metric, f int, nItems uint32, indices []uint32, seed uint32, nTrees, nJobs int, logger *slog.Logger) ([]uint32, error) {
	built := make([]builtTree, nTrees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nJobs)

	for t := 0; t < nTrees; t++ {
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			built[t] = buildOneTree(store, met, f, nItems, indices, seed, rng.Substream(seed, t), logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	roots := make([]uint32, nTrees)
	for t, bt := range built {
		roots[t] = mergeTree(store, bt.local, bt.root, nItems)
	}
	return roots, nil
}

// buildAutoscale keeps building trees, one batch of nJobs at a time, until
// the total number of internal (non-leaf) nodes across all merged trees
// exceeds nItems. Batches are always built in tree-index order (batch b
// covers tree indices [b*nJobs, b*nJobs+nJobs)) and merged strictly in that
// same order, so the result is independent of nJobs.
func buildAutoscale(ctx context.Context, store nodestore.Writer, met metric.Metric, f int, nItems uint32, indices []uint32, seed uint32, nJobs int, logger *slog.Logger) ([]uint32, error) {
	var roots []uint32
	var internalNodes uint32

	for internalNodes <= nItems {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(nJobs)
		batch := make([]builtTree, nJobs)

		for w := 0; w < nJobs; w++ {
			w := w
			t := len(roots) + w
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				batch[w] = buildOneTree(store, met, f, nItems, indices, seed, rng.Substream(seed, t), logger)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, bt := range batch {
			internalNodes += bt.local.Count()
			roots = append(roots, mergeTree(store, bt.local, bt.root, nItems))
		}
	}
	return roots, nil
}

// buildOneTree constructs a single tree into a private, unmerged node
// store, so parallel construction of multiple trees never contends on (or
// depends on the allocation order of) the shared store.
func buildOneTree(store nodestore.Writer, met metric.Metric, f int, nItems uint32, indices []uint32, seed uint32, src *rng.Source, logger *slog.Logger) builtTree {
	local := nodestore.New(store.Layout())
	leaves := NewLeafSource(store, met)
	b := &treeBuilder{
		store:  local,
		layout: local.Layout(),
		met:    met,
		f:      f,
		nItems: nItems,
		leaves: leaves,
		src:    src,
		seed:   seed,
		logger: logger,
	}
	// makeTree never errors; it always terminates via the position-parity
	// fallback, so the error return exists only for interface symmetry
	// with callers that thread a context through.
	root, _ := b.makeTree(indices)
	return builtTree{local: local, root: root}
}

// mergeTree copies local's records into the shared store, appended after
// whatever it already holds, translating every internal id reference from
// local's virtual id space (raw ids < nItems are untouched leaf
// references; ids >= nItems are local node ids offset by nItems) into the
// shared store's real ids. It returns the tree's final root id in the
// shared store.
func mergeTree(shared nodestore.Writer, local *nodestore.Store, virtualRoot uint32, nItems uint32) uint32 {
	if virtualRoot < nItems {
		return virtualRoot // a single-item tree has no local nodes at all.
	}

	layout := shared.Layout()
	count := local.Count()
	base := shared.Count()

	for i := uint32(0); i < count; i++ {
		gid := shared.Allocate()
		src := local.Get(i)
		dst := shared.Get(gid)
		copy(dst, src)

		n := layout.NDescendants(dst)
		switch {
		case n > 1 && int(n) <= layout.K:
			// Descriptor node: every byte after n_descendants is an id.
			ids := layout.InlineIDs(dst, int(n))
			for j, ref := range ids {
				if ref >= nItems {
					ids[j] = base + (ref - nItems)
				}
			}
			layout.SetInlineIDs(dst, ids)
		case n > 1:
			// Internal node: only the two child ids need remapping; the
			// header and vector regions hold hyperplane floats, not ids.
			c0, c1 := layout.Children(dst)
			if c0 >= nItems {
				c0 = base + (c0 - nItems)
			}
			if c1 >= nItems {
				c1 = base + (c1 - nItems)
			}
			layout.SetChildren(dst, c0, c1)
		}
	}

	return base + (virtualRoot - nItems)
}

type treeBuilder struct {
	store  *nodestore.Store
	layout nodestore.Layout
	nItems uint32
	met    metric.Metric
	f      int
	leaves LeafSource
	src    *rng.Source
	seed   uint32
	logger *slog.Logger

	lastSplit metric.Split
}

// makeTree implements the recursive top-down split procedure, writing
// into this tree's private local store. Returned ids are "virtual": a
// value < b.nItems is an unmodified reference to a shared-store leaf; a
// value >= b.nItems is a local node id offset by b.nItems, resolved back to
// a real shared id by mergeTree once every tree has finished building.
func (b *treeBuilder) makeTree(indices []uint32) (uint32, error) {
	if len(indices) == 1 {
		return indices[0], nil
	}

	if len(indices) <= b.layout.K {
		id := b.store.Allocate()
		buf := b.store.Get(id)
		b.layout.SetNDescendants(buf, int32(len(indices)))
		b.layout.SetInlineIDs(buf, indices)
		b.met.Preprocess(b.f, buf)
		return id + b.nItems, nil
	}

	left, right := b.split(indices)
	// b.lastSplit belongs to this call only until we recurse: makeTree on
	// the children will overwrite it with their own splits, so capture it
	// now rather than reading it back after both children return.
	sp := b.lastSplit

	leftID, err := b.makeTree(left)
	if err != nil {
		return 0, err
	}
	rightID, err := b.makeTree(right)
	if err != nil {
		return 0, err
	}

	id := b.store.Allocate()
	buf := b.store.Get(id)
	b.layout.SetNDescendants(buf, int32(len(indices)))
	b.layout.SetChildren(buf, leftID, rightID)
	b.layout.SetHeader(buf, sp.Header)
	b.layout.SetNormal(buf, sp.Normal)
	b.met.Preprocess(b.f, buf)
	return id + b.nItems, nil
}

func (b *treeBuilder) sample(indices []uint32) []uint32 {
	if len(indices) <= sampleSize {
		return indices
	}
	out := make([]uint32, sampleSize)
	copy(out, indices[:sampleSize])
	// Partial Fisher-Yates over the remainder so the sample isn't just
	// indices' arbitrary prefix.
	for i := sampleSize; i < len(indices); i++ {
		j := b.src.IntN(i + 1)
		if j < sampleSize {
			out[j] = indices[i]
		}
	}
	return out
}

func (b *treeBuilder) vectorsOf(ids []uint32) [][]float32 {
	pts := make([][]float32, len(ids))
	for i, id := range ids {
		pts[i] = b.leaves.Vector(id)
	}
	return pts
}

// split partitions indices into two non-empty, non-degenerate sides,
// storing the accepted hyperplane in b.lastSplit. It always terminates:
// after maxSplitAttempts failed attempts (first a data-driven create_split,
// then successive random hyperplanes) it falls back to an arbitrary
// position-parity partition, keeping the last attempted hyperplane as the
// node's stored split so query-time routing still has a hyperplane to
// evaluate even though it no longer perfectly matches the partition.
//
// Inlining the descendants directly into a descriptor node is only
// representable when the working set fits within K inline ids; for a
// working set larger than K (the only case split() is ever called for) a
// fixed-size node cannot hold every descendant id, so this resolves the
// tail case as real Annoy's implementation does: an arbitrary but
// always-balanced-by-count partition that is guaranteed to shrink the
// working set, so recursion still terminates.
func (b *treeBuilder) split(indices []uint32) (left, right []uint32) {
	sampled := b.sample(indices)
	points := b.vectorsOf(sampled)

	for attempt := 0; attempt < maxSplitAttempts; attempt++ {
		var sp metric.Split
		if attempt == 0 {
			sp = b.met.CreateSplit(b.f, points, b.src)
		} else {
			sp = b.met.RandomSplit(b.f, b.src)
		}
		b.lastSplit = sp

		left, right = b.partitionBySide(indices, sp)
		if len(left) > 0 && len(right) > 0 && !degenerate(len(left), len(right)) {
			return left, right
		}
		b.logger.Debug("degenerate split, retrying", "attempt", attempt, "n", len(indices))
	}

	// Arbitrary, always-valid fallback: split by position parity.
	left = left[:0]
	right = right[:0]
	for i, id := range indices {
		if i%2 == 0 {
			left = append(left, id)
		} else {
			right = append(right, id)
		}
	}
	return left, right
}

// partitionBySide routes every id in indices to a side using the split's
// margin. If margin() sends every item to the same side (side() ties can
// still do this in the worst case), items are instead assigned randomly per
// item so both sides are always non-empty.
func (b *treeBuilder) partitionBySide(indices []uint32, sp metric.Split) (left, right []uint32) {
	left = make([]uint32, 0, len(indices))
	right = make([]uint32, 0, len(indices))
	for _, id := range indices {
		v := b.leaves.Vector(id)
		m := b.met.Margin(b.f, sp.Header, sp.Normal, v)
		if b.met.Side(m, rng.NodeStream(b.seed, id)) {
			left = append(left, id)
		} else {
			right = append(right, id)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		left = left[:0]
		right = right[:0]
		for _, id := range indices {
			if b.src.Bool() {
				left = append(left, id)
			} else {
				right = append(right, id)
			}
		}
	}
	return left, right
}

func degenerate(left, right int) bool {
	total := left + right
	if total == 0 {
		return true
	}
	threshold := imbalanceFraction * float64(total)
	return float64(left) > threshold || float64(right) > threshold
}
