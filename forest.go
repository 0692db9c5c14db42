package annoyforest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/annoyforest/internal/builder"
	"github.com/hupe1980/annoyforest/internal/forestsearch"
	"github.com/hupe1980/annoyforest/internal/mmap"
	"github.com/hupe1980/annoyforest/internal/nodestore"
	"github.com/hupe1980/annoyforest/metric"
	"github.com/hupe1980/annoyforest/persistence"
)

// Phase is the forest's lifecycle state: Building -> Built -> Loaded ->
// Unloaded, with OnDiskBuilding an alternate entry into Building that
// streams straight to a file instead of an in-memory region.
type Phase int

const (
	PhaseBuilding Phase = iota
	PhaseOnDiskBuilding
	PhaseBuilt
	PhaseLoaded
	PhaseUnloaded
)

func (p Phase) String() string {
	switch p {
	case PhaseBuilding:
		return "building"
	case PhaseOnDiskBuilding:
		return "on_disk_building"
	case PhaseBuilt:
		return "built"
	case PhaseLoaded:
		return "loaded"
	case PhaseUnloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

// Forest is an ANN index over one fixed dimension and metric. The zero
// value is not usable; construct one with a per-metric builder (Angular,
// Euclidean, Manhattan, Hamming, Dot), then add items or Load a saved file.
type Forest struct {
	mu sync.RWMutex

	f      int
	met    metric.Metric
	layout nodestore.Layout

	phase Phase
	seed  uint32

	writer nodestore.Writer // set during Building/OnDiskBuilding
	reader nodestore.Reader // set once leaves/trees exist (Building onward)
	closer io.Closer        // non-nil for a mmap- or blob-backed reader

	roots  []uint32
	nItems uint32

	opts options
}

func newForest(f int, met metric.Metric, opts options) (*Forest, error) {
	if f <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidArgument, f)
	}
	layout := nodestore.NewLayout(f, met)
	store := nodestore.New(layout)
	return &Forest{
		f:      f,
		met:    met,
		layout: layout,
		phase:  PhaseBuilding,
		seed:   opts.seed,
		writer: store,
		reader: store,
		opts:   opts,
	}, nil
}

// OnDiskBuild switches a freshly created Building forest to stream its
// node store straight to path instead of holding it in memory. Legal only
// before any item has been added; illegal to call twice.
func (f *Forest) OnDiskBuild(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseBuilding {
		return fmt.Errorf("%w: on_disk_build requires phase %s, got %s", ErrIllegalState, PhaseBuilding, f.phase)
	}
	if f.writer.Count() != 0 {
		return fmt.Errorf("%w: on_disk_build must run before any add_item call", ErrIllegalState)
	}
	if path == "" {
		return fmt.Errorf("%w: on_disk_build path must not be empty", ErrInvalidArgument)
	}

	store, err := nodestore.CreateDiskStore(path, f.layout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	f.writer = store
	f.reader = store
	f.phase = PhaseOnDiskBuilding
	return nil
}

// AddItem stores v at item id, growing the forest to cover id and marking
// any ids skipped over as holes. Legal only in Building or OnDiskBuilding.
func (f *Forest) AddItem(id uint32, v []float32) (err error) {
	start := time.Now()
	defer func() { f.opts.metricsCollector.RecordAddItem(time.Since(start), err) }()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseBuilding && f.phase != PhaseOnDiskBuilding {
		err = fmt.Errorf("%w: add_item requires phase %s or %s, got %s", ErrIllegalState, PhaseBuilding, PhaseOnDiskBuilding, f.phase)
		f.opts.logger.LogAddItem(context.Background(), id, f.f, err)
		return err
	}
	if len(v) != f.f {
		err = newDimensionMismatch(f.f, len(v), ErrInvalidArgument)
		f.opts.logger.LogAddItem(context.Background(), id, f.f, err)
		return err
	}

	f.writer.EnsureCapacity(id)
	buf := f.writer.Get(id)
	f.layout.SetNDescendants(buf, 1)
	if f.met.Kind() == metric.Hamming {
		f.layout.SetPackedBits(buf, v)
	} else {
		f.layout.SetVector(buf, v)
	}

	if n := f.writer.Count(); n > f.nItems {
		f.nItems = n
	}

	f.opts.logger.LogAddItem(context.Background(), id, f.f, nil)
	return nil
}

// Build constructs nTrees trees (or autoscales when nTrees < 0) using up
// to opts.nJobs worker goroutines, and enters Built. Legal only in
// Building or OnDiskBuilding; idempotent calls fail with ErrIllegalState.
func (f *Forest) Build(ctx context.Context, nTrees int) (err error) {
	start := time.Now()
	defer func() { f.opts.metricsCollector.RecordBuild(nTrees, time.Since(start), err) }()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseBuilding && f.phase != PhaseOnDiskBuilding {
		err = fmt.Errorf("%w: build requires phase %s or %s, got %s", ErrIllegalState, PhaseBuilding, PhaseOnDiskBuilding, f.phase)
		f.opts.logger.LogBuild(ctx, nTrees, int(f.nItems), err)
		return err
	}

	roots, buildErr := builder.Build(ctx, f.writer, f.met, f.f, f.nItems, builder.Options{
		Seed:   f.seed,
		NTrees: nTrees,
		NJobs:  f.opts.nJobs,
	}, f.opts.logger.Logger)
	if buildErr != nil {
		err = fmt.Errorf("%w: %v", ErrOutOfMemory, buildErr)
		f.opts.logger.LogBuild(ctx, nTrees, int(f.nItems), err)
		return err
	}

	f.roots = roots
	f.reader = f.writer
	if f.phase == PhaseOnDiskBuilding {
		f.phase = PhaseLoaded // on-disk build writes straight to its final file; save is disallowed
		if c, ok := f.writer.(io.Closer); ok {
			f.closer = c
		}
	} else {
		f.phase = PhaseBuilt
	}

	f.opts.logger.LogBuild(ctx, nTrees, int(f.nItems), nil)
	return nil
}

// Unbuild drops all trees and re-enters Building, keeping every added
// item. Legal only on an in-memory Built forest.
func (f *Forest) Unbuild() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseBuilt {
		return fmt.Errorf("%w: unbuild requires phase %s, got %s", ErrIllegalState, PhaseBuilt, f.phase)
	}

	// PhaseBuilt is only reached from an in-memory build (OnDiskBuild
	// finishes straight into PhaseLoaded), so writer is always a *Store here.
	store := f.writer.(*nodestore.Store)

	trimmed := nodestore.New(f.layout)
	for id := uint32(0); id < f.nItems; id++ {
		buf := store.Get(id)
		if nodestore.IsHole(store, id) {
			continue
		}
		trimmed.EnsureCapacity(id)
		copy(trimmed.Get(id), buf)
	}

	f.writer = trimmed
	f.reader = trimmed
	f.roots = nil
	f.phase = PhaseBuilding
	return nil
}

// Save persists the forest's node store to path and enters Loaded on the
// new file. Legal only on a Built (in-memory) forest with at least one
// tree; disallowed after OnDiskBuild, since that forest already lives at
// its final path.
func (f *Forest) Save(path string) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	defer func() { f.opts.logger.LogSave(context.Background(), path, err) }()

	if f.phase != PhaseBuilt {
		err = fmt.Errorf("%w: save requires phase %s, got %s", ErrIllegalState, PhaseBuilt, f.phase)
		return err
	}
	if len(f.roots) == 0 {
		err = fmt.Errorf("%w: save requires at least one built tree", ErrIllegalState)
		return err
	}
	if path == "" {
		err = fmt.Errorf("%w: save path must not be empty", ErrIllegalState)
		return err
	}

	// PhaseBuilt (checked above) is only reached from an in-memory build.
	store := f.writer.(*nodestore.Store)

	nodeChecksum, saveErr := persistence.SaveForest(path, store)
	if saveErr != nil {
		err = fmt.Errorf("%w: %v", ErrIo, saveErr)
		return err
	}
	if f.opts.writeMeta {
		meta := persistence.Meta{
			NItems:       f.nItems,
			Roots:        f.roots,
			Metric:       f.met.Kind().String(),
			Dimension:    f.f,
			Seed:         f.seed,
			NodeChecksum: nodeChecksum,
		}
		if metaErr := persistence.WriteMeta(path, meta); metaErr != nil {
			err = fmt.Errorf("%w: %v", ErrIo, metaErr)
			return err
		}
	}

	return f.loadLocked(path, false)
}

// Load resets the forest and memory-maps (or, with WithBlobStore, opens
// through a blob store) the file at path, entering Loaded. Legal from any
// phase; a mismatched dimension or an unreadable file fails with ErrIo.
func (f *Forest) Load(path string, prefault bool) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	defer func() { f.opts.logger.LogLoad(context.Background(), path, int(f.nItems), err) }()

	if err = f.unloadLocked(); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return f.loadLocked(path, prefault)
}

func (f *Forest) loadLocked(path string, prefault bool) error {
	var (
		reader nodestore.Reader
		closer io.Closer
		roots  []uint32
		nItems uint32
	)

	if f.opts.blobStore != nil {
		br, r, n, err := persistence.LoadForestFromBlobStore(f.opts.blobStore, path, f.layout)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
		reader, closer, roots, nItems = br, br, r, n
	} else {
		mapped, r, n, err := persistence.LoadForest(path, f.layout)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
		if prefault || f.opts.prefault {
			// hint the kernel to pull the whole mapping into the page cache
			// now rather than satisfying it fault-by-fault on first query
			if err := mapped.Advise(mmap.AccessWillNeed); err != nil {
				return fmt.Errorf("%w: %v", ErrIo, err)
			}
		}
		reader, closer, roots, nItems = mapped, mapped, r, n
	}

	if meta, ok, err := persistence.ReadMeta(path); err == nil && ok {
		if meta.Dimension != f.f {
			_ = closer.Close()
			return newDimensionMismatch(f.f, meta.Dimension, ErrIo)
		}
		roots = meta.Roots
		nItems = meta.NItems
		f.seed = meta.Seed

		if meta.NodeChecksum != 0 {
			if got := persistence.ChecksumStore(reader); got != meta.NodeChecksum {
				_ = closer.Close()
				return fmt.Errorf("%w: %v", ErrIo, &persistence.ChecksumMismatchError{Expected: meta.NodeChecksum, Actual: got})
			}
		}
	}

	f.reader = reader
	f.writer = nil
	f.closer = closer
	f.roots = roots
	f.nItems = nItems
	f.phase = PhaseLoaded
	return nil
}

// Unload releases the memory mapping (or blob handle) and returns to
// Unloaded. Legal only in Loaded.
func (f *Forest) Unload() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseLoaded {
		return fmt.Errorf("%w: unload requires phase %s, got %s", ErrIllegalState, PhaseLoaded, f.phase)
	}
	err := f.unloadLocked()
	f.opts.logger.LogUnload(context.Background(), "", err)
	return err
}

func (f *Forest) unloadLocked() error {
	var err error
	if f.closer != nil {
		err = f.closer.Close()
		f.closer = nil
	}
	f.reader = nil
	f.roots = nil
	f.phase = PhaseUnloaded
	return err
}

// GetNNSByVector returns up to k approximate nearest neighbors of query.
// searchK < 0 defaults to k * n_trees. Legal in Built or Loaded.
func (f *Forest) GetNNSByVector(query []float32, k, searchK int) (result []forestsearch.Neighbor, err error) {
	start := time.Now()
	defer func() { f.opts.metricsCollector.RecordSearch(k, time.Since(start), err) }()

	f.mu.RLock()
	defer f.mu.RUnlock()

	defer func() { f.opts.logger.LogSearch(context.Background(), k, len(result), err) }()

	if err = f.checkQueryablePhase(); err != nil {
		return nil, err
	}
	if k <= 0 {
		err = fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
		return nil, err
	}
	if len(query) != f.f {
		err = newDimensionMismatch(f.f, len(query), ErrInvalidArgument)
		return nil, err
	}

	result = forestsearch.Search(f.reader, f.met, f.f, f.roots, query, k, searchK)
	return result, nil
}

// GetNNSByItem is GetNNSByVector using the stored vector of item i as the
// query.
func (f *Forest) GetNNSByItem(i uint32, k, searchK int) (result []forestsearch.Neighbor, err error) {
	f.mu.RLock()
	if phaseErr := f.checkQueryablePhase(); phaseErr != nil {
		f.mu.RUnlock()
		return nil, phaseErr
	}
	query, vecErr := f.leafVectorLocked(i)
	f.mu.RUnlock()
	if vecErr != nil {
		return nil, vecErr
	}
	return f.GetNNSByVector(query, k, searchK)
}

func (f *Forest) checkQueryablePhase() error {
	if f.phase != PhaseBuilt && f.phase != PhaseLoaded {
		return fmt.Errorf("%w: search requires phase %s or %s, got %s", ErrIllegalState, PhaseBuilt, PhaseLoaded, f.phase)
	}
	return nil
}

// GetItemVector returns a copy of item i's stored vector.
func (f *Forest) GetItemVector(i uint32) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, err := f.leafVectorLocked(i)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, nil
}

func (f *Forest) leafVectorLocked(id uint32) ([]float32, error) {
	if f.reader == nil {
		return nil, fmt.Errorf("%w: no item is present", ErrIllegalState)
	}
	if id >= f.nItems || nodestore.IsHole(f.reader, id) {
		return nil, &ErrItemNotFound{ID: id}
	}
	return nodestore.LeafVector(f.reader, f.met, id), nil
}

// GetDistance returns normalized_distance(distance(item_i, item_j)).
func (f *Forest) GetDistance(i, j uint32) (float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	vi, err := f.leafVectorLocked(i)
	if err != nil {
		return 0, err
	}
	vj, err := f.leafVectorLocked(j)
	if err != nil {
		return 0, err
	}
	return f.met.NormalizedDistance(f.met.Distance(f.f, vi, vj)), nil
}

// GetNItems returns the item count including holes' upper bound.
func (f *Forest) GetNItems() uint32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nItems
}

// GetNTrees returns the length of the roots list. Zero before Build.
func (f *Forest) GetNTrees() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.roots)
}

// SetSeed reseeds a Building forest's random source. Legal only in
// Building.
func (f *Forest) SetSeed(s uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseBuilding {
		return fmt.Errorf("%w: set_seed requires phase %s, got %s", ErrIllegalState, PhaseBuilding, f.phase)
	}
	f.seed = s
	return nil
}

// Phase reports the forest's current lifecycle phase.
func (f *Forest) Phase() Phase {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.phase
}

// PresentItems returns the set of non-hole item ids below GetNItems(): the
// ids that a caller actually added, as opposed to gaps add_item skipped
// over. forestsearch never needs this — holes are never linked as a tree
// child, so they never surface as candidates — but it's useful for
// tooling that enumerates what a forest actually holds.
func (f *Forest) PresentItems() *roaring.Bitmap {
	f.mu.RLock()
	defer f.mu.RUnlock()

	bm := roaring.New()
	if f.reader == nil {
		return bm
	}
	for id := uint32(0); id < f.nItems; id++ {
		if !nodestore.IsHole(f.reader, id) {
			bm.Add(id)
		}
	}
	return bm
}

