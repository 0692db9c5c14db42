package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/annoyforest/blobstore"
	"github.com/hupe1980/annoyforest/internal/mmap"
	"github.com/hupe1980/annoyforest/internal/nodestore"
)

// SaveToFile writes writeFunc's output to filename by way of a temp file in
// the same directory, fsync'd and renamed into place, so a crash mid-write
// never leaves a half-written index visible at the target path.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens filename and hands a buffered reader to readFunc.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}

// SaveForest writes store's node records, in id order, to path. This is the
// entire on-disk format: no header, no version, no footer. It returns a
// CRC32 checksum of everything written, computed in the same pass as the
// write itself, for a caller to record alongside the save (the `.meta`
// sidecar's NodeChecksum field).
func SaveForest(path string, store *nodestore.Store) (uint32, error) {
	var sum uint32
	err := SaveToFile(path, func(w io.Writer) error {
		cw := NewChecksumWriter(w)
		if _, err := store.WriteTo(cw); err != nil {
			return err
		}
		sum = cw.Sum()
		return nil
	})
	return sum, err
}

// ChecksumStore streams every record in r through a CRC32 accumulator, so a
// caller can verify a loaded store's content matches what was saved without
// assuming the store is backed by one contiguous byte slice (a BlobReader
// over a remote store isn't, unless it happens to be blobstore.Mappable).
func ChecksumStore(r nodestore.Reader) uint32 {
	cw := NewChecksumWriter(io.Discard)
	for i := uint32(0); i < r.Count(); i++ {
		_, _ = cw.Write(r.Get(i))
	}
	return cw.Sum()
}

// LoadForest memory-maps path read-only and rediscovers tree roots by
// scanning backward from the last record: every record sharing the final
// record's n_descendants is a root (annoylib.h's `_load`), because build
// appends every tree's root, in tree order, as the very last `n_trees`
// records and a root's n_descendants equals the item count it covers.
func LoadForest(path string, layout nodestore.Layout) (*nodestore.MappedStore, []uint32, uint32, error) {
	mapping, err := mmap.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("persistence: open %q: %w", path, err)
	}

	store, err := nodestore.NewMappedStore(mapping, layout)
	if err != nil {
		_ = mapping.Close()
		return nil, nil, 0, err
	}

	roots, nItems, err := discoverRoots(store, layout)
	if err != nil {
		_ = mapping.Close()
		return nil, nil, 0, fmt.Errorf("persistence: %q: %w", path, err)
	}

	return store, roots, nItems, nil
}

// discoverRoots runs the same backward scan as LoadForest against any
// nodestore.Reader, so blob-backed loads get the same root-rediscovery
// guarantee as local mmap loads.
func discoverRoots(store nodestore.Reader, layout nodestore.Layout) ([]uint32, uint32, error) {
	count := store.Count()
	if count == 0 {
		return nil, 0, fmt.Errorf("persistence: store has no nodes")
	}

	var roots []uint32
	m := int32(-1)
	for i := int64(count) - 1; i >= 0; i-- {
		id := uint32(i)
		k := layout.NDescendants(store.Get(id))
		if m == -1 || k == m {
			roots = append(roots, id)
			m = k
		} else {
			break
		}
	}
	return roots, uint32(m), nil
}

// LoadForestFromBlobStore opens name in bs and rediscovers roots the same
// way LoadForest does, going through a blobstore.BlobStore instead of the
// local filesystem directly. Prefer LoadForest when the file is already
// local, since it gets a true zero-copy mmap; this exists for callers whose
// BlobStore implementation fronts something else (a network object store,
// a cache layer, ...).
func LoadForestFromBlobStore(bs blobstore.BlobStore, name string, layout nodestore.Layout) (*nodestore.BlobReader, []uint32, uint32, error) {
	reader, err := nodestore.OpenBlobReader(bs, name, layout)
	if err != nil {
		return nil, nil, 0, err
	}

	roots, nItems, err := discoverRoots(reader, layout)
	if err != nil {
		_ = reader.Close()
		return nil, nil, 0, err
	}
	return reader, roots, nItems, nil
}
