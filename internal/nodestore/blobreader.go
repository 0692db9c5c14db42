package nodestore

import (
	"fmt"

	"github.com/hupe1980/annoyforest/blobstore"
)

// BlobReader is a Reader backed by a blobstore.Blob rather than a local
// memory mapping, so a forest can be searched through any BlobStore
// implementation without going through the local filesystem directly.
// When the blob supports blobstore.Mappable (as blobstore.LocalStore's
// blobs do), reads are zero-copy over the returned byte slice; otherwise
// every Get reads S bytes through the blob's io.ReaderAt.
type BlobReader struct {
	blob   blobstore.Blob
	layout Layout
	count  uint32
	bytes  []byte // non-nil when blob is blobstore.Mappable
}

// OpenBlobReader opens name in store and wraps it as a Reader for layout.
func OpenBlobReader(store blobstore.BlobStore, name string, layout Layout) (*BlobReader, error) {
	blob, err := store.Open(name)
	if err != nil {
		return nil, fmt.Errorf("nodestore: open blob %q: %w", name, err)
	}

	size := blob.Size()
	if layout.S <= 0 || size%int64(layout.S) != 0 {
		_ = blob.Close()
		return nil, ErrSizeMismatch
	}

	r := &BlobReader{blob: blob, layout: layout, count: uint32(size / int64(layout.S))}
	if m, ok := blob.(blobstore.Mappable); ok {
		if b, err := m.Bytes(); err == nil {
			r.bytes = b
		}
	}
	return r, nil
}

func (r *BlobReader) Layout() Layout { return r.layout }
func (r *BlobReader) Count() uint32  { return r.count }

// Get returns the record for id. When the underlying blob isn't mappable
// this allocates a fresh S-byte buffer per call; callers on a hot search
// path should prefer a blobstore.LocalStore or a caching wrapper in front
// of a remote store.
func (r *BlobReader) Get(id uint32) []byte {
	off := int64(id) * int64(r.layout.S)
	if r.bytes != nil {
		return r.bytes[off : off+int64(r.layout.S)]
	}
	buf := make([]byte, r.layout.S)
	if _, err := r.blob.ReadAt(buf, off); err != nil {
		panic(fmt.Sprintf("nodestore: blob read at %d: %v", off, err))
	}
	return buf
}

// Close releases the underlying blob.
func (r *BlobReader) Close() error {
	return r.blob.Close()
}
