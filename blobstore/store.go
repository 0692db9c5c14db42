package blobstore

import (
	"io"
	"os"
)

// ErrNotFound is returned when the named blob does not exist — for a
// Forest, this means Load or LoadForestFromBlobStore was pointed at a path
// that was never Save'd through this store. The default maps to
// os.ErrNotExist, which a local.Open already satisfies transitively through
// os.Open's own *PathError, so errors.Is(err, ErrNotFound) works without
// LocalStore needing to re-wrap anything.
var ErrNotFound = os.ErrNotExist

// BlobStore is the storage abstraction a Forest reads a saved node-store
// file through, in place of opening it off the local filesystem directly.
type BlobStore interface {
	// Open opens the blob named name (the path a Forest was Save'd to) for
	// reading.
	Open(name string) (Blob, error)
}

// Blob is a read-only, concurrency-safe handle to one saved node-store
// file's bytes.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is the optional interface a Blob implements when its bytes are
// already resident in memory (e.g. backed by a memory mapping), letting
// nodestore.BlobReader read through it with zero copies instead of going
// through ReadAt one record at a time.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	// This is a zero-copy operation if supported.
	Bytes() ([]byte, error)
}
