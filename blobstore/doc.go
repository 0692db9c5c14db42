// Package blobstore provides the storage abstraction a Forest reads a
// saved index through: BlobStore.Open returns a Blob, a read-only,
// concurrency-safe view over one named object.
//
// LocalStore implements BlobStore over the local filesystem, opening each
// blob as a memory mapping (internal/mmap) so a Forest loaded through it
// gets the same zero-copy reads as persistence.LoadForest. A Blob that also
// implements Mappable exposes that mapping directly; nodestore.BlobReader
// uses it when present and falls back to ReadAt otherwise, so a BlobStore
// backed by something other than a local mmap (e.g. an object store) still
// works, just without the zero-copy path.
package blobstore
