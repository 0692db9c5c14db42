package blobstore

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/hupe1980/annoyforest/internal/mmap"
)

// LocalStore is a BlobStore over the local filesystem: name resolves to a
// path under root, opened as a memory mapping so a forest loaded through it
// (WithBlobStore(NewLocalStore(dir))) gets the same zero-copy Get path as
// persistence.LoadForest opening the file directly.
type LocalStore struct {
	root string
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Open memory-maps root/name and returns it as a Blob. The returned Blob
// also implements Mappable, so nodestore.BlobReader reads through it with
// no copying.
func (s *LocalStore) Open(name string) (Blob, error) {
	path := filepath.Join(s.root, name)
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %q: %w", name, err)
	}
	return &localBlob{m: m, name: name}, nil
}

type localBlob struct {
	m    *mmap.Mapping
	name string
}

func (b *localBlob) ReadAt(p []byte, off int64) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	data := b.m.Bytes()
	if off < 0 || off >= int64(len(data)) {
		return 0, io.EOF
	}
	n = copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *localBlob) Close() error {
	if err := b.m.Close(); err != nil {
		return fmt.Errorf("blobstore: close %q: %w", b.name, err)
	}
	return nil
}

func (b *localBlob) Size() int64 {
	return int64(len(b.m.Bytes()))
}

func (b *localBlob) Bytes() ([]byte, error) {
	return b.m.Bytes(), nil
}
