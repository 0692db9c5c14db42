//go:build !windows

package nodestore

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// DiskStore is the growable node store used during OnDiskBuilding: nodes
// are written straight to a memory-mapped file instead of an in-memory
// region, so save() is unnecessary (and disallowed) once build finishes.
// Growth truncates the file larger and remaps it, using the same unix
// mmap/munmap syscalls internal/mmap uses for the read-only path, adapted
// here for a writable, growable mapping.
type DiskStore struct {
	layout Layout
	file   *os.File

	mu       sync.Mutex
	data     []byte
	capacity int64 // bytes currently mapped
	count    uint32
}

const initialDiskCapacity = 4096 * 64 // bytes, grown geometrically from here

// CreateDiskStore creates (truncating) the file at path and maps it
// read-write for streaming node writes during an on-disk build.
func CreateDiskStore(path string, layout Layout) (*DiskStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	s := &DiskStore{layout: layout, file: f}
	if err := s.growLocked(initialDiskCapacity); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *DiskStore) Layout() Layout { return s.layout }

func (s *DiskStore) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *DiskStore) Get(id uint32) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	off := int64(id) * int64(s.layout.S)
	return s.data[off : off+int64(s.layout.S)]
}

func (s *DiskStore) Allocate() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.count
	need := (int64(id) + 1) * int64(s.layout.S)
	if need > s.capacity {
		_ = s.growLocked(need)
	}
	s.count = id + 1
	return id
}

func (s *DiskStore) EnsureCapacity(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < s.count {
		return
	}
	need := (int64(id) + 1) * int64(s.layout.S)
	if need > s.capacity {
		_ = s.growLocked(need)
	}
	s.count = id + 1
}

// growLocked remaps the file at a larger size, doubling from the current
// capacity (or from initialDiskCapacity on first use).
func (s *DiskStore) growLocked(need int64) error {
	newCap := s.capacity * 2
	if newCap < need {
		newCap = need
	}
	if newCap < initialDiskCapacity {
		newCap = initialDiskCapacity
	}

	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			return err
		}
	}
	if err := s.file.Truncate(newCap); err != nil {
		return err
	}
	data, err := unix.Mmap(int(s.file.Fd()), 0, int(newCap), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	s.data = data
	s.capacity = newCap
	return nil
}

// Close unmaps and truncates the file to its logical size (dropping the
// padding used for geometric growth), then closes it.
func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logical := int64(s.count) * int64(s.layout.S)
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			s.file.Close()
			return err
		}
		s.data = nil
	}
	if err := s.file.Truncate(logical); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
