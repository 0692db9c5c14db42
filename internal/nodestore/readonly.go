package nodestore

import "github.com/hupe1980/annoyforest/internal/mmap"

// MappedStore is the read-only node store backing the Loaded phase: a
// direct view over a memory-mapped node-store file, with no copying and no
// parsing beyond computing record count from file size.
type MappedStore struct {
	layout  Layout
	mapping *mmap.Mapping
	count   uint32
}

// NewMappedStore wraps an open mapping. The mapping's length must be a
// positive multiple of layout.S; ErrSizeMismatch is returned otherwise.
func NewMappedStore(mapping *mmap.Mapping, layout Layout) (*MappedStore, error) {
	size := mapping.Size()
	if layout.S <= 0 || size%layout.S != 0 {
		return nil, ErrSizeMismatch
	}
	return &MappedStore{
		layout:  layout,
		mapping: mapping,
		count:   uint32(size / layout.S),
	}, nil
}

func (m *MappedStore) Layout() Layout { return m.layout }
func (m *MappedStore) Count() uint32  { return m.count }

func (m *MappedStore) Get(id uint32) []byte {
	off := int(id) * m.layout.S
	return m.mapping.Bytes()[off : off+m.layout.S]
}

// Close releases the underlying mapping.
func (m *MappedStore) Close() error {
	return m.mapping.Close()
}

// Advise forwards an access-pattern hint to the underlying mapping.
func (m *MappedStore) Advise(pattern mmap.AccessPattern) error {
	return m.mapping.Advise(pattern)
}
