package persistence

import (
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
)

// Meta is the `.meta` sidecar written next to a saved node-store file. It
// resolves the fragility of backward root-rediscovery (annoylib.h's
// `_load` breaks if two trees happen to finish with the same
// n_descendants at the point their roots were appended) by recording the
// roots directly; Load falls back to root-rediscovery only when the
// sidecar is missing or its checksum doesn't match its own contents.
type Meta struct {
	NItems    uint32   `json:"n_items"`
	Roots     []uint32 `json:"roots"`
	Metric    string   `json:"metric"`
	Dimension int      `json:"dimension"`
	Seed      uint32   `json:"seed"`
	Checksum  uint32   `json:"checksum"`

	// NodeChecksum is the CRC32 of the node-store file's contents at save
	// time, computed by SaveForest while it writes. Zero means no node
	// checksum was recorded (e.g. the sidecar predates this field); Load
	// skips the check rather than treating a missing checksum as a
	// mismatch.
	NodeChecksum uint32 `json:"node_checksum,omitempty"`
}

func metaPath(path string) string {
	return path + ".meta"
}

func (m Meta) contentChecksum() uint32 {
	cp := m
	cp.Checksum = 0
	b, _ := gojson.Marshal(cp)
	return CalculateChecksum(b)
}

// WriteMeta encodes m and writes it next to path as an atomic sidecar file.
func WriteMeta(path string, m Meta) error {
	m.Checksum = m.contentChecksum()
	b, err := gojson.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return SaveToFile(metaPath(path), func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	})
}

// ReadMeta reads and validates the sidecar next to path. It returns
// (Meta{}, false, nil) when the sidecar is absent, and an error only when
// it is present but unreadable or fails its own checksum.
func ReadMeta(path string) (Meta, bool, error) {
	b, err := os.ReadFile(metaPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, false, nil
		}
		return Meta{}, false, err
	}

	var m Meta
	if err := gojson.Unmarshal(b, &m); err != nil {
		return Meta{}, false, fmt.Errorf("persistence: corrupt meta sidecar for %q: %w", path, err)
	}
	if m.contentChecksum() != m.Checksum {
		return Meta{}, false, fmt.Errorf("persistence: meta sidecar checksum mismatch for %q", path)
	}
	return m, true, nil
}
