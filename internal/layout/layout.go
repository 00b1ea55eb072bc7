// Package layout defines the byte-level structure of a zvfs image.
//
// An image is a 64-byte header, a directory of 32 fixed 64-byte slots and a
// data region. Header and directory are contiguous and together form the
// metadata block, which callers load and commit as a unit.
//
// All multi-byte integers are little-endian.
package layout

import (
	"errors"

	"github.com/meigma/zvfs/internal/sizing"
)

// Format constants. Layout exposes the same values as a single structure;
// these exist so fixed-size arrays can be declared.
const (
	HeaderSize = 64
	EntrySize  = 64
	Capacity   = 32
	NameSize   = 32
	Alignment  = 64
	Version    = 1
)

// Header flag values.
const (
	FlagFreeSlot uint8 = 0
	FlagFull     uint8 = 1
)

// Entry type values. Only regular blobs exist today.
const (
	TypeBlob uint8 = 0
)

// Sentinel errors reported by the codecs.
var (
	// ErrShortBuffer is returned when a buffer is smaller than the record it should hold.
	ErrShortBuffer = errors.New("layout: short buffer")

	// ErrBadMagic is returned when the header does not carry the format tag.
	ErrBadMagic = errors.New("layout: bad magic")

	// ErrBadGeometry is returned when the header disagrees with the layout's
	// capacity, entry size or region offsets.
	ErrBadGeometry = errors.New("layout: geometry mismatch")
)

// Magic is the literal tag stored in the first 8 bytes of every image.
var Magic = [8]byte{'Z', 'V', 'F', 'S', 'D', 'S', 'K', '1'}

// Layout describes the geometry of an image.
//
// There is exactly one layout in use; see Standard. Every component derives
// offsets from it so the codecs and the compactor cannot drift apart.
type Layout struct {
	HeaderSize int
	EntrySize  int
	Capacity   int
	NameSize   int
	Alignment  int
	Version    uint8
	Magic      [8]byte
}

var standard = Layout{
	HeaderSize: HeaderSize,
	EntrySize:  EntrySize,
	Capacity:   Capacity,
	NameSize:   NameSize,
	Alignment:  Alignment,
	Version:    Version,
	Magic:      Magic,
}

// Standard returns the layout of version 1 images.
func Standard() Layout {
	return standard
}

// TableOffset returns the byte offset of the first directory slot.
func (l Layout) TableOffset() int {
	return l.HeaderSize
}

// TableSize returns the size of the directory region in bytes.
func (l Layout) TableSize() int {
	return l.Capacity * l.EntrySize
}

// DataStart returns the offset of the data region of a freshly formatted image.
// It is also the size of the metadata block.
func (l Layout) DataStart() int {
	return l.TableOffset() + l.TableSize()
}

// MaxNameLen is the longest entry name in bytes. One byte of the name field
// is kept for the terminating zero.
func (l Layout) MaxNameLen() int {
	return l.NameSize - 1
}

// SlotOffset returns the absolute offset of directory slot i.
func (l Layout) SlotOffset(i int) uint32 {
	return uint32(l.TableOffset() + i*l.EntrySize) //nolint:gosec // bounded by DataStart
}

// SlotIndex maps an absolute slot offset back to its index.
// ok is false if off does not address the start of a slot.
func (l Layout) SlotIndex(off uint32) (int, bool) {
	o := int(off)
	if o < l.TableOffset() || o >= l.DataStart() {
		return 0, false
	}
	rel := o - l.TableOffset()
	if rel%l.EntrySize != 0 {
		return 0, false
	}
	return rel / l.EntrySize, true
}

// Padding returns the zero bytes that follow a blob of n bytes so the next
// blob starts on an alignment boundary.
func (l Layout) Padding(n uint64) uint64 {
	return sizing.Padding(n, uint64(l.Alignment)) //nolint:gosec // positive constant
}

// Span returns the aligned footprint of a blob of n bytes.
func (l Layout) Span(n uint64) (uint64, bool) {
	return sizing.AlignUp(n, uint64(l.Alignment)) //nolint:gosec // positive constant
}

// NewHeader returns the header of an empty image.
func (l Layout) NewHeader() Header {
	return Header{
		Magic:           l.Magic,
		Version:         l.Version,
		Flags:           FlagFreeSlot,
		FileCapacity:    uint16(l.Capacity),  //nolint:gosec // constant
		EntrySize:       uint16(l.EntrySize), //nolint:gosec // constant
		FileTableOffset: uint32(l.TableOffset()),
		DataStartOffset: uint32(l.DataStart()),
		NextFreeOffset:  uint32(l.DataStart()),
		FreeEntryOffset: l.SlotOffset(0),
	}
}

// Validate checks that h describes an image with this layout.
func (l Layout) Validate(h Header) error {
	if h.Magic != l.Magic {
		return ErrBadMagic
	}
	if int(h.FileCapacity) != l.Capacity || int(h.EntrySize) != l.EntrySize {
		return ErrBadGeometry
	}
	if int(h.FileTableOffset) != l.TableOffset() || int(h.DataStartOffset) < l.DataStart() {
		return ErrBadGeometry
	}
	if h.NextFreeOffset < h.DataStartOffset {
		return ErrBadGeometry
	}
	if h.FreeEntryOffset != 0 {
		if _, ok := l.SlotIndex(h.FreeEntryOffset); !ok {
			return ErrBadGeometry
		}
	}
	return nil
}
