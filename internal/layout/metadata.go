package layout

// Metadata is the header plus the full directory. On disk the two regions are
// contiguous, so the block is read and written with a single call.
type Metadata struct {
	Layout Layout
	Header Header
	Dir    Directory
}

// NewMetadata returns the metadata of an empty image.
func (l Layout) NewMetadata() *Metadata {
	return &Metadata{
		Layout: l,
		Header: l.NewHeader(),
		Dir:    make(Directory, l.Capacity),
	}
}

// DecodeMetadata parses a metadata block of l.DataStart() bytes.
// The header is not validated; call Layout.Validate on m.Header.
func (l Layout) DecodeMetadata(buf []byte) (*Metadata, error) {
	if len(buf) < l.DataStart() {
		return nil, ErrShortBuffer
	}
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	m := &Metadata{Layout: l, Header: h, Dir: make(Directory, l.Capacity)}
	for i := range m.Dir {
		off := l.TableOffset() + i*l.EntrySize
		if m.Dir[i], err = DecodeEntry(buf[off : off+l.EntrySize]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Encode returns the metadata block.
func (m *Metadata) Encode() []byte {
	l := m.Layout
	buf := make([]byte, l.DataStart())
	_ = m.Header.EncodeTo(buf)
	for i := range m.Dir {
		off := l.TableOffset() + i*l.EntrySize
		_ = m.Dir[i].EncodeTo(buf[off : off+l.EntrySize])
	}
	return buf
}

// FreeSlot returns the slot addressed by the free-entry pointer.
// ok is false when the directory has no never-used slot left.
func (m *Metadata) FreeSlot() (int, bool) {
	if m.Header.FreeEntryOffset == 0 {
		return -1, false
	}
	return m.Layout.SlotIndex(m.Header.FreeEntryOffset)
}

// SetFreeSlot points the free-entry pointer at slot i. A negative i marks the
// directory full.
func (m *Metadata) SetFreeSlot(i int) {
	if i < 0 || i >= len(m.Dir) {
		m.Header.FreeEntryOffset = 0
		m.Header.Flags = FlagFull
		return
	}
	m.Header.FreeEntryOffset = m.Layout.SlotOffset(i)
	m.Header.Flags = FlagFreeSlot
}

// FreeSlots returns capacity minus active and tombstoned entries as recorded
// in the header.
func (m *Metadata) FreeSlots() int {
	return max(int(m.Header.FileCapacity)-int(m.Header.FileCount)-int(m.Header.DeletedFiles), 0)
}
