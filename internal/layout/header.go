package layout

import "encoding/binary"

// Header field offsets, relative to the start of the image.
const (
	offMagic           = 0  // 8 bytes
	offVersion         = 8  // 1 byte
	offFlags           = 9  // 1 byte
	offReserved0       = 10 // 2 bytes
	offFileCount       = 12 // 2 bytes
	offFileCapacity    = 14 // 2 bytes
	offEntrySize       = 16 // 2 bytes
	offReserved1       = 18 // 2 bytes
	offFileTableOffset = 20 // 4 bytes
	offDataStartOffset = 24 // 4 bytes
	offNextFreeOffset  = 28 // 4 bytes
	offFreeEntryOffset = 32 // 4 bytes
	offDeletedFiles    = 36 // 2 bytes
	offReserved2       = 38 // 26 bytes
)

// Header is the decoded 64-byte image header. Reserved fields are not
// represented; Encode always writes them as zero.
type Header struct {
	Magic           [8]byte
	Version         uint8
	Flags           uint8
	FileCount       uint16
	FileCapacity    uint16
	EntrySize       uint16
	FileTableOffset uint32
	DataStartOffset uint32
	NextFreeOffset  uint32
	FreeEntryOffset uint32
	DeletedFiles    uint16
}

// Full reports whether the header marks the directory as full.
func (h Header) Full() bool {
	return h.Flags == FlagFull
}

// EncodeTo writes h into buf[:HeaderSize].
func (h Header) EncodeTo(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrShortBuffer
	}
	buf = buf[:HeaderSize]
	clear(buf)

	le := binary.LittleEndian
	copy(buf[offMagic:offVersion], h.Magic[:])
	buf[offVersion] = h.Version
	buf[offFlags] = h.Flags
	le.PutUint16(buf[offFileCount:], h.FileCount)
	le.PutUint16(buf[offFileCapacity:], h.FileCapacity)
	le.PutUint16(buf[offEntrySize:], h.EntrySize)
	le.PutUint32(buf[offFileTableOffset:], h.FileTableOffset)
	le.PutUint32(buf[offDataStartOffset:], h.DataStartOffset)
	le.PutUint32(buf[offNextFreeOffset:], h.NextFreeOffset)
	le.PutUint32(buf[offFreeEntryOffset:], h.FreeEntryOffset)
	le.PutUint16(buf[offDeletedFiles:], h.DeletedFiles)
	return nil
}

// Encode returns the 64-byte encoding of h.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	_ = h.EncodeTo(buf)
	return buf
}

// DecodeHeader parses the first HeaderSize bytes of buf.
// It performs no validation; see Layout.Validate.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortBuffer
	}

	le := binary.LittleEndian
	var h Header
	copy(h.Magic[:], buf[offMagic:offVersion])
	h.Version = buf[offVersion]
	h.Flags = buf[offFlags]
	h.FileCount = le.Uint16(buf[offFileCount:])
	h.FileCapacity = le.Uint16(buf[offFileCapacity:])
	h.EntrySize = le.Uint16(buf[offEntrySize:])
	h.FileTableOffset = le.Uint32(buf[offFileTableOffset:])
	h.DataStartOffset = le.Uint32(buf[offDataStartOffset:])
	h.NextFreeOffset = le.Uint32(buf[offNextFreeOffset:])
	h.FreeEntryOffset = le.Uint32(buf[offFreeEntryOffset:])
	h.DeletedFiles = le.Uint16(buf[offDeletedFiles:])
	return h, nil
}
