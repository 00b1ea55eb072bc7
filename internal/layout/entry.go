package layout

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Entry field offsets, relative to the start of a slot.
const (
	offName     = 0  // 32 bytes
	offStart    = 32 // 4 bytes
	offLength   = 36 // 4 bytes
	offType     = 40 // 1 byte
	offDeleted  = 41 // 1 byte
	offReserved = 42 // 2 bytes
	offCreated  = 44 // 8 bytes
	offTail     = 52 // 12 bytes
)

// Entry is one decoded directory slot.
//
// A slot is empty when every byte of Name is zero. An entry with a non-zero
// name is either active or a tombstone, depending on Deleted.
type Entry struct {
	Name    [NameSize]byte
	Start   uint32
	Length  uint32
	Type    uint8
	Deleted bool
	Created uint64 // seconds since the Unix epoch
}

// NewEntry returns an active entry. name must already be validated to fit
// the name field with its terminator.
func NewEntry(name string, start, length uint32, created time.Time) Entry {
	e := Entry{
		Start:   start,
		Length:  length,
		Type:    TypeBlob,
		Created: uint64(max(created.Unix(), 0)), //nolint:gosec // clamped
	}
	copy(e.Name[:NameSize-1], name)
	return e
}

// IsEmpty reports whether the slot has never been used.
func (e *Entry) IsEmpty() bool {
	return e.Name == [NameSize]byte{}
}

// Active reports whether the slot holds a live entry.
func (e *Entry) Active() bool {
	return !e.IsEmpty() && !e.Deleted
}

// NameString returns the name up to its zero terminator.
func (e *Entry) NameString() string {
	n := bytes.IndexByte(e.Name[:], 0)
	if n < 0 {
		n = NameSize
	}
	return string(e.Name[:n])
}

// CreatedTime returns the creation timestamp.
func (e *Entry) CreatedTime() time.Time {
	return time.Unix(int64(e.Created), 0) //nolint:gosec // timestamps fit in int64
}

// End returns the offset one past the last blob byte.
func (e *Entry) End() uint64 {
	return uint64(e.Start) + uint64(e.Length)
}

// EncodeTo writes e into buf[:EntrySize].
func (e *Entry) EncodeTo(buf []byte) error {
	if len(buf) < EntrySize {
		return ErrShortBuffer
	}
	buf = buf[:EntrySize]
	clear(buf)

	le := binary.LittleEndian
	copy(buf[offName:offStart], e.Name[:])
	le.PutUint32(buf[offStart:], e.Start)
	le.PutUint32(buf[offLength:], e.Length)
	buf[offType] = e.Type
	if e.Deleted {
		buf[offDeleted] = 1
	}
	le.PutUint64(buf[offCreated:], e.Created)
	return nil
}

// DecodeEntry parses the first EntrySize bytes of buf.
func DecodeEntry(buf []byte) (Entry, error) {
	if len(buf) < EntrySize {
		return Entry{}, ErrShortBuffer
	}

	le := binary.LittleEndian
	var e Entry
	copy(e.Name[:], buf[offName:offStart])
	e.Start = le.Uint32(buf[offStart:])
	e.Length = le.Uint32(buf[offLength:])
	e.Type = buf[offType]
	e.Deleted = buf[offDeleted] != 0
	e.Created = le.Uint64(buf[offCreated:])
	return e, nil
}
