package zvfs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/meigma/zvfs/internal/file"
	"github.com/meigma/zvfs/internal/layout"
	"github.com/meigma/zvfs/internal/sizing"
)

// Add stores size bytes read from r under name.
//
// The blob is appended at the end of the data region and zero padded to the
// next 64-byte boundary. It is placed in the slot addressed by the free-entry
// pointer; tombstoned slots are never reused, only Compact reclaims them.
//
// All preconditions are checked before anything is written. The blob bytes
// are written and synced first; the header and directory follow in a single
// write, so the entry becomes visible only once its data is in place. If r
// yields fewer than size bytes the image is left logically unmodified.
func (img *Image) Add(name string, r io.Reader, size int64) error {
	if size < 0 {
		return fmt.Errorf("add %q: negative size %d", name, size)
	}
	return img.update(func(s *session) error {
		slot, start, end, err := img.plan(s, name, uint64(size))
		if err != nil {
			return fmt.Errorf("add %q: %w", name, err)
		}
		img.log().Debug("placing blob", "name", name, "slot", slot, "start", start, "end", end)

		if err := writeBlob(s, start, r, size); err != nil {
			return fmt.Errorf("add %q: %w", name, err)
		}

		m := s.meta
		m.Dir[slot] = layout.NewEntry(name, start, uint32(size), img.cfg.now()) //nolint:gosec // checked by plan
		m.Header.NextFreeOffset = end
		m.Header.FileCount++
		next, ok := m.Dir.NextEmpty(slot + 1)
		if !ok {
			next = -1
		}
		m.SetFreeSlot(next)

		if err := s.commit(); err != nil {
			return fmt.Errorf("add %q: %w", name, err)
		}
		img.log().Info("entry added", "name", name, "size", size, "slot", slot, "full", m.Header.Full())
		return nil
	})
}

// AddBytes stores data under name.
func (img *Image) AddBytes(name string, data []byte) error {
	return img.Add(name, bytes.NewReader(data), int64(len(data)))
}

// plan checks every precondition of an insert and returns the slot to fill,
// the blob's start offset and the new end of the data region.
func (img *Image) plan(s *session, name string, size uint64) (slot int, start, end uint32, err error) {
	m := s.meta
	if m.Header.Full() {
		return 0, 0, 0, ErrDirectoryFull
	}
	slot, ok := m.FreeSlot()
	if !ok {
		return 0, 0, 0, ErrDirectoryFull
	}
	if !m.Dir[slot].IsEmpty() {
		return 0, 0, 0, fmt.Errorf("%w: free-entry pointer addresses used slot %d", ErrInvalidFormat, slot)
	}
	if err := img.validateName(name); err != nil {
		return 0, 0, 0, err
	}
	if _, exists := m.Dir.FindActive(name); exists {
		return 0, 0, 0, ErrAlreadyExists
	}

	start = m.Header.NextFreeOffset
	span, ok := img.layout.Span(size)
	if !ok {
		return 0, 0, 0, ErrSizeLimitExceeded
	}
	newEnd, ok := sizing.AddUint64(uint64(start), span)
	if !ok || newEnd > img.cfg.maxImageSize {
		return 0, 0, 0, fmt.Errorf("%w: image would grow to %d bytes, limit %d", ErrSizeLimitExceeded, newEnd, img.cfg.maxImageSize)
	}
	end, err = sizing.ToUint32(newEnd, ErrSizeLimitExceeded)
	if err != nil {
		return 0, 0, 0, err
	}
	return slot, start, end, nil
}

func (img *Image) validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case bytes.IndexByte([]byte(name), 0) >= 0:
		return fmt.Errorf("%w: name contains a zero byte", ErrInvalidName)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidName)
	case len(name) > img.layout.MaxNameLen():
		return fmt.Errorf("%w: %q is %d bytes, max %d", ErrNameTooLong, name, len(name), img.layout.MaxNameLen())
	}
	return nil
}

// writeBlob copies size bytes from r to start, pads to the alignment
// boundary and syncs.
func writeBlob(s *session, start uint32, r io.Reader, size int64) error {
	w := &file.CountingWriter{W: io.NewOffsetWriter(s.f, int64(start))}
	if _, err := io.CopyN(w, r, size); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("source ended after %d of %d bytes: %w", w.N, size, io.ErrUnexpectedEOF)
		}
		return fmt.Errorf("write blob: %w", err)
	}
	if err := file.WriteZeros(w, s.meta.Layout.Padding(w.N)); err != nil {
		return fmt.Errorf("write padding: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync blob: %w", err)
	}
	return nil
}
