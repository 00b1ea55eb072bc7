package zvfs

import (
	"iter"
	"time"
)

// EntryInfo describes an active entry.
type EntryInfo struct {
	Name    string
	Size    int64
	Created time.Time
	Slot    int
	Offset  int64
}

// List returns the active entries in slot order.
//
// The sequence is lazy: the image is opened when iteration starts and closed
// when it ends or the caller stops early. Each iteration reads the image
// afresh. Empty slots and tombstones are skipped. An error ends the sequence
// and is yielded with a zero EntryInfo.
func (img *Image) List() iter.Seq2[EntryInfo, error] {
	return func(yield func(EntryInfo, error) bool) {
		stopped := false
		err := img.view(func(s *session) error {
			for i := range s.meta.Dir {
				e := &s.meta.Dir[i]
				if !e.Active() {
					continue
				}
				info := EntryInfo{
					Name:    e.NameString(),
					Size:    int64(e.Length),
					Created: e.CreatedTime(),
					Slot:    i,
					Offset:  int64(e.Start),
				}
				if !yield(info, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(EntryInfo{}, err)
		}
	}
}

// Entries collects List into a slice.
func (img *Image) Entries() ([]EntryInfo, error) {
	var out []EntryInfo
	for info, err := range img.List() {
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Info summarizes the header counters of an image.
type Info struct {
	FileCount      int
	DeletedFiles   int
	FreeSlots      int
	Capacity       int
	Size           int64
	DataStart      int64
	NextFreeOffset int64
	Full           bool
}

// Stat reports the header counters and the current size of the image file.
// FreeSlots is capacity minus active and tombstoned entries.
func (img *Image) Stat() (Info, error) {
	var info Info
	err := img.view(func(s *session) error {
		h := s.meta.Header
		info = Info{
			FileCount:      int(h.FileCount),
			DeletedFiles:   int(h.DeletedFiles),
			FreeSlots:      s.meta.FreeSlots(),
			Capacity:       int(h.FileCapacity),
			Size:           s.size,
			DataStart:      int64(h.DataStartOffset),
			NextFreeOffset: int64(h.NextFreeOffset),
			Full:           h.Full(),
		}
		return nil
	})
	return info, err
}
