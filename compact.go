package zvfs

import (
	"fmt"
	"io"
	"os"

	"github.com/meigma/zvfs/internal/file"
	"github.com/meigma/zvfs/internal/sizing"
)

// CompactResult reports what Compact reclaimed.
type CompactResult struct {
	// Removed is the number of tombstones dropped.
	Removed int

	// Kept is the number of active entries in the rebuilt image.
	Kept int

	// ReclaimedBytes is the old end-of-data offset minus the new one.
	ReclaimedBytes int64

	// SizeBefore and SizeAfter are the image file sizes around the rebuild.
	SizeBefore int64
	SizeAfter  int64
}

// Compact rebuilds the directory and data region without tombstones.
//
// Active entries keep their slot order and metadata and are repacked from
// the start of the data region, each on a 64-byte boundary. The directory is
// rebuilt densely, the deleted counter drops to zero and the free-entry
// pointer moves to the first slot after the survivors.
//
// The rebuilt image is staged in a temp file next to the original and
// renamed over it, so either the whole rebuild is visible or none of it.
func (img *Image) Compact() (CompactResult, error) {
	var (
		res    CompactResult
		staged *file.Staged
	)
	err := img.view(func(s *session) error {
		info, err := s.f.Stat()
		if err != nil {
			return fmt.Errorf("compact: stat image: %w", err)
		}
		staged, err = file.Stage(img.path, info.Mode().Perm())
		if err != nil {
			return fmt.Errorf("compact: stage rebuild: %w", err)
		}
		return img.rebuild(s, staged.File(), &res)
	})
	if err != nil {
		if staged != nil {
			staged.Discard()
		}
		return CompactResult{}, err
	}
	if err := staged.Commit(); err != nil {
		return CompactResult{}, fmt.Errorf("compact: replace image: %w", err)
	}

	img.log().Info("image compacted",
		"removed", res.Removed,
		"kept", res.Kept,
		"reclaimed_bytes", res.ReclaimedBytes,
		"size", res.SizeAfter,
	)
	return res, nil
}

// rebuild writes the compacted form of s into dst.
func (img *Image) rebuild(s *session, dst *os.File, res *CompactResult) error {
	old := s.meta
	base := uint64(old.Header.DataStartOffset)

	out := img.layout.NewMetadata()
	out.Header = old.Header
	data := &file.CountingWriter{W: io.NewOffsetWriter(dst, int64(base))} //nolint:gosec // 32-bit offset

	next := 0
	for i := range old.Dir {
		e := old.Dir[i]
		if e.IsEmpty() {
			continue
		}
		if e.Deleted {
			res.Removed++
			continue
		}

		r, err := s.blob(i)
		if err != nil {
			return fmt.Errorf("compact: %w", err)
		}
		start, err := sizing.ToUint32(base+data.N, ErrSizeLimitExceeded)
		if err != nil {
			return fmt.Errorf("compact: %w", err)
		}
		if _, err := io.Copy(data, r); err != nil {
			return fmt.Errorf("compact: copy %q: %w", e.NameString(), err)
		}
		if err := file.WriteZeros(data, img.layout.Padding(uint64(e.Length))); err != nil {
			return fmt.Errorf("compact: pad %q: %w", e.NameString(), err)
		}
		img.log().Debug("entry relocated", "name", e.NameString(), "from", e.Start, "to", start, "slot", next)

		e.Start = start
		out.Dir[next] = e
		next++
	}

	end, err := sizing.ToUint32(base+data.N, ErrSizeLimitExceeded)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	out.Header.FileCount = uint16(next) //nolint:gosec // bounded by capacity
	out.Header.DeletedFiles = 0
	out.Header.NextFreeOffset = end
	out.SetFreeSlot(next)

	if _, err := dst.WriteAt(out.Encode(), 0); err != nil {
		return fmt.Errorf("compact: write metadata: %w", err)
	}
	if err := dst.Truncate(int64(end)); err != nil {
		return fmt.Errorf("compact: truncate: %w", err)
	}

	res.Kept = next
	res.ReclaimedBytes = max(int64(old.Header.NextFreeOffset)-int64(end), 0)
	res.SizeBefore = s.size
	res.SizeAfter = int64(end)
	return nil
}
