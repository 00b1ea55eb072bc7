package zvfs

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/zvfs/internal/layout"
	"github.com/meigma/zvfs/internal/testutil"
)

func sumSizes(t *testing.T, img *Image) int64 {
	t.Helper()

	entries, err := img.Entries()
	require.NoError(t, err)
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}

func TestCompactConservesActiveEntries(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	blobs := make(map[string][]byte)
	var order []string
	for i := range 10 {
		name := fmt.Sprintf("file-%d.bin", i)
		data := testutil.Pattern(37*i+5, byte(i))
		require.NoError(t, img.AddBytes(name, data))
		blobs[name] = data
		order = append(order, name)
	}
	removed := []string{"file-1.bin", "file-4.bin", "file-8.bin"}
	for _, name := range removed {
		require.NoError(t, img.Remove(name))
	}

	totalBefore := sumSizes(t, img)
	before, err := img.Stat()
	require.NoError(t, err)

	res, err := img.Compact()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Removed)
	assert.Equal(t, 7, res.Kept)

	after, err := img.Stat()
	require.NoError(t, err)
	assert.Equal(t, totalBefore, sumSizes(t, img))
	assert.Equal(t, before.NextFreeOffset-after.NextFreeOffset, res.ReclaimedBytes)
	assert.Equal(t, 7, after.FileCount)
	assert.Equal(t, 0, after.DeletedFiles)
	assert.Equal(t, 25, after.FreeSlots)
	assert.Equal(t, after.NextFreeOffset, after.Size, "image truncated to end of data")
	assert.Equal(t, after.Size, res.SizeAfter)
	assert.Equal(t, before.Size, res.SizeBefore)

	for _, name := range removed {
		_, err := img.ReadFile(name)
		require.ErrorIs(t, err, ErrNotFound, name)
	}

	entries, err := img.Entries()
	require.NoError(t, err)
	var names []string
	for i, e := range entries {
		names = append(names, e.Name)
		assert.Equal(t, i, e.Slot, "directory is dense")
		assert.Zero(t, e.Offset%64, "entries stay aligned")

		got, err := img.ReadFile(e.Name)
		require.NoError(t, err)
		assert.Equal(t, blobs[e.Name], got)
	}
	var want []string
	for _, name := range order {
		if !contains(removed, name) {
			want = append(want, name)
		}
	}
	assert.Equal(t, want, names, "relative order preserved")

	m := testutil.ReadMetadata(t, img.Path())
	assert.Equal(t, layout.Standard().SlotOffset(7), m.Header.FreeEntryOffset)
	for i := 7; i < 32; i++ {
		assert.True(t, m.Dir[i].IsEmpty(), "slot %d", i)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCompactPacksFromDataStart(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	require.NoError(t, img.AddBytes("a", testutil.Pattern(10, 1)))
	require.NoError(t, img.AddBytes("b", testutil.Pattern(70, 2)))
	require.NoError(t, img.AddBytes("c", testutil.Pattern(64, 3)))
	require.NoError(t, img.Remove("a"))

	_, err := img.Compact()
	require.NoError(t, err)

	m := testutil.ReadMetadata(t, img.Path())
	assert.Equal(t, "b", m.Dir[0].NameString())
	assert.Equal(t, uint32(2112), m.Dir[0].Start)
	assert.Equal(t, "c", m.Dir[1].NameString())
	assert.Equal(t, uint32(2112+128), m.Dir[1].Start)
	assert.Equal(t, uint32(2112+128+64), m.Header.NextFreeOffset)

	raw := snapshot(t, img)
	assert.Equal(t, make([]byte, 58), raw[2112+70:2112+128], "padding is zeroed")
}

func TestCompactPreservesEntryMetadata(t *testing.T) {
	t.Parallel()

	clock := time.Unix(1_600_000_000, 0)
	img := newTestImage(t, WithClock(func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}))
	require.NoError(t, img.AddBytes("a", []byte("a")))
	require.NoError(t, img.AddBytes("b", []byte("b")))
	require.NoError(t, img.Remove("a"))

	before, err := img.Entries()
	require.NoError(t, err)
	_, err = img.Compact()
	require.NoError(t, err)
	after, err := img.Entries()
	require.NoError(t, err)

	require.Len(t, after, 1)
	assert.Equal(t, before[0].Name, after[0].Name)
	assert.Equal(t, before[0].Size, after[0].Size)
	assert.True(t, before[0].Created.Equal(after[0].Created))
}

func TestCompactFullDirectory(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	for i := range 32 {
		require.NoError(t, img.AddBytes(fmt.Sprintf("f%02d", i), []byte{byte(i)}))
	}

	res, err := img.Compact()
	require.NoError(t, err)
	assert.Equal(t, 0, res.Removed)
	assert.Equal(t, int64(0), res.ReclaimedBytes)

	m := testutil.ReadMetadata(t, img.Path())
	assert.True(t, m.Header.Full())
	assert.Equal(t, uint32(0), m.Header.FreeEntryOffset)
	assert.Equal(t, uint16(32), m.Header.FileCount)
}

func TestCompactAllRemoved(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, img.AddBytes(name, testutil.Pattern(200, 9)))
		require.NoError(t, img.Remove(name))
	}

	res, err := img.Compact()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Removed)
	assert.Equal(t, int64(3*256), res.ReclaimedBytes)

	info, err := img.Stat()
	require.NoError(t, err)
	assert.Equal(t, Info{
		Capacity:       32,
		FreeSlots:      32,
		Size:           2112,
		DataStart:      2112,
		NextFreeOffset: 2112,
	}, info)
}

func TestCompactRejectsBadHeader(t *testing.T) {
	t.Parallel()

	tests := map[string]func(h *layout.Header){
		"magic":      func(h *layout.Header) { h.Magic[7] = '2' },
		"capacity":   func(h *layout.Header) { h.FileCapacity = 64 },
		"entry size": func(h *layout.Header) { h.EntrySize = 32 },
	}
	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			img := newTestImage(t)
			require.NoError(t, img.AddBytes("a", []byte("a")))
			require.NoError(t, img.Remove("a"))

			m := testutil.ReadMetadata(t, img.Path())
			corrupt(&m.Header)
			testutil.WriteMetadata(t, img.Path(), m)
			before := snapshot(t, img)

			_, err := img.Compact()
			require.ErrorIs(t, err, ErrInvalidFormat)
			assert.Equal(t, before, snapshot(t, img))

			entries, err := os.ReadDir(filepath.Dir(img.Path()))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "no staging file left behind")
		})
	}
}

func TestCompactKeepsFileMode(t *testing.T) {
	t.Parallel()

	img := newTestImage(t, WithFileMode(0o600))
	require.NoError(t, img.AddBytes("a", []byte("a")))
	_, err := img.Compact()
	require.NoError(t, err)

	info, err := os.Stat(img.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCompactThenAddContinuesAfterSurvivors(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	require.NoError(t, img.AddBytes("a", testutil.Pattern(100, 1)))
	require.NoError(t, img.AddBytes("b", testutil.Pattern(100, 2)))
	require.NoError(t, img.Remove("a"))
	_, err := img.Compact()
	require.NoError(t, err)

	require.NoError(t, img.AddBytes("c", testutil.Pattern(10, 3)))
	m := testutil.ReadMetadata(t, img.Path())
	assert.Equal(t, "c", m.Dir[1].NameString())
	assert.Equal(t, uint32(2112+128), m.Dir[1].Start)

	got, err := img.ReadFile("b")
	require.NoError(t, err)
	assert.Equal(t, testutil.Pattern(100, 2), got)
}
