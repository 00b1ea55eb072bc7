package zvfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/zvfs/internal/testutil"
)

func TestExtractToWriter(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	data := testutil.Pattern(300, 7)
	require.NoError(t, img.AddBytes("data.bin", data))

	var buf bytes.Buffer
	n, err := img.Extract("data.bin", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(300), n)
	assert.Equal(t, data, buf.Bytes())
}

func TestExtractMissingEntry(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	_, err := img.ReadFile("nope")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = img.ReadText("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemovedEntryStaysReadableUntilCompact(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	require.NoError(t, img.AddBytes("a.txt", []byte("still here")))
	require.NoError(t, img.Remove("a.txt"))

	entries, err := img.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	got, err := img.ReadText("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "still here", got)

	_, err = img.Compact()
	require.NoError(t, err)
	_, err = img.ReadText("a.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadTextRejectsInvalidUTF8(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	require.NoError(t, img.AddBytes("bin", []byte{0xff, 0xfe, 0x00}))

	_, err := img.ReadText("bin")
	require.ErrorIs(t, err, ErrDecode)

	raw, err := img.ReadFile("bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe, 0x00}, raw)
}

func TestReadTextEmptyBlob(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	require.NoError(t, img.AddBytes("empty", nil))

	got, err := img.ReadText("empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractFile(t *testing.T) {
	t.Parallel()

	img := newTestImage(t, WithFileMode(0o600))
	data := testutil.Pattern(150, 3)
	require.NoError(t, img.AddBytes("out.bin", data))

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	require.NoError(t, img.ExtractFile("out.bin", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	missing := filepath.Join(dir, "missing.bin")
	require.ErrorIs(t, img.ExtractFile("missing.bin", missing), ErrNotFound)
	_, err = os.Stat(missing)
	require.ErrorIs(t, err, os.ErrNotExist)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDigest(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	data := []byte("digest me")
	require.NoError(t, img.AddBytes("d", data))

	got, err := img.Digest("d")
	require.NoError(t, err)
	assert.Equal(t, digest.FromBytes(data), got)
	require.NoError(t, got.Validate())

	_, err = img.Digest("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExtractRejectsEntryOutsideImage(t *testing.T) {
	t.Parallel()

	img := newTestImage(t)
	require.NoError(t, img.AddBytes("a", []byte("abc")))

	m := testutil.ReadMetadata(t, img.Path())
	m.Dir[0].Length = 1 << 20
	testutil.WriteMetadata(t, img.Path(), m)

	_, err := img.ReadFile("a")
	require.ErrorIs(t, err, ErrInvalidFormat)
}
