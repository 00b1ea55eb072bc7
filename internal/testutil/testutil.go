// Package testutil holds fixtures shared by zvfs tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/meigma/zvfs/internal/layout"
)

// Pattern returns n deterministic bytes derived from seed.
func Pattern(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i%251)
	}
	return data
}

// WriteSource writes data to dir/name and returns the path.
func WriteSource(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// Zstd compresses data with the default encoder settings.
func Zstd(t testing.TB, data []byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// ReadMetadata decodes the header and directory of the image at path
// without validating them.
func ReadMetadata(t testing.TB, path string) *layout.Metadata {
	t.Helper()

	l := layout.Standard()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, l.DataStart())
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)

	m, err := l.DecodeMetadata(buf)
	require.NoError(t, err)
	return m
}

// WriteMetadata overwrites the header and directory of the image at path.
func WriteMetadata(t testing.TB, path string, m *layout.Metadata) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteAt(m.Encode(), 0)
	require.NoError(t, err)
}

// FileSize returns the size of the file at path.
func FileSize(t testing.TB, path string) int64 {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}
