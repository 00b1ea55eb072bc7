package zvfs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/zvfs/internal/file"
)

// Entries are matched by name without looking at the deleted flag, so a
// tombstoned entry stays readable until Compact drops it. When a name was
// re-added after removal, the active entry is the one returned.

// Extract copies the blob stored under name to w and returns the number of
// bytes written.
func (img *Image) Extract(name string, w io.Writer) (int64, error) {
	var n int64
	err := img.view(func(s *session) error {
		r, err := s.lookupBlob(name)
		if err != nil {
			return err
		}
		n, err = io.Copy(w, r)
		if err != nil {
			return fmt.Errorf("extract %q: %w", name, err)
		}
		return nil
	})
	if err == nil {
		img.log().Debug("entry extracted", "name", name, "bytes", n)
	}
	return n, err
}

// ExtractFile writes the blob stored under name to dest. The destination is
// replaced atomically; if the entry is missing dest is not created.
func (img *Image) ExtractFile(name, dest string) error {
	return file.WriteAtomic(dest, img.cfg.fileMode, func(f *os.File) error {
		_, err := img.Extract(name, f)
		return err
	})
}

// ReadFile returns the blob stored under name.
func (img *Image) ReadFile(name string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := img.Extract(name, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadText returns the blob stored under name decoded as UTF-8 text.
// It fails with ErrDecode if the bytes are not valid UTF-8.
func (img *Image) ReadText(name string) (string, error) {
	data, err := img.ReadFile(name)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read text %q: %w: invalid UTF-8", name, ErrDecode)
	}
	return string(data), nil
}

// Digest returns the sha256 digest of the blob stored under name.
func (img *Image) Digest(name string) (digest.Digest, error) {
	d := digest.Canonical.Digester()
	if _, err := img.Extract(name, d.Hash()); err != nil {
		return "", err
	}
	return d.Digest(), nil
}

// lookupBlob resolves name to a reader over its bytes.
func (s *session) lookupBlob(name string) (*io.SectionReader, error) {
	slot, ok := s.meta.Dir.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("entry %q: %w", name, ErrNotFound)
	}
	r, err := s.blob(slot)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", name, err)
	}
	return r, nil
}
