package zvfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/meigma/zvfs/internal/layout"
)

// Extension is appended to image names that do not already carry it.
const Extension = ".zvfs"

// ImagePath normalizes an image name to carry Extension.
// The check is case-insensitive, so "disk.ZVFS" is left alone.
func ImagePath(name string) string {
	if strings.HasSuffix(strings.ToLower(name), Extension) {
		return name
	}
	return name + Extension
}

// Image is a handle on an image file.
//
// The handle holds only the path and settings. Every operation opens the
// file, works on it and closes it again, so the file is the sole source of
// truth between calls. An Image is not safe for concurrent use, and nothing
// guards against other processes writing the same file.
type Image struct {
	path   string
	layout layout.Layout
	cfg    config
}

// Create formats a new empty image and returns a handle to it.
//
// The name is normalized with ImagePath. Create fails with fs.ErrExist if
// the image already exists, unless WithOverwrite(true) is given.
func Create(name string, opts ...Option) (*Image, error) {
	img := newImage(name, opts)

	flag := os.O_RDWR | os.O_CREATE | os.O_EXCL
	if img.cfg.overwrite {
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(img.path, flag, img.cfg.fileMode)
	if err != nil {
		return nil, fmt.Errorf("create image %q: %w", img.path, err)
	}

	meta := img.layout.NewMetadata()
	if _, err := f.Write(meta.Encode()); err != nil {
		f.Close()
		return nil, fmt.Errorf("format image %q: %w", img.path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("format image %q: %w", img.path, err)
	}

	img.log().Info("image created", "path", img.path, "capacity", img.layout.Capacity)
	return img, nil
}

// Open returns a handle to an existing image after checking its header.
// A missing image is reported as ErrNotFound.
func Open(name string, opts ...Option) (*Image, error) {
	img := newImage(name, opts)
	if err := img.view(func(*session) error { return nil }); err != nil {
		return nil, err
	}
	return img, nil
}

func newImage(name string, opts []Option) *Image {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Image{
		path:   ImagePath(name),
		layout: layout.Standard(),
		cfg:    cfg,
	}
}

// Path returns the normalized path of the image file.
func (img *Image) Path() string {
	return img.path
}

// log returns the logger, falling back to a discard logger if nil.
func (img *Image) log() *slog.Logger {
	if img.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return img.cfg.logger
}

// session is one open image: the file and its metadata block as loaded.
type session struct {
	f    *os.File
	meta *layout.Metadata
	size int64
}

// view runs fn against a read-only session.
func (img *Image) view(fn func(*session) error) error {
	return img.withSession(os.O_RDONLY, fn)
}

// update runs fn against a writable session. fn commits explicitly.
func (img *Image) update(fn func(*session) error) error {
	return img.withSession(os.O_RDWR, fn)
}

// withSession opens the image, loads and validates the metadata block, runs
// fn and closes the file on every path.
func (img *Image) withSession(flag int, fn func(*session) error) (err error) {
	f, err := os.OpenFile(img.path, flag, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("image %q: %w: %w", img.path, ErrNotFound, err)
		}
		return fmt.Errorf("open image %q: %w", img.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close image %q: %w", img.path, cerr)
		}
	}()

	s, err := img.load(f)
	if err != nil {
		return err
	}
	return fn(s)
}

func (img *Image) load(f *os.File) (*session, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat image %q: %w", img.path, err)
	}

	buf := make([]byte, img.layout.DataStart())
	if _, err := f.ReadAt(buf, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("image %q: %w: truncated metadata (%d bytes)", img.path, ErrInvalidFormat, info.Size())
		}
		return nil, fmt.Errorf("read image %q: %w", img.path, err)
	}

	meta, err := img.layout.DecodeMetadata(buf)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w: %w", img.path, ErrInvalidFormat, err)
	}
	if err := img.layout.Validate(meta.Header); err != nil {
		return nil, fmt.Errorf("image %q: %w: %w", img.path, ErrInvalidFormat, err)
	}
	return &session{f: f, meta: meta, size: info.Size()}, nil
}

// commit writes the metadata block in one positioned write.
func (s *session) commit() error {
	if _, err := s.f.WriteAt(s.meta.Encode(), 0); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// blob returns a reader over the bytes of slot i, checking that they lie
// inside the data region and the file.
func (s *session) blob(i int) (*io.SectionReader, error) {
	e := &s.meta.Dir[i]
	if e.Start < s.meta.Header.DataStartOffset || e.End() > uint64(s.size) { //nolint:gosec // size is non-negative
		return nil, fmt.Errorf("%w: entry %q spans [%d, %d) outside data region", ErrInvalidFormat, e.NameString(), e.Start, e.End())
	}
	return io.NewSectionReader(s.f, int64(e.Start), int64(e.Length)), nil
}
