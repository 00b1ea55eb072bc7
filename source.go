package zvfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/zvfs/internal/sizing"
)

// ZstdExtension marks compressed sources. It is stripped from the default
// entry name when a source is decompressed.
const ZstdExtension = ".zst"

type addConfig struct {
	name       string
	decompress bool
}

// AddOption configures AddFile and AddFiles.
type AddOption func(*addConfig)

// AddWithName stores the source under name instead of its base name.
// It only applies to AddFile.
func AddWithName(name string) AddOption {
	return func(c *addConfig) {
		c.name = name
	}
}

// AddWithDecompress decodes zstd-compressed sources before storing them.
// The image always holds the raw bytes.
func AddWithDecompress(enabled bool) AddOption {
	return func(c *addConfig) {
		c.decompress = enabled
	}
}

// source is a blob ready to be inserted.
type source struct {
	name string
	r    io.Reader
	size int64
	c    io.Closer
}

func (s *source) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// AddFile stores the file at path. The entry name defaults to the file's
// base name. A missing source is reported as ErrNotFound.
func (img *Image) AddFile(path string, opts ...AddOption) error {
	cfg := addConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	src, err := img.openSource(path, cfg, false)
	if err != nil {
		return err
	}
	defer src.Close()

	return img.Add(src.name, src.r, src.size)
}

// AddFiles stores several files in argument order.
//
// Sources are read into memory concurrently, bounded by
// WithSourceConcurrency, and then inserted one at a time. Insertion stops at
// the first failure; entries added before it stay in the image.
func (img *Image) AddFiles(ctx context.Context, paths []string, opts ...AddOption) error {
	cfg := addConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.name = ""

	sources := make([]*source, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(img.cfg.sourceConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := img.openSource(path, cfg, true)
			if err != nil {
				return err
			}
			sources[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := img.Add(src.name, src.r, src.size); err != nil {
			return err
		}
	}
	return nil
}

// openSource opens path as a blob source. Decompressed sources and, when
// buffered is set, plain sources are read fully into memory so their size
// is known and the file can be closed at once.
func (img *Image) openSource(path string, cfg addConfig, buffered bool) (*source, error) {
	name := cfg.name
	if name == "" {
		name = filepath.Base(path)
		if cfg.decompress {
			name = strings.TrimSuffix(name, ZstdExtension)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("source %q: %w: %w", path, ErrNotFound, err)
		}
		return nil, fmt.Errorf("open source %q: %w", path, err)
	}

	if cfg.decompress {
		defer f.Close()
		data, err := img.decompress(f)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", path, err)
		}
		return &source{name: name, r: bytes.NewReader(data), size: int64(len(data))}, nil
	}

	if buffered {
		defer f.Close()
		data, err := sizing.ReadAllWithLimit(f, img.cfg.maxImageSize, ErrSizeLimitExceeded)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", path, err)
		}
		return &source{name: name, r: bytes.NewReader(data), size: int64(len(data))}, nil
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat source %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("source %q: not a regular file", path)
	}
	return &source{name: name, r: f, size: info.Size(), c: f}, nil
}

// decompress decodes a zstd stream, refusing output that could not fit in
// an image.
func (img *Image) decompress(r io.Reader) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if img.cfg.maxDecoderMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(img.cfg.maxDecoderMemory))
	}
	dec, err := zstd.NewReader(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	data, err := sizing.ReadAllWithLimit(dec, img.cfg.maxImageSize, ErrSizeLimitExceeded)
	if err != nil {
		if errors.Is(err, ErrSizeLimitExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return data, nil
}
