package zvfs

import (
	"io/fs"
	"log/slog"
	"math"
	"time"
)

const (
	// MaxImageSize is the hard ceiling for an image. Offsets are 32-bit, so the
	// last addressable end-of-data offset is one byte short of 4 GiB.
	MaxImageSize = math.MaxUint32

	// DefaultMaxDecoderMemory bounds the zstd decoder when ingesting compressed sources.
	DefaultMaxDecoderMemory = 64 << 20

	// DefaultSourceConcurrency is the number of sources AddFiles reads in parallel.
	DefaultSourceConcurrency = 4

	defaultFileMode fs.FileMode = 0o644
)

// config holds the settings shared by every operation on an Image.
type config struct {
	logger            *slog.Logger
	now               func() time.Time
	maxImageSize      uint64
	fileMode          fs.FileMode
	overwrite         bool
	maxDecoderMemory  uint64
	sourceConcurrency int
}

func defaultConfig() config {
	return config{
		now:               time.Now,
		maxImageSize:      MaxImageSize,
		fileMode:          defaultFileMode,
		maxDecoderMemory:  DefaultMaxDecoderMemory,
		sourceConcurrency: DefaultSourceConcurrency,
	}
}

// Option configures an Image.
type Option func(*config)

// WithLogger sets the logger. Operations log steps at Debug and completed
// mutations at Info. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClock sets the source of entry creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxImageSize lowers the image size ceiling. Values of 0 or above
// MaxImageSize use MaxImageSize.
func WithMaxImageSize(limit uint64) Option {
	return func(c *config) {
		if limit == 0 || limit > MaxImageSize {
			limit = MaxImageSize
		}
		c.maxImageSize = limit
	}
}

// WithFileMode sets the permission bits for created images and extracted files.
// Default is 0644.
func WithFileMode(mode fs.FileMode) Option {
	return func(c *config) {
		c.fileMode = mode.Perm()
	}
}

// WithOverwrite lets Create replace an existing image. It has no effect on Open.
func WithOverwrite(enabled bool) Option {
	return func(c *config) {
		c.overwrite = enabled
	}
}

// WithMaxDecoderMemory limits the memory used by the zstd decoder for
// compressed sources. Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *config) {
		c.maxDecoderMemory = limit
	}
}

// WithSourceConcurrency sets how many sources AddFiles reads in parallel.
// Values < 1 are treated as 1.
func WithSourceConcurrency(n int) Option {
	return func(c *config) {
		c.sourceConcurrency = max(n, 1)
	}
}
