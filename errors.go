package zvfs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Operations wrap them with context; match with errors.Is.
var (
	// ErrNotFound is returned when the image, a source file, or a named entry does not exist.
	ErrNotFound = errors.New("zvfs: not found")

	// ErrAlreadyExists is returned when adding a name that an active entry already uses.
	ErrAlreadyExists = errors.New("zvfs: already exists")

	// ErrCapacityExceeded is returned when an entry cannot be placed in the directory.
	ErrCapacityExceeded = errors.New("zvfs: capacity exceeded")

	// ErrSizeLimitExceeded is returned when an image would grow past its size ceiling.
	ErrSizeLimitExceeded = errors.New("zvfs: size limit exceeded")

	// ErrInvalidFormat is returned when the image header or directory is inconsistent
	// with the format.
	ErrInvalidFormat = errors.New("zvfs: invalid format")

	// ErrDecode is returned when a blob is not valid UTF-8 text.
	ErrDecode = errors.New("zvfs: decode error")

	// ErrInvalidName is returned for names that cannot be stored, such as the
	// empty name or names containing a zero byte.
	ErrInvalidName = errors.New("zvfs: invalid name")
)

// Refinements of ErrCapacityExceeded.
var (
	// ErrDirectoryFull is returned when no never-used slot remains.
	ErrDirectoryFull = fmt.Errorf("%w: directory full", ErrCapacityExceeded)

	// ErrNameTooLong is returned when a name does not fit the 31-byte name field.
	ErrNameTooLong = fmt.Errorf("%w: name too long", ErrCapacityExceeded)
)
