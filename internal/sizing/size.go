// Package sizing provides checked arithmetic for image offsets and lengths.
//
// Image offsets are stored as 32-bit little-endian integers, so every value
// that ends up in a header or entry must be range checked before it is
// narrowed.
package sizing

import (
	"io"
	"math"
)

// Padding returns the number of zero bytes needed to extend n to the next
// multiple of align. It returns 0 when n is already aligned or align is 0.
func Padding(n, align uint64) uint64 {
	if align == 0 {
		return 0
	}
	return (align - n%align) % align
}

// AlignUp rounds n up to the next multiple of align.
// ok is false if the result overflows.
func AlignUp(n, align uint64) (uint64, bool) {
	return AddUint64(n, Padding(n, align))
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// ToUint32 narrows v to uint32, returning overflowErr if it doesn't fit.
func ToUint32(v uint64, overflowErr error) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(v), nil
}

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(v uint64, overflowErr error) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(v), nil
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns overflowErr if more than maxSize bytes are available.
func ReadAllWithLimit(r io.Reader, maxSize uint64, overflowErr error) ([]byte, error) {
	if maxSize > uint64(math.MaxInt-1) {
		return nil, overflowErr
	}
	lr := &io.LimitedReader{R: r, N: int64(maxSize) + 1} //nolint:gosec // checked above
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize {
		return nil, overflowErr
	}
	return data, nil
}
