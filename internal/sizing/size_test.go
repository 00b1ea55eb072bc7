package sizing

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTooBig = errors.New("too big")

func TestPadding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, align, want uint64
	}{
		{0, 64, 0},
		{1, 64, 63},
		{12, 64, 52},
		{64, 64, 0},
		{100, 64, 28},
		{128, 64, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Padding(tt.n, tt.align), "Padding(%d, %d)", tt.n, tt.align)
	}
}

func TestAlignUp(t *testing.T) {
	t.Parallel()

	got, ok := AlignUp(2112+100, 64)
	require.True(t, ok)
	assert.Equal(t, uint64(2240), got)

	_, ok = AlignUp(math.MaxUint64, 64)
	assert.False(t, ok)
}

func TestToUint32(t *testing.T) {
	t.Parallel()

	v, err := ToUint32(math.MaxUint32, errTooBig)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), v)

	_, err = ToUint32(math.MaxUint32+1, errTooBig)
	assert.ErrorIs(t, err, errTooBig)
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	data, err := ReadAllWithLimit(bytes.NewReader([]byte("hello")), 5, errTooBig)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = ReadAllWithLimit(bytes.NewReader([]byte("hello!")), 5, errTooBig)
	assert.ErrorIs(t, err, errTooBig)
}
