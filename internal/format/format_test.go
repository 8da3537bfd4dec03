package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerReads(t *testing.T) {
	b := []byte{0x78, 0x56, 0x34, 0x12, 0xEF, 0xCD, 0xAB, 0x89}
	assert.Equal(t, uint16(0x5678), U16(b))
	assert.Equal(t, uint32(0x12345678), U32(b))
	assert.Equal(t, uint32(0x78563412), U32BE(b))
	assert.Equal(t, uint64(0x89ABCDEF12345678), U64(b))
	assert.Equal(t, uint16(0), U16(b[:1]))
	assert.Equal(t, uint32(0), U32(b[:3]))
	assert.Equal(t, uint64(0), U64(b[:7]))
}

func TestSliceBounds(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	got, ok := Slice(data, 1, 3)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)

	_, ok = Slice(data, 4, 2)
	assert.False(t, ok)
	_, ok = Slice(data, -1, 1)
	assert.False(t, ok)
	_, ok = Slice(data, 1, -1)
	assert.False(t, ok)
	assert.False(t, Has(data, 2, 4))
	assert.True(t, Has(data, 2, 1))
}

func TestAddOverflowSafe(t *testing.T) {
	sum, ok := AddOverflowSafe(10, 5)
	require.True(t, ok)
	assert.Equal(t, 15, sum)
	_, ok = AddOverflowSafe(math.MaxInt, 1)
	assert.False(t, ok)
}

func TestFiletimeWindow(t *testing.T) {
	assert.False(t, FiletimeValid(0))
	assert.False(t, FiletimeValid(FiletimeEpochDiff-1))
	assert.True(t, FiletimeValid(FiletimeEpochDiff))
	assert.True(t, FiletimeValid(FiletimeMaxValid))
	assert.False(t, FiletimeValid(FiletimeMaxValid+1))
}

func TestFiletimeToTime(t *testing.T) {
	// 0x01D4D3F0B9C10000 is 2019-03-06T07:46:36Z (a real prefetch run time).
	tm, err := FiletimeToTime(0x01D4D3F0B9C10000, "test")
	require.NoError(t, err)
	assert.Equal(t, "2019-03-06 07:46:36", FormatTimestamp(tm))

	// Epoch exactly.
	tm, err = FiletimeToTime(FiletimeEpochDiff, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(0), tm.Unix())

	_, err = FiletimeToTime(42, "test")
	var ite *InvalidTimestampError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, uint64(42), ite.Value)
}

func TestUnixSecondsToFiletime(t *testing.T) {
	assert.Equal(t, uint64(FiletimeEpochDiff), UnixSecondsToFiletime(0))
	ft := UnixSecondsToFiletime(1_000_000_000)
	tm, err := FiletimeToTime(ft, "evt")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), tm.Unix())
}

func TestDecodeUTF16String(t *testing.T) {
	// "abc\0junk" — truncated at first NUL.
	b := []byte{'a', 0, 'b', 0, 'c', 0, 0, 0, 'x', 0}
	assert.Equal(t, "abc", DecodeUTF16String(b))
	assert.Equal(t, "", DecodeUTF16String(nil))
	// Non-ASCII path: "é" (U+00E9).
	assert.Equal(t, "é", DecodeUTF16String([]byte{0xE9, 0x00}))
	// Surrogate pair: U+1F600.
	assert.Equal(t, "\U0001F600", DecodeUTF16LE([]byte{0x3D, 0xD8, 0x00, 0xDE}))
}

func TestDecodeUTF16MultiString(t *testing.T) {
	// "t", "a", "b" with double-NUL terminator (spec scenario 3).
	b := []byte{0x74, 0x00, 0x00, 0x00, 0x61, 0x00, 0x00, 0x00, 0x62, 0x00, 0x00, 0x00, 0x00, 0x00}
	got := DecodeUTF16MultiString(b)
	assert.Equal(t, []string{"t", "a", "b"}, got)

	// Terminator only.
	assert.Empty(t, DecodeUTF16MultiString([]byte{0x00, 0x00}))

	// Missing terminator keeps the dangling run.
	got = DecodeUTF16MultiString([]byte{'x', 0, 0, 0, 'y', 0})
	assert.Equal(t, []string{"x", "y"}, got)
}
