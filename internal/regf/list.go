package regf

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/tracekit/internal/format"
)

// DecodeSubkeyList extracts NK offsets from a direct list record (LI, LF or
// LH). LF/LH entries additionally store a name hash which is skipped; name
// comparison happens above this layer.
func DecodeSubkeyList(b []byte, expected uint32) ([]uint32, error) {
	if len(b) < ListHeaderSize {
		return nil, fmt.Errorf("subkey list: %w", ErrTruncated)
	}
	sig := b[:SignatureSize]
	count := uint32(format.U16(b[SignatureSize:]))
	if expected != 0 && expected < count {
		count = expected
	}
	switch {
	case bytes.Equal(sig, LISignature):
		return decodeOffsets(b[ListHeaderSize:], count, LIEntrySize)
	case bytes.Equal(sig, LFSignature), bytes.Equal(sig, LHSignature):
		return decodeOffsets(b[ListHeaderSize:], count, LFEntrySize)
	default:
		return nil, fmt.Errorf("subkey list: %w", ErrUnsupported)
	}
}

func decodeOffsets(b []byte, count uint32, stride int) ([]uint32, error) {
	if !format.Has(b, 0, int(count)*stride) {
		return nil, fmt.Errorf("subkey list entries: %w", ErrTruncated)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = format.U32(b[i*stride:])
	}
	return out, nil
}

// IsRIList reports whether b is an indirect subkey list. RI lists appear on
// keys with very large fan-outs and point at LF/LH sub-lists rather than NK
// cells.
func IsRIList(b []byte) bool {
	return len(b) >= SignatureSize && bytes.Equal(b[:SignatureSize], RISignature)
}

// DecodeRIList returns the offsets of the constituent LF/LH lists.
func DecodeRIList(b []byte) ([]uint32, error) {
	if len(b) < ListHeaderSize {
		return nil, fmt.Errorf("ri list: %w", ErrTruncated)
	}
	if !IsRIList(b) {
		return nil, fmt.Errorf("ri list: %w", ErrSignatureMismatch)
	}
	count := uint32(format.U16(b[SignatureSize:]))
	if !format.Has(b, ListHeaderSize, int(count)*OffsetFieldSize) {
		return nil, fmt.Errorf("ri list: %w", ErrTruncated)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = format.U32(b[ListHeaderSize+i*OffsetFieldSize:])
	}
	return out, nil
}

// DecodeValueList decodes a value list: count offsets to VK records.
func DecodeValueList(b []byte, count uint32) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	if !format.Has(b, 0, int(count)*OffsetFieldSize) {
		return nil, fmt.Errorf("value list: %w", ErrTruncated)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = format.U32(b[i*OffsetFieldSize:])
	}
	return out, nil
}
