package regf

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/tracekit/internal/format"
)

// NKRecord is the decoded header of a key cell.
//
//	Offset  Size  Field
//	0x00    2     'n' 'k'
//	0x02    2     Flags (bit 0x20 => name stored as ASCII)
//	0x04    8     Last write time (FILETIME)
//	0x10    4     Parent cell offset
//	0x14    4     Number of subkeys
//	0x1C    4     Offset to subkey list
//	0x24    4     Number of values
//	0x28    4     Offset to value list
//	0x48    2     Name length
//	0x4C    n     Name bytes (ASCII or UTF-16LE)
type NKRecord struct {
	Flags            uint16
	LastWriteRaw     uint64
	ParentOffset     uint32
	SubkeyCount      uint32
	SubkeyListOffset uint32
	ValueCount       uint32
	ValueListOffset  uint32
	NameLength       uint16
	NameRaw          []byte
}

// NameIsCompressed reports whether the name is stored in 8-bit form.
func (nk NKRecord) NameIsCompressed() bool {
	return nk.Flags&NKFlagCompressedName != 0
}

// DecodeNK decodes an NK record payload with bounds checking.
func DecodeNK(b []byte) (NKRecord, error) {
	if len(b) < NKMinSize {
		return NKRecord{}, fmt.Errorf("nk: %w (have %d, need %d)", ErrTruncated, len(b), NKMinSize)
	}
	if !bytes.Equal(b[:SignatureSize], NKSignature) {
		return NKRecord{}, fmt.Errorf("nk: %w", ErrSignatureMismatch)
	}

	subkeyCount := format.U32(b[NKSubkeyCountOffset:])
	if subkeyCount > MaxSubkeyCount {
		return NKRecord{}, fmt.Errorf("nk subkey count %d: %w", subkeyCount, ErrSanityLimit)
	}
	valueCount := format.U32(b[NKValueCountOffset:])
	if valueCount > MaxValueCount {
		return NKRecord{}, fmt.Errorf("nk value count %d: %w", valueCount, ErrSanityLimit)
	}
	nameLen := format.U16(b[NKNameLenOffset:])
	if int(nameLen) > MaxNameLen {
		return NKRecord{}, fmt.Errorf("nk name len %d: %w", nameLen, ErrSanityLimit)
	}
	name, ok := format.Slice(b, NKNameOffset, int(nameLen))
	if !ok {
		return NKRecord{}, fmt.Errorf("nk name: %w", ErrTruncated)
	}

	return NKRecord{
		Flags:            format.U16(b[NKFlagsOffset:]),
		LastWriteRaw:     format.U64(b[NKLastWriteOffset:]),
		ParentOffset:     format.U32(b[NKParentOffset:]),
		SubkeyCount:      subkeyCount,
		SubkeyListOffset: format.U32(b[NKSubkeyListOffset:]),
		ValueCount:       valueCount,
		ValueListOffset:  format.U32(b[NKValueListOffset:]),
		NameLength:       nameLen,
		NameRaw:          name,
	}, nil
}
