package regf

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/tracekit/internal/format"
)

// VKRecord is the decoded header of a value cell. The payload lives either
// inline in the DataOffset field (small values) or in a separate cell.
type VKRecord struct {
	NameLength uint16
	DataLength uint32
	DataOffset uint32
	Type       uint32
	Flags      uint16
	NameRaw    []byte
}

// NameIsASCII reports whether the name is stored as ANSI bytes.
func (vk VKRecord) NameIsASCII() bool {
	return vk.Flags&VKFlagASCIIName != 0
}

// DataInline reports whether the data is stored within the DataOffset field.
func (vk VKRecord) DataInline() bool {
	return vk.DataLength&VKDataInlineBit != 0
}

// DataLen returns the declared payload length with the inline bit cleared.
func (vk VKRecord) DataLen() int {
	return int(vk.DataLength & VKDataLengthMask)
}

// DecodeVK decodes a VK record payload with bounds checking.
func DecodeVK(b []byte) (VKRecord, error) {
	if len(b) < VKMinSize {
		return VKRecord{}, fmt.Errorf("vk: %w (have %d, need %d)", ErrTruncated, len(b), VKMinSize)
	}
	if !bytes.Equal(b[:SignatureSize], VKSignature) {
		return VKRecord{}, fmt.Errorf("vk: %w", ErrSignatureMismatch)
	}

	nameLen := format.U16(b[VKNameLenOffset:])
	if int(nameLen) > MaxNameLen {
		return VKRecord{}, fmt.Errorf("vk name len %d: %w", nameLen, ErrSanityLimit)
	}
	dataLen := format.U32(b[VKDataLenOffset:])
	if dataLen&VKDataLengthMask > MaxValueDataLen {
		return VKRecord{}, fmt.Errorf("vk data len %d: %w", dataLen&VKDataLengthMask, ErrSanityLimit)
	}
	name, ok := format.Slice(b, VKNameOffset, int(nameLen))
	if !ok {
		return VKRecord{}, fmt.Errorf("vk name: %w", ErrTruncated)
	}

	return VKRecord{
		NameLength: nameLen,
		DataLength: dataLen,
		DataOffset: format.U32(b[VKDataOffOffset:]),
		Type:       format.U32(b[VKTypeOffset:]),
		Flags:      format.U16(b[VKFlagsOffset:]),
		NameRaw:    name,
	}, nil
}
