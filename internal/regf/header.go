package regf

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/tracekit/internal/format"
)

// Header captures the subset of the REGF base block needed to traverse a
// hive.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   4    'r' 'e' 'g' 'f'
//	 0x004   4    Primary sequence number
//	 0x008   4    Secondary sequence number
//	 0x00C   8    Last write timestamp (FILETIME)
//	 0x014   4    Major version
//	 0x018   4    Minor version
//	 0x01C   4    Type (0 = primary, 1 = alternate)
//	 0x024   4    Offset (relative to first HBIN) of the root NK cell
//	 0x028   4    Total size of HBIN data
type Header struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWriteRaw      uint64
	MajorVersion      uint32
	MinorVersion      uint32
	Type              uint32
	RootCellOffset    uint32
	HiveBinsDataSize  uint32
}

// ParseHeader validates the base block signature and extracts header fields.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("regf header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:len(Signature)], Signature) {
		return Header{}, fmt.Errorf("regf header: %w", ErrSignatureMismatch)
	}
	return Header{
		PrimarySequence:   format.U32(b[HdrPrimarySeqOffset:]),
		SecondarySequence: format.U32(b[HdrSecondarySeqOffset:]),
		LastWriteRaw:      format.U64(b[HdrTimestampOffset:]),
		MajorVersion:      format.U32(b[HdrMajorOffset:]),
		MinorVersion:      format.U32(b[HdrMinorOffset:]),
		Type:              format.U32(b[HdrTypeOffset:]),
		RootCellOffset:    format.U32(b[HdrRootCellOffset:]),
		HiveBinsDataSize:  format.U32(b[HdrDataSizeOffset:]),
	}, nil
}

// HBIN describes one hive bin: its declared file offset (relative to the end
// of the base block) and total size.
type HBIN struct {
	FileOffset uint32
	Size       uint32
}

// NextHBIN validates the HBIN header at off within b and returns it along
// with the offset of the subsequent bin.
func NextHBIN(b []byte, off int) (HBIN, int, error) {
	if off < 0 || off+HBINHeaderSize > len(b) {
		return HBIN{}, 0, fmt.Errorf("hbin: %w", ErrTruncated)
	}
	head := b[off : off+HBINHeaderSize]
	if !bytes.Equal(head[:len(HBINSignature)], HBINSignature) {
		return HBIN{}, 0, fmt.Errorf("hbin: %w", ErrSignatureMismatch)
	}
	fileOff := format.U32(head[0x04:])
	size := format.U32(head[0x08:])
	if size == 0 || size%HBINAlignment != 0 {
		return HBIN{}, 0, fmt.Errorf("hbin: invalid size %d", size)
	}
	next := off + int(size)
	if next > len(b) {
		return HBIN{}, 0, fmt.Errorf("hbin: %w", ErrTruncated)
	}
	return HBIN{FileOffset: fileOff, Size: size}, next, nil
}
