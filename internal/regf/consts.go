// Package regf decodes the on-disk structures of Windows registry hives:
// the REGF base block, HBIN bins, cells, NK (key) and VK (value) records,
// subkey/value lists and big-data records. It is a read-only decoder; the
// hive package layers path navigation and typed value decoding on top.
package regf

var (
	// Signature is the four-byte magic at the start of every hive file.
	Signature = []byte{'r', 'e', 'g', 'f'}
	// HBINSignature begins each hive bin.
	HBINSignature = []byte{'h', 'b', 'i', 'n'}
	// NKSignature identifies a key (node) cell payload.
	NKSignature = []byte{'n', 'k'}
	// VKSignature identifies a value cell payload.
	VKSignature = []byte{'v', 'k'}
	// LFSignature, LHSignature and LISignature identify direct subkey lists.
	LFSignature = []byte{'l', 'f'}
	LHSignature = []byte{'l', 'h'}
	LISignature = []byte{'l', 'i'}
	// RISignature identifies an indirect subkey list pointing at LF/LH lists.
	RISignature = []byte{'r', 'i'}
	// DBSignature identifies a big-data record for values over ~16KB.
	DBSignature = []byte{'d', 'b'}
)

const (
	// HeaderSize is the size of the REGF base block; HBIN data starts there.
	HeaderSize = 4096
	// HBINHeaderSize is the per-bin header size.
	HBINHeaderSize = 0x20
	// HBINAlignment is the required size multiple of a bin.
	HBINAlignment = 0x1000
	// CellHeaderSize is the signed-size field preceding each cell payload.
	CellHeaderSize = 4
	// SignatureSize is the two-byte record tag length.
	SignatureSize = 2
	// OffsetFieldSize is the width of a cell-index field.
	OffsetFieldSize = 4
	// InvalidOffset marks unused offset fields.
	InvalidOffset = 0xFFFFFFFF

	// REGF header field offsets.
	HdrPrimarySeqOffset   = 0x04
	HdrSecondarySeqOffset = 0x08
	HdrTimestampOffset    = 0x0C
	HdrMajorOffset        = 0x14
	HdrMinorOffset        = 0x18
	HdrTypeOffset         = 0x1C
	HdrRootCellOffset     = 0x24
	HdrDataSizeOffset     = 0x28

	// NK record field offsets.
	NKFlagsOffset        = 0x02
	NKLastWriteOffset    = 0x04
	NKParentOffset       = 0x10
	NKSubkeyCountOffset  = 0x14
	NKSubkeyListOffset   = 0x1C
	NKValueCountOffset   = 0x24
	NKValueListOffset    = 0x28
	NKClassNameOffset    = 0x30
	NKNameLenOffset      = 0x48
	NKNameOffset         = 0x4C
	NKMinSize            = NKNameOffset
	NKFlagCompressedName = 0x20

	// VK record field offsets.
	VKNameLenOffset = 0x02
	VKDataLenOffset = 0x04
	VKDataOffOffset = 0x08
	VKTypeOffset    = 0x0C
	VKFlagsOffset   = 0x10
	VKNameOffset    = 0x14
	VKMinSize       = VKNameOffset
	VKFlagASCIIName = 0x01
	// VKDataInlineBit marks data stored directly in the offset field.
	VKDataInlineBit  = 0x80000000
	VKDataLengthMask = 0x7FFFFFFF

	// Subkey/DB list layout.
	ListHeaderSize = 4
	LIEntrySize    = 4
	LFEntrySize    = 8
	DBNumBlocksOffset = 0x02
	DBListOffset      = 0x04
	DBMinSize         = 0x0C
	// DBBlockPadding is trailing slack in each big-data block that is not
	// value data.
	DBBlockPadding = 4

	// Sanity limits: a structurally valid hive never exceeds these, and they
	// bound allocations on corrupt input.
	MaxNameLen      = 16 * 1024
	MaxSubkeyCount  = 8 * 1024 * 1024
	MaxValueCount   = 8 * 1024 * 1024
	MaxValueDataLen = 1 << 30
)
