package prefetch

// SCCA header layout, shared by every uncompressed version:
//
//	0x00  4    Format version
//	0x04  4    'S' 'C' 'C' 'A'
//	0x08  4    Unknown (3)
//	0x0C  4    File size
//	0x10  60   Executable name, UTF-16LE, NUL-terminated
//	0x4C  4    Prefetch hash
//	0x50  4    Flags
//	0x54  ...  File information (version-specific)
//
// The file-information block starts with the same nine fields in every
// version; run-time slots and the run counter move around per version.
const (
	sccaVersionOffset  = 0x00
	sccaSignatureOff   = 0x04
	sccaFileSizeOffset = 0x0C
	sccaNameOffset     = 0x10
	sccaNameSize       = 60
	sccaHashOffset     = 0x4C

	infoMetricsOffset   = 0x54
	infoMetricsCount    = 0x58
	infoFilenamesOffset = 0x64
	infoFilenamesSize   = 0x68
	infoVolumesOffset   = 0x6C
	infoVolumesCount    = 0x70
	infoVolumesSize     = 0x74

	// maxRunTimeSlots is the most launch-time slots any version records.
	maxRunTimeSlots = 8

	// Shared leading fields of a volume-information entry.
	volDevPathOffset  = 0x00
	volDevPathChars   = 0x04
	volCreationOffset = 0x08
	volSerialOffset   = 0x10
)

var sccaSignature = []byte{'S', 'C', 'C', 'A'}

// mamSignature marks an LZXPRESS-Huffman compressed prefetch file
// (Windows 10+). Decompression is not implemented; such files are rejected
// as unsupported.
var mamSignature = []byte{'M', 'A', 'M', 0x04}

// layout captures where the version-specific fields live.
type layout struct {
	runTimesOffset   int
	runTimeSlots     int
	runCountOffset   int
	metricEntrySize  int
	metricNameOffset int // filename string offset field within the entry
	metricNameChars  int
	metricFileRefOff int // -1 when the version has no MFT reference
	volumeEntrySize  int
}

// layouts maps a supported format version to its field placement. Versions
// 10 and 11 (XP RTM / Embedded) share the 17 layout.
var layouts = map[uint32]layout{
	10: layoutV17,
	11: layoutV17,
	17: layoutV17,
	23: {
		runTimesOffset:   0x80,
		runTimeSlots:     1,
		runCountOffset:   0x98,
		metricEntrySize:  32,
		metricNameOffset: 0x0C,
		metricNameChars:  0x10,
		metricFileRefOff: 0x18,
		volumeEntrySize:  104,
	},
	26: {
		runTimesOffset:   0x80,
		runTimeSlots:     8,
		runCountOffset:   0xD0,
		metricEntrySize:  32,
		metricNameOffset: 0x0C,
		metricNameChars:  0x10,
		metricFileRefOff: 0x18,
		volumeEntrySize:  104,
	},
	30: {
		runTimesOffset:   0x80,
		runTimeSlots:     8,
		runCountOffset:   0xD0,
		metricEntrySize:  32,
		metricNameOffset: 0x0C,
		metricNameChars:  0x10,
		metricFileRefOff: 0x18,
		volumeEntrySize:  96,
	},
}

var layoutV17 = layout{
	runTimesOffset:   0x78,
	runTimeSlots:     1,
	runCountOffset:   0x90,
	metricEntrySize:  20,
	metricNameOffset: 0x08,
	metricNameChars:  0x0C,
	metricFileRefOff: -1,
	volumeEntrySize:  40,
}
