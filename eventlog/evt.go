package eventlog

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/internal/format"
)

// Legacy EVT record layout. The file starts with a 48-byte header record;
// event records follow back to back, each framed by its size at both ends.
//
//	0x00  4   Size
//	0x04  4   'L' 'f' 'L' 'e'
//	0x08  4   Record number
//	0x0C  4   Creation time (POSIX seconds)
//	0x10  4   Written time (POSIX seconds)
//	0x14  4   Event identifier
//	0x18  2   Event type
//	0x1A  2   Number of strings
//	0x1C  2   Event category
//	0x24  4   Strings offset
//	0x28  4   User SID size
//	0x2C  4   User SID offset
//	0x30  4   Data size
//	0x34  4   Data offset
//	0x38  ..  Source name, computer name (UTF-16LE, NUL-terminated)
const (
	evtHeaderSize    = 0x30
	evtRecordMinSize = 0x38

	evtWrittenTimeOffset = 0x10
	evtEventIDOffset     = 0x14
	evtEventTypeOffset   = 0x18
	evtNumStringsOffset  = 0x1A
	evtStringsOffOffset  = 0x24
	evtSIDSizeOffset     = 0x28
	evtSIDOffOffset      = 0x2C
	evtDataSizeOffset    = 0x30
	evtDataOffOffset     = 0x34
	evtNamesOffset       = 0x38
)

var evtRecordSignature = []byte{'L', 'f', 'L', 'e'}

// EVT event-type values.
const (
	evtTypeError        = 0x0001
	evtTypeWarning      = 0x0002
	evtTypeInformation  = 0x0004
	evtTypeAuditSuccess = 0x0008
	evtTypeAuditFailure = 0x0010
)

// EvtParser decodes legacy .evt logs.
type EvtParser struct{}

var _ Parser = (*EvtParser)(nil)

// ParseAll decodes every record in the log at path.
func (p *EvtParser) ParseAll(path string) ([]Record, error) {
	return p.parse(path, func(uint32) bool { return true })
}

// FilterByID decodes only records with the given event identifier.
func (p *EvtParser) FilterByID(path string, id uint32) ([]Record, error) {
	return p.parse(path, func(got uint32) bool { return got == id })
}

func (p *EvtParser) parse(path string, want func(uint32) bool) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileOpenError{Path: path, Reason: err.Error()}
	}
	if len(data) < evtHeaderSize {
		return nil, &FileOpenError{Path: path, Reason: "file shorter than EVT header"}
	}

	var out []Record
	off := evtHeaderSize
	for off+evtRecordMinSize <= len(data) {
		size := int(format.U32(data[off:]))
		if size < evtRecordMinSize || off+size > len(data) {
			break
		}
		if !bytes.Equal(data[off+4:off+8], evtRecordSignature) {
			// Cursor/end-of-file record or slack; records stop here.
			break
		}
		raw := data[off : off+size]
		id := format.U32(raw[evtEventIDOffset:])
		if want(id) {
			rec, err := decodeEvtRecord(raw)
			if err != nil {
				logrus.Warnf("evt %s: skipping record at offset %d: %v", path, off, err)
			} else {
				out = append(out, rec)
			}
		}
		off += size
	}
	return out, nil
}

func decodeEvtRecord(raw []byte) (Record, error) {
	rec := Record{
		EventID: format.U32(raw[evtEventIDOffset:]),
		Level:   evtTypeToLevel(format.U16(raw[evtEventTypeOffset:])),
	}

	// Written time is POSIX seconds; normalise to FILETIME like everything
	// else that reaches the report.
	written := format.U32(raw[evtWrittenTimeOffset:])
	rec.TimestampRaw = format.UnixSecondsToFiletime(uint64(written))
	if t, err := format.FiletimeToTime(rec.TimestampRaw, "evt written time"); err == nil {
		rec.Timestamp = t
	} else {
		logrus.Warnf("evt record %d: %v", format.U32(raw[0x08:]), err)
		rec.TimestampRaw = 0
	}

	// Source and computer name sit back to back after the fixed header.
	names := raw[evtNamesOffset:]
	rec.Provider = format.DecodeUTF16String(names)
	if cut := utf16zLen(names); cut >= 0 {
		rec.Computer = format.DecodeUTF16String(names[cut:])
	}

	if sidSize := int(format.U32(raw[evtSIDSizeOffset:])); sidSize > 0 {
		sidOff := int(format.U32(raw[evtSIDOffOffset:]))
		if sid, ok := format.Slice(raw, sidOff, sidSize); ok {
			rec.UserSID = decodeSID(sid)
		} else {
			return Record{}, fmt.Errorf("sid out of bounds (offset %d size %d)", sidOff, sidSize)
		}
	}

	// Per-record strings become StringN data fields and, joined, the
	// description.
	numStrings := int(format.U16(raw[evtNumStringsOffset:]))
	strOff := int(format.U32(raw[evtStringsOffOffset:]))
	var parts []string
	for i := 0; i < numStrings; i++ {
		if strOff < evtRecordMinSize || strOff >= len(raw) {
			return Record{}, fmt.Errorf("string %d out of bounds (offset %d)", i, strOff)
		}
		s := format.DecodeUTF16String(raw[strOff:])
		rec.Data = append(rec.Data, DataField{Name: fmt.Sprintf("String%d", i), Value: s})
		if s != "" {
			parts = append(parts, s)
		}
		adv := utf16zLen(raw[strOff:])
		if adv < 0 {
			break
		}
		strOff += adv
	}
	rec.Description = strings.Join(parts, " | ")

	if dataSize := int(format.U32(raw[evtDataSizeOffset:])); dataSize > 0 {
		dataOff := int(format.U32(raw[evtDataOffOffset:]))
		if blob, ok := format.Slice(raw, dataOff, dataSize); ok {
			rec.BinaryData = append([]byte(nil), blob...)
		}
	}
	return rec, nil
}

// utf16zLen returns the byte length of the leading NUL-terminated UTF-16LE
// run including its terminator, or -1 when unterminated.
func utf16zLen(b []byte) int {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i + 2
		}
	}
	return -1
}

func evtTypeToLevel(t uint16) Level {
	switch t {
	case evtTypeError:
		return LevelError
	case evtTypeWarning:
		return LevelWarning
	case evtTypeInformation, evtTypeAuditSuccess, evtTypeAuditFailure:
		return LevelInfo
	default:
		return LevelLogAlways
	}
}
