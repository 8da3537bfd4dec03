package eventlog

import (
	"fmt"
	"math"
	"strings"

	"github.com/joshuapare/tracekit/internal/format"
)

// formatValue renders a substitution value as text the way the Windows XML
// renderer does: integers in decimal, hex types 0x-prefixed, FILETIMEs in
// ISO 8601, SIDs and GUIDs in their canonical forms.
func (r *binxmlReader) formatValue(v binValue) string {
	data := r.chunk[v.off : v.off+v.size]

	if v.typ&vtArrayFlag != 0 {
		return r.formatArray(v.typ & ^byte(vtArrayFlag), data)
	}

	switch v.typ {
	case vtNull:
		return ""
	case vtString:
		return format.DecodeUTF16String(data)
	case vtAnsiString:
		return strings.TrimRight(string(data), "\x00")
	case vtInt8:
		if len(data) < 1 {
			return ""
		}
		return fmt.Sprintf("%d", int8(data[0]))
	case vtUint8:
		if len(data) < 1 {
			return ""
		}
		return fmt.Sprintf("%d", data[0])
	case vtInt16:
		return fmt.Sprintf("%d", int16(format.U16(data)))
	case vtUint16:
		return fmt.Sprintf("%d", format.U16(data))
	case vtInt32:
		return fmt.Sprintf("%d", int32(format.U32(data)))
	case vtUint32:
		return fmt.Sprintf("%d", format.U32(data))
	case vtInt64:
		return fmt.Sprintf("%d", int64(format.U64(data)))
	case vtUint64:
		return fmt.Sprintf("%d", format.U64(data))
	case vtReal32:
		return fmt.Sprintf("%g", math.Float32frombits(format.U32(data)))
	case vtReal64:
		return fmt.Sprintf("%g", math.Float64frombits(format.U64(data)))
	case vtBool:
		if format.U32(data) != 0 {
			return "true"
		}
		return "false"
	case vtBinary:
		return fmt.Sprintf("%X", data)
	case vtGUID:
		return formatGUID(data)
	case vtSizeT, vtHexInt32:
		return fmt.Sprintf("0x%X", format.U32(data))
	case vtHexInt64:
		return fmt.Sprintf("0x%X", format.U64(data))
	case vtFiletime:
		ft := format.U64(data)
		if t, err := format.FiletimeToTime(ft, "binxml filetime"); err == nil {
			return t.Format("2006-01-02T15:04:05.0000000Z")
		}
		return ""
	case vtSystime:
		return formatSystemtime(data)
	case vtSID:
		return decodeSID(data)
	default:
		return fmt.Sprintf("%X", data)
	}
}

// formatArray renders an array value. Unicode-string arrays are the only
// kind EventData uses in practice; members are NUL-separated.
func (r *binxmlReader) formatArray(elem byte, data []byte) string {
	if elem == vtString {
		parts := format.DecodeUTF16MultiString(data)
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%X", data)
}

// formatGUID renders the 16-byte mixed-endian GUID layout in its braced
// canonical form.
func formatGUID(b []byte) string {
	if len(b) < 16 {
		return ""
	}
	return fmt.Sprintf("{%08x-%04x-%04x-%02x%02x-%02x%02x%02x%02x%02x%02x}",
		format.U32(b), format.U16(b[4:]), format.U16(b[6:]),
		b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15])
}

// formatSystemtime renders a 16-byte SYSTEMTIME structure.
func formatSystemtime(b []byte) string {
	if len(b) < 16 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03d",
		format.U16(b), format.U16(b[2:]), format.U16(b[6:]),
		format.U16(b[8:]), format.U16(b[10:]), format.U16(b[12:]), format.U16(b[14:]))
}
