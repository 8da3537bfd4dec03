package eventlog

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fv formats a value of the given type over raw bytes placed in a private
// chunk.
func fv(typ byte, data []byte) string {
	r := &binxmlReader{chunk: data}
	return r.formatValue(binValue{typ: typ, off: 0, size: len(data)})
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestFormatScalarValues(t *testing.T) {
	assert.Equal(t, "", fv(vtNull, nil))
	assert.Equal(t, "hello", fv(vtString, utf16enc("hello")))
	assert.Equal(t, "ansi", fv(vtAnsiString, []byte("ansi\x00")))
	assert.Equal(t, "-5", fv(vtInt8, []byte{0xFB}))
	assert.Equal(t, "250", fv(vtUint8, []byte{250}))
	assert.Equal(t, "-2", fv(vtInt32, []byte{0xFE, 0xFF, 0xFF, 0xFF}))
	assert.Equal(t, "4000000000", fv(vtUint32, []byte{0x00, 0x28, 0x6B, 0xEE}))
	assert.Equal(t, "443", fv(vtUint16, []byte{0xBB, 0x01}))
	assert.Equal(t, "72623859790382856", fv(vtUint64, u64le(0x0102030405060708)))
	assert.Equal(t, "true", fv(vtBool, []byte{1, 0, 0, 0}))
	assert.Equal(t, "false", fv(vtBool, []byte{0, 0, 0, 0}))
	assert.Equal(t, "DEADBEEF", fv(vtBinary, []byte{0xDE, 0xAD, 0xBE, 0xEF}))
	assert.Equal(t, "0xABCD", fv(vtHexInt32, []byte{0xCD, 0xAB, 0x00, 0x00}))
	assert.Equal(t, "0x1122334455667788", fv(vtHexInt64, u64le(0x1122334455667788)))
}

func TestFormatGUID(t *testing.T) {
	// {00112233-4455-6677-8899-aabbccddeeff} in mixed-endian storage.
	raw := []byte{
		0x33, 0x22, 0x11, 0x00, // data1, little-endian
		0x55, 0x44, // data2
		0x77, 0x66, // data3
		0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, // data4, big-endian
	}
	assert.Equal(t, "{00112233-4455-6677-8899-aabbccddeeff}", fv(vtGUID, raw))
	assert.Equal(t, "", fv(vtGUID, raw[:8]))
}

func TestFormatSIDValue(t *testing.T) {
	sid := []byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05, 0x12, 0x00, 0x00, 0x00}
	assert.Equal(t, "S-1-5-18", fv(vtSID, sid))
}

func TestFormatFiletimeValue(t *testing.T) {
	got := fv(vtFiletime, u64le(0x01D4D3F0B9C10000))
	assert.Contains(t, got, "2019-03-06T07:46:36")
	// Out-of-window FILETIMEs render empty rather than junk.
	assert.Equal(t, "", fv(vtFiletime, u64le(42)))
}

func TestFormatStringArray(t *testing.T) {
	raw := append(utf16enc("first"), 0, 0)
	raw = append(raw, utf16enc("second")...)
	raw = append(raw, 0, 0, 0, 0)
	assert.Equal(t, "first, second", fv(vtString|vtArrayFlag, raw))
}
