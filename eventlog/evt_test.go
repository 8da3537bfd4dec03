package eventlog

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildEvtRecord assembles one legacy record with the given strings.
func buildEvtRecord(eventID uint32, eventType uint16, written uint32, source, computer string, strs []string) []byte {
	names := append(utf16enc(source), 0, 0)
	names = append(names, append(utf16enc(computer), 0, 0)...)

	var strData []byte
	for _, s := range strs {
		strData = append(strData, append(utf16enc(s), 0, 0)...)
	}

	stringsOff := evtNamesOffset + len(names)
	size := stringsOff + len(strData) + 4 // trailing size copy

	rec := make([]byte, size)
	binary.LittleEndian.PutUint32(rec, uint32(size))
	copy(rec[4:], evtRecordSignature)
	binary.LittleEndian.PutUint32(rec[0x08:], 1)
	binary.LittleEndian.PutUint32(rec[0x0C:], written)
	binary.LittleEndian.PutUint32(rec[evtWrittenTimeOffset:], written)
	binary.LittleEndian.PutUint32(rec[evtEventIDOffset:], eventID)
	binary.LittleEndian.PutUint16(rec[evtEventTypeOffset:], eventType)
	binary.LittleEndian.PutUint16(rec[evtNumStringsOffset:], uint16(len(strs)))
	binary.LittleEndian.PutUint32(rec[evtStringsOffOffset:], uint32(stringsOff))
	copy(rec[evtNamesOffset:], names)
	copy(rec[stringsOff:], strData)
	binary.LittleEndian.PutUint32(rec[size-4:], uint32(size))
	return rec
}

func utf16enc(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

func writeEvtFile(t *testing.T, records ...[]byte) string {
	t.Helper()
	buf := make([]byte, evtHeaderSize)
	binary.LittleEndian.PutUint32(buf, evtHeaderSize)
	copy(buf[4:], evtRecordSignature)
	for _, r := range records {
		buf = append(buf, r...)
	}
	path := filepath.Join(t.TempDir(), "sys.evt")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestEvtParseAll(t *testing.T) {
	path := writeEvtFile(t,
		buildEvtRecord(592, evtTypeAuditSuccess, 1_000_000_000, "Security", "XPBOX",
			[]string{`C:\WINDOWS\system32\cmd.exe`, "1234"}),
		buildEvtRecord(593, evtTypeError, 1_000_000_100, "Security", "XPBOX", nil),
	)

	p := &EvtParser{}
	recs, err := p.ParseAll(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	r := recs[0]
	assert.Equal(t, uint32(592), r.EventID)
	assert.Equal(t, LevelInfo, r.Level)
	assert.Equal(t, "Security", r.Provider)
	assert.Equal(t, "XPBOX", r.Computer)
	assert.Equal(t, int64(1_000_000_000), r.Timestamp.Unix())

	// Strings become StringN fields and the joined description.
	v, ok := r.Data.Get("String0")
	require.True(t, ok)
	assert.Equal(t, `C:\WINDOWS\system32\cmd.exe`, v)
	assert.Equal(t, `C:\WINDOWS\system32\cmd.exe | 1234`, r.Description)

	assert.Equal(t, LevelError, recs[1].Level)
	assert.Empty(t, recs[1].Description)
}

func TestEvtFilterByID(t *testing.T) {
	path := writeEvtFile(t,
		buildEvtRecord(592, evtTypeInformation, 1_000_000_000, "Security", "XPBOX", nil),
		buildEvtRecord(601, evtTypeWarning, 1_000_000_001, "Security", "XPBOX", nil),
		buildEvtRecord(592, evtTypeInformation, 1_000_000_002, "Security", "XPBOX", nil),
	)
	p := &EvtParser{}
	recs, err := p.FilterByID(path, 592)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, uint32(592), r.EventID)
	}
	// Original file order preserved.
	assert.True(t, recs[0].Timestamp.Before(recs[1].Timestamp))
}

func TestEvtMissingFile(t *testing.T) {
	p := &EvtParser{}
	_, err := p.ParseAll(filepath.Join(t.TempDir(), "nope.evt"))
	var open *FileOpenError
	assert.ErrorAs(t, err, &open)
}

func TestEvtEmptyLogIsNotAnError(t *testing.T) {
	path := writeEvtFile(t)
	p := &EvtParser{}
	recs, err := p.ParseAll(path)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestOpenDispatch(t *testing.T) {
	p, ok := Open("Logs/Security.evtx")
	require.True(t, ok)
	assert.IsType(t, &EvtxParser{}, p)

	p, ok = Open(`C:\WINDOWS\system32\config\SysEvent.Evt`)
	require.True(t, ok)
	assert.IsType(t, &EvtParser{}, p)

	_, ok = Open("notes.txt")
	assert.False(t, ok)
}
