package eventlog

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/internal/format"
)

// EVTX framing. The file carries a 4096-byte header followed by 64KiB
// chunks; each chunk holds its own string/template caches and a run of
// records.
//
//	Chunk:
//	0x000  8   'ElfChnk\0'
//	0x028  4   Header size (0x80)
//	0x030  4   Free space offset
//	0x080  256 Common string offset table (64 u32)
//	0x180  128 Template offset table (32 u32)
//	0x200  ..  Records
//
//	Record:
//	0x00   4   0x2A 0x2A 0x00 0x00
//	0x04   4   Size
//	0x08   8   Record identifier
//	0x10   8   Written time (FILETIME)
//	0x18   ..  Binary XML stream
//	size-4 4   Size (copy)
const (
	evtxFileHeaderSize  = 0x1000
	evtxChunkSize       = 0x10000
	evtxChunkHeaderSize = 0x200
	evtxFreeSpaceOffset = 0x30

	evtxRecordHeaderSize  = 0x18
	evtxRecordTrailerSize = 4
	evtxRecordMinSize     = evtxRecordHeaderSize + evtxRecordTrailerSize
	evtxRecordSizeOffset  = 0x04
	evtxRecordTimeOffset  = 0x10
)

var (
	evtxFileSignature   = []byte("ElfFile\x00")
	evtxChunkSignature  = []byte("ElfChnk\x00")
	evtxRecordSignature = []byte{0x2A, 0x2A, 0x00, 0x00}
)

// EvtxParser decodes modern .evtx logs.
type EvtxParser struct{}

var _ Parser = (*EvtxParser)(nil)

// ParseAll decodes every record in the log at path, in file order.
func (p *EvtxParser) ParseAll(path string) ([]Record, error) {
	return p.parse(path, func(uint32) bool { return true })
}

// FilterByID decodes only records whose EventID matches id.
func (p *EvtxParser) FilterByID(path string, id uint32) ([]Record, error) {
	return p.parse(path, func(got uint32) bool { return got == id })
}

func (p *EvtxParser) parse(path string, want func(uint32) bool) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileOpenError{Path: path, Reason: err.Error()}
	}
	if len(data) < evtxFileHeaderSize || !bytes.Equal(data[:len(evtxFileSignature)], evtxFileSignature) {
		return nil, &FileOpenError{Path: path, Reason: "not an EVTX file"}
	}

	var out []Record
	for chunkOff := evtxFileHeaderSize; chunkOff+evtxChunkHeaderSize <= len(data); chunkOff += evtxChunkSize {
		end := chunkOff + evtxChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[chunkOff:end]
		if !bytes.Equal(chunk[:len(evtxChunkSignature)], evtxChunkSignature) {
			continue // unused or wiped chunk
		}
		p.parseChunk(path, chunk, want, &out)
	}
	return out, nil
}

func (p *EvtxParser) parseChunk(path string, chunk []byte, want func(uint32) bool, out *[]Record) {
	freeSpace := int(format.U32(chunk[evtxFreeSpaceOffset:]))
	if freeSpace == 0 || freeSpace > len(chunk) {
		freeSpace = len(chunk)
	}

	off := evtxChunkHeaderSize
	for off+evtxRecordMinSize <= freeSpace {
		if !bytes.Equal(chunk[off:off+4], evtxRecordSignature) {
			break
		}
		size := int(format.U32(chunk[off+evtxRecordSizeOffset:]))
		if size < evtxRecordMinSize || off+size > freeSpace {
			break
		}

		rec, err := decodeEvtxRecord(chunk, off, size)
		if err != nil {
			logrus.Warnf("evtx %s: skipping record at chunk offset %d: %v", path, off, err)
		} else if want(rec.EventID) {
			*out = append(*out, rec)
		}
		off += size
	}
}

func decodeEvtxRecord(chunk []byte, off, size int) (Record, error) {
	rec := Record{
		TimestampRaw: format.U64(chunk[off+evtxRecordTimeOffset:]),
	}
	if rec.TimestampRaw != 0 {
		if t, err := format.FiletimeToTime(rec.TimestampRaw, "evtx written time"); err == nil {
			rec.Timestamp = t
		} else {
			logrus.Warnf("evtx record: %v", err)
			rec.TimestampRaw = 0
		}
	}

	r := &binxmlReader{chunk: chunk}
	xml, err := r.render(off+evtxRecordHeaderSize, off+size-evtxRecordTrailerSize)
	if err != nil {
		return Record{}, err
	}
	rec.XML = xml
	extractFromXML(&rec, xml)
	return rec, nil
}
