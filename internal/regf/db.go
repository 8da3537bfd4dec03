package regf

import (
	"fmt"

	"github.com/joshuapare/tracekit/internal/format"
)

// DBRecord is a big-data record: values over ~16KB are split across multiple
// data blocks referenced through a blocklist cell.
//
//	Offset 0x00: "db"
//	Offset 0x02: number of blocks (uint16)
//	Offset 0x04: blocklist cell offset (uint32)
type DBRecord struct {
	NumBlocks       uint16
	BlocklistOffset uint32
}

// IsDBRecord reports whether the cell payload starts with the "db" tag.
func IsDBRecord(b []byte) bool {
	return len(b) >= SignatureSize && b[0] == DBSignature[0] && b[1] == DBSignature[1]
}

// DecodeDB decodes a big-data record header.
func DecodeDB(b []byte) (DBRecord, error) {
	if len(b) < DBMinSize {
		return DBRecord{}, fmt.Errorf("db: %w (need %d, have %d)", ErrTruncated, DBMinSize, len(b))
	}
	if !IsDBRecord(b) {
		return DBRecord{}, fmt.Errorf("db: %w", ErrSignatureMismatch)
	}
	return DBRecord{
		NumBlocks:       format.U16(b[DBNumBlocksOffset:]),
		BlocklistOffset: format.U32(b[DBListOffset:]),
	}, nil
}
