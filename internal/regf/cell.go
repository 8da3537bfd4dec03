package regf

import (
	"errors"
	"fmt"

	"github.com/joshuapare/tracekit/internal/format"
)

// Cell is a single allocation within an HBIN.
//
//	Offset  Size  Description
//	0x00    4     Signed size. Negative => allocated, positive => free.
//	              The absolute value includes the 4-byte header.
//	0x04    ...   Payload. First two bytes form the record tag when allocated.
type Cell struct {
	Size int  // Total size including header
	Free bool // True when the cell is marked as free
	Data []byte
}

// ParseCell decodes the cell starting at the head of b.
func ParseCell(b []byte) (Cell, error) {
	if len(b) < CellHeaderSize {
		return Cell{}, fmt.Errorf("cell: %w", ErrTruncated)
	}
	raw := format.I32(b)
	if raw == 0 {
		return Cell{}, errors.New("cell: zero length")
	}
	allocated := raw < 0
	size := int(raw)
	if allocated {
		size = -size
	}
	if size < CellHeaderSize || size > len(b) {
		return Cell{}, fmt.Errorf("cell: %w", ErrTruncated)
	}
	return Cell{
		Size: size,
		Free: !allocated,
		Data: b[CellHeaderSize:size],
	}, nil
}
