// Package hive provides read-only navigation of Windows registry hive files
// by logical key path, with typed decoding of the REG_* value family. It is
// the registry surface the analysers consume: ValuesIn, ValueAt and Subkeys
// over forward- or backslash-separated, case-insensitive paths.
package hive

import (
	"fmt"
	"time"

	"github.com/joshuapare/tracekit/internal/format"
	"github.com/joshuapare/tracekit/internal/mmfile"
	"github.com/joshuapare/tracekit/internal/regf"
)

// maxCellSize guards against absurd cell sizes in corrupt hives.
const maxCellSize = 64 << 20

// Hive is an opened registry hive, backed by mmap where available. It owns
// the mapping and releases it on Close; a Hive is safe for sequential use
// from one goroutine.
type Hive struct {
	buf       []byte
	unmap     func() error
	head      regf.Header
	closed    bool
	hbinIndex []hbinEntry
}

type hbinEntry struct {
	offset int // absolute offset in file (including base block)
	size   int
}

// Open maps the hive at path and validates its structure.
func Open(path string) (*Hive, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, fmt.Errorf("hive: open %s: %w", path, err)
	}
	h, err := OpenBytes(data)
	if err != nil {
		if unmap != nil {
			_ = unmap()
		}
		return nil, err
	}
	h.unmap = unmap
	return h, nil
}

// OpenBytes creates a hive reader backed by the provided buffer.
func OpenBytes(buf []byte) (*Hive, error) {
	head, err := regf.ParseHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotHive, err)
	}
	h := &Hive{buf: buf, head: head}
	if err := h.indexHBINs(); err != nil {
		return nil, err
	}
	return h, nil
}

// Close releases the mapping. Safe to call twice.
func (h *Hive) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.unmap != nil {
		return h.unmap()
	}
	return nil
}

// LastWrite returns the hive's header timestamp.
func (h *Hive) LastWrite() time.Time {
	return format.FiletimeToTimeLenient(h.head.LastWriteRaw)
}

func (h *Hive) ensureOpen() error {
	if h.closed {
		return ErrClosed
	}
	return nil
}

// indexHBINs walks every bin once at open time so later cell reads have a
// validated boundary map. Open succeeding means the bin structure is sound.
func (h *Hive) indexHBINs() error {
	offset := regf.HeaderSize
	dataEnd := regf.HeaderSize + int(h.head.HiveBinsDataSize)
	h.hbinIndex = make([]hbinEntry, 0, 4)

	for offset < dataEnd && offset < len(h.buf) {
		hbin, next, err := regf.NextHBIN(h.buf, offset)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		h.hbinIndex = append(h.hbinIndex, hbinEntry{offset: offset, size: int(hbin.Size)})
		if next <= offset {
			return fmt.Errorf("%w: hbin iteration failed to advance", ErrCorrupt)
		}
		offset = next
	}
	return nil
}

func (h *Hive) hbinFor(abs int) (start, end int, err error) {
	for _, e := range h.hbinIndex {
		if abs >= e.offset && abs < e.offset+e.size {
			return e.offset, e.offset + e.size, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: offset %d not in any hbin", ErrCorrupt, abs)
}

// cell resolves a cell by its hive-relative offset. Cells occasionally span
// bin boundaries; those are reassembled with bin headers skipped.
func (h *Hive) cell(offset uint32) (regf.Cell, error) {
	abs := regf.HeaderSize + int(offset)
	if abs < regf.HeaderSize || abs >= len(h.buf) {
		return regf.Cell{}, fmt.Errorf("%w: cell offset %d out of range", ErrCorrupt, offset)
	}
	data, err := h.cellBytes(abs)
	if err != nil {
		return regf.Cell{}, err
	}
	cell, err := regf.ParseCell(data)
	if err != nil {
		return regf.Cell{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if cell.Size > maxCellSize {
		return regf.Cell{}, fmt.Errorf("%w: cell exceeds size guard", ErrCorrupt)
	}
	return cell, nil
}

func (h *Hive) cellBytes(abs int) ([]byte, error) {
	if abs+regf.CellHeaderSize > len(h.buf) {
		return nil, fmt.Errorf("%w: cell size out of bounds", ErrCorrupt)
	}
	raw := int(format.I32(h.buf[abs:]))
	size := raw
	if raw < 0 {
		size = -raw
	}
	if size < regf.CellHeaderSize || size > maxCellSize {
		return nil, fmt.Errorf("%w: bad cell size %d", ErrCorrupt, raw)
	}

	_, hbinEnd, err := h.hbinFor(abs)
	if err != nil {
		return nil, err
	}
	if abs+size <= hbinEnd {
		return h.buf[abs : abs+size], nil
	}

	// Cell crosses bin boundaries: copy, skipping each subsequent bin header.
	out := make([]byte, size)
	copied := 0
	cur := abs
	for copied < size {
		_, end, err := h.hbinFor(cur)
		if err != nil {
			return nil, err
		}
		n := end - cur
		if n > size-copied {
			n = size - copied
		}
		if cur+n > len(h.buf) || n == 0 {
			return nil, fmt.Errorf("%w: cell data out of bounds", ErrCorrupt)
		}
		copy(out[copied:], h.buf[cur:cur+n])
		copied += n
		cur += n
		if copied < size && cur >= end {
			cur = end + regf.HBINHeaderSize
		}
	}
	return out, nil
}

func (h *Hive) nk(offset uint32) (regf.NKRecord, error) {
	cell, err := h.cell(offset)
	if err != nil {
		return regf.NKRecord{}, err
	}
	nk, err := regf.DecodeNK(cell.Data)
	if err != nil {
		return regf.NKRecord{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nk, nil
}

func (h *Hive) vk(offset uint32) (regf.VKRecord, error) {
	cell, err := h.cell(offset)
	if err != nil {
		return regf.VKRecord{}, err
	}
	vk, err := regf.DecodeVK(cell.Data)
	if err != nil {
		return regf.VKRecord{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return vk, nil
}

// subkeyList resolves a subkey list cell, following RI indirection.
func (h *Hive) subkeyList(offset uint32, expected uint32) ([]uint32, error) {
	cell, err := h.cell(offset)
	if err != nil {
		return nil, err
	}
	if regf.IsRIList(cell.Data) {
		subLists, err := regf.DecodeRIList(cell.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		var out []uint32
		for _, sub := range subLists {
			entries, err := h.subkeyList(sub, 0)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
		}
		return out, nil
	}
	list, err := regf.DecodeSubkeyList(cell.Data, expected)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return list, nil
}
