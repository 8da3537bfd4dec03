package hive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/tracekit/internal/regf"
)

// ValuesIn returns every decodable value of the key at keyPath, in value-list
// order. Values with unsupported type tags are logged and skipped;
// enumeration continues.
func (h *Hive) ValuesIn(keyPath string) ([]Value, error) {
	offset, err := h.find(keyPath)
	if err != nil {
		return nil, err
	}
	nk, err := h.nk(offset)
	if err != nil {
		return nil, err
	}
	if nk.ValueCount == 0 || nk.ValueListOffset == regf.InvalidOffset {
		return nil, nil
	}
	listCell, err := h.cell(nk.ValueListOffset)
	if err != nil {
		return nil, err
	}
	vkOffsets, err := regf.DecodeValueList(listCell.Data, nk.ValueCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	out := make([]Value, 0, len(vkOffsets))
	for _, vkOff := range vkOffsets {
		v, err := h.readValue(vkOff)
		if err != nil {
			var unsupported *UnsupportedTypeError
			if errors.As(err, &unsupported) {
				logrus.Warnf("skipping value with unsupported type 0x%X under %s", unsupported.Tag, keyPath)
			} else {
				logrus.Warnf("skipping unreadable value under %s: %v", keyPath, err)
			}
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// ValueAt returns the named value of the key at keyPath. The empty name
// addresses the key's default value.
func (h *Hive) ValueAt(keyPath, name string) (Value, error) {
	values, err := h.ValuesIn(keyPath)
	if err != nil {
		return Value{}, err
	}
	for _, v := range values {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return Value{}, &ValueNotFoundError{Key: keyPath, Name: name}
}

// readValue fetches the VK record at vkOff and decodes its payload into the
// typed Value variant.
func (h *Hive) readValue(vkOff uint32) (Value, error) {
	vk, err := h.vk(vkOff)
	if err != nil {
		return Value{}, err
	}
	name, err := valueName(vk)
	if err != nil {
		return Value{}, err
	}
	data, err := h.valueData(vk)
	if err != nil {
		return Value{}, err
	}
	return decodeValue(name, vk.Type, data)
}

// valueData resolves the payload bytes for a VK record: inline data comes
// from the offset field itself, large values go through a big-data record,
// the rest live in a single data cell.
func (h *Hive) valueData(vk regf.VKRecord) ([]byte, error) {
	length := vk.DataLen()
	if vk.DataInline() {
		var buf [regf.OffsetFieldSize]byte
		binary.LittleEndian.PutUint32(buf[:], vk.DataOffset)
		if length > len(buf) {
			return nil, fmt.Errorf("%w: inline length %d exceeds field", ErrCorrupt, length)
		}
		return append([]byte(nil), buf[:length]...), nil
	}
	if length == 0 {
		return nil, nil
	}
	dataCell, err := h.cell(vk.DataOffset)
	if err != nil {
		return nil, err
	}
	if regf.IsDBRecord(dataCell.Data) {
		return h.bigData(dataCell.Data, length)
	}
	if len(dataCell.Data) < length {
		return nil, fmt.Errorf("%w: value data truncated (want %d, have %d)", ErrCorrupt, length, len(dataCell.Data))
	}
	return dataCell.Data[:length], nil
}

// bigData reassembles a value split across big-data blocks, reading exactly
// expected bytes.
func (h *Hive) bigData(dbData []byte, expected int) ([]byte, error) {
	db, err := regf.DecodeDB(dbData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	listCell, err := h.cell(db.BlocklistOffset)
	if err != nil {
		return nil, fmt.Errorf("db blocklist: %w", err)
	}
	blockOffsets, err := regf.DecodeValueList(listCell.Data, uint32(db.NumBlocks))
	if err != nil {
		return nil, fmt.Errorf("%w: db blocklist: %w", ErrCorrupt, err)
	}

	out := make([]byte, expected)
	read := 0
	for i, blockOff := range blockOffsets {
		blockCell, err := h.cell(blockOff)
		if err != nil {
			return nil, fmt.Errorf("db block %d: %w", i, err)
		}
		block := blockCell.Data
		if len(block) > regf.DBBlockPadding {
			block = block[:len(block)-regf.DBBlockPadding]
		}
		if len(block) > expected-read {
			block = block[:expected-read]
		}
		copy(out[read:], block)
		read += len(block)
		if read >= expected {
			break
		}
	}
	if read != expected {
		return nil, fmt.Errorf("%w: db data size mismatch (want %d, got %d)", ErrCorrupt, expected, read)
	}
	return out, nil
}
