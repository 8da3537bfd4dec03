// Package hivetest builds minimal, structurally valid registry hive images
// in memory for parser and analyser tests: a regf base block plus a single
// HBIN of hand-assembled cells.
package hivetest

import "encoding/binary"

// Offsets mirrored from the regf structures; kept local so test fixtures
// cannot drift silently with the decoder under test.
const (
	headerSize     = 4096
	hbinHeaderSize = 0x20
	hbinAlignment  = 0x1000
	cellHeaderSize = 4
	invalidOffset  = 0xFFFFFFFF

	nkFlagsOffset       = 0x02
	nkParentOffset      = 0x10
	nkSubkeyCountOffset = 0x14
	nkSubkeyListOffset  = 0x1C
	nkValueCountOffset  = 0x24
	nkValueListOffset   = 0x28
	nkClassNameOffset   = 0x30
	nkNameLenOffset     = 0x48
	nkNameOffset        = 0x4C
	nkFlagCompressed    = 0x20

	vkNameLenOffset = 0x02
	vkDataLenOffset = 0x04
	vkDataOffOffset = 0x08
	vkTypeOffset    = 0x0C
	vkFlagsOffset   = 0x10
	vkNameOffset    = 0x14
	vkFlagASCII     = 0x01
	vkInlineBit     = 0x80000000
)

// InvalidOffset is the unused-offset marker for NK fields.
const InvalidOffset uint32 = invalidOffset

// Builder accumulates cells for one synthetic hive.
type Builder struct {
	cells []byte
}

// addCell appends an allocated cell and returns its hive-bins-relative
// offset, the form NK/VK offset fields use.
func (b *Builder) addCell(payload []byte) uint32 {
	off := uint32(hbinHeaderSize + len(b.cells))
	size := cellHeaderSize + len(payload)
	padded := (size + 7) &^ 7
	cell := make([]byte, padded)
	binary.LittleEndian.PutUint32(cell, uint32(int32(-padded)))
	copy(cell[cellHeaderSize:], payload)
	b.cells = append(b.cells, cell...)
	return off
}

// NK writes a key cell with a compressed (ASCII) name.
func (b *Builder) NK(name string, subkeyCount, subkeyList, valueCount, valueList uint32) uint32 {
	p := make([]byte, nkNameOffset+len(name))
	p[0], p[1] = 'n', 'k'
	binary.LittleEndian.PutUint16(p[nkFlagsOffset:], nkFlagCompressed)
	binary.LittleEndian.PutUint32(p[nkParentOffset:], invalidOffset)
	binary.LittleEndian.PutUint32(p[nkSubkeyCountOffset:], subkeyCount)
	binary.LittleEndian.PutUint32(p[nkSubkeyListOffset:], subkeyList)
	binary.LittleEndian.PutUint32(p[nkValueCountOffset:], valueCount)
	binary.LittleEndian.PutUint32(p[nkValueListOffset:], valueList)
	binary.LittleEndian.PutUint32(p[nkClassNameOffset:], invalidOffset)
	binary.LittleEndian.PutUint16(p[nkNameLenOffset:], uint16(len(name)))
	copy(p[nkNameOffset:], name)
	return b.addCell(p)
}

// LF writes a direct subkey list referencing the given NK offsets.
func (b *Builder) LF(children ...uint32) uint32 {
	p := make([]byte, 4+len(children)*8)
	p[0], p[1] = 'l', 'f'
	binary.LittleEndian.PutUint16(p[2:], uint16(len(children)))
	for i, c := range children {
		binary.LittleEndian.PutUint32(p[4+i*8:], c)
	}
	return b.addCell(p)
}

// ValueList writes a value list referencing the given VK offsets.
func (b *Builder) ValueList(vks ...uint32) uint32 {
	p := make([]byte, len(vks)*4)
	for i, v := range vks {
		binary.LittleEndian.PutUint32(p[i*4:], v)
	}
	return b.addCell(p)
}

// Data writes a raw data cell.
func (b *Builder) Data(raw []byte) uint32 {
	return b.addCell(raw)
}

// VK writes a value record referencing an external data cell.
func (b *Builder) VK(name string, typ uint32, dataLen, dataOff uint32) uint32 {
	return b.vk(name, typ, dataLen, dataOff)
}

// VKInline writes a value record with the payload packed into the offset
// field (at most four bytes).
func (b *Builder) VKInline(name string, typ uint32, data []byte) uint32 {
	var off uint32
	for i, by := range data {
		off |= uint32(by) << (8 * i)
	}
	return b.vk(name, typ, uint32(len(data))|vkInlineBit, off)
}

func (b *Builder) vk(name string, typ uint32, dataLen, dataOff uint32) uint32 {
	p := make([]byte, vkNameOffset+len(name))
	p[0], p[1] = 'v', 'k'
	binary.LittleEndian.PutUint16(p[vkNameLenOffset:], uint16(len(name)))
	binary.LittleEndian.PutUint32(p[vkDataLenOffset:], dataLen)
	binary.LittleEndian.PutUint32(p[vkDataOffOffset:], dataOff)
	binary.LittleEndian.PutUint32(p[vkTypeOffset:], typ)
	binary.LittleEndian.PutUint16(p[vkFlagsOffset:], vkFlagASCII)
	copy(p[vkNameOffset:], name)
	return b.addCell(p)
}

// SZ writes a UTF-16LE string data cell plus its VK record.
func (b *Builder) SZ(name, value string) uint32 {
	raw := UTF16Z(value)
	return b.VK(name, 1, uint32(len(raw)), b.Data(raw))
}

// Build assembles the final image with the root key at rootOff.
func (b *Builder) Build(rootOff uint32) []byte {
	hbinSize := (hbinHeaderSize + len(b.cells) + hbinAlignment - 1) &^ (hbinAlignment - 1)
	buf := make([]byte, headerSize+hbinSize)
	copy(buf, "regf")
	binary.LittleEndian.PutUint32(buf[0x04:], 1) // primary sequence
	binary.LittleEndian.PutUint32(buf[0x08:], 1) // secondary sequence
	binary.LittleEndian.PutUint32(buf[0x14:], 1) // major
	binary.LittleEndian.PutUint32(buf[0x18:], 5) // minor
	binary.LittleEndian.PutUint32(buf[0x24:], rootOff)
	binary.LittleEndian.PutUint32(buf[0x28:], uint32(hbinSize))

	hb := buf[headerSize:]
	copy(hb, "hbin")
	binary.LittleEndian.PutUint32(hb[0x08:], uint32(hbinSize))
	copy(hb[hbinHeaderSize:], b.cells)
	return buf
}

// UTF16Z encodes s as NUL-terminated UTF-16LE.
func UTF16Z(s string) []byte {
	out := make([]byte, 0, len(s)*2+2)
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return append(out, 0, 0)
}
