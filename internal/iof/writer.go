package iof

import "encoding/binary"

const (
	headerSize  = 16
	pointerSize = 2
	sectionHdrSize = 28 // 14 little-endian u16 fields
	tableEntrySize = 4  // every Symbol/Link/Export/string-header row
)

func putU16(buf []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(buf[off:off+2], v)
}

func getU16(buf []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(buf[off : off+2])
}

// buildSection serializes one section to a self-contained byte buffer. All
// *_addr fields inside the section header are relative to the start of
// this buffer, not to the object as a whole; the object-level section
// pointer locates the buffer itself.
func (s *Section) buildSection() []byte {
	buf := make([]byte, sectionHdrSize)

	code := s.Code

	codeAddr := len(buf)
	buf = append(buf, code...)

	symbolsAddr := len(buf)
	for _, sym := range s.Symbols {
		row := make([]byte, tableEntrySize)
		putU16(row, 0, sym.StringID)
		putU16(row, 2, sym.Addr)
		buf = append(buf, row...)
	}

	linksAddr := len(buf)
	for _, l := range s.Links {
		row := make([]byte, tableEntrySize)
		putU16(row, 0, l.StringID)
		putU16(row, 2, l.Addr)
		buf = append(buf, row...)
	}

	exportsAddr := len(buf)
	for _, e := range s.Exports {
		row := make([]byte, tableEntrySize)
		putU16(row, 0, e.StringID)
		putU16(row, 2, e.Offset)
		buf = append(buf, row...)
	}

	snameAddr := len(buf)
	buf = append(buf, []byte(s.Name)...)
	buf = append(buf, 0)

	stringsAddr := len(buf)
	// Reserve the string-header rows up front so their addr fields can
	// point past them to the bytes that follow.
	headerStart := len(buf)
	buf = append(buf, make([]byte, tableEntrySize*len(s.strings))...)
	for i, val := range s.strings {
		addr := len(buf)
		row := headerStart + i*tableEntrySize
		putU16(buf, row, uint16(i))
		putU16(buf, row+2, uint16(addr))
		buf = append(buf, []byte(val)...)
		buf = append(buf, 0)
	}

	putU16(buf, 0, s.Flags)
	putU16(buf, 2, s.Origin)
	putU16(buf, 4, uint16(len(code)))
	putU16(buf, 6, uint16(codeAddr))
	putU16(buf, 8, uint16(len(s.Symbols)))
	putU16(buf, 10, uint16(symbolsAddr))
	putU16(buf, 12, uint16(len(s.Links)))
	putU16(buf, 14, uint16(linksAddr))
	putU16(buf, 16, uint16(len(s.Exports)))
	putU16(buf, 18, uint16(exportsAddr))
	putU16(buf, 20, uint16(len(s.strings)))
	putU16(buf, 22, uint16(stringsAddr))
	putU16(buf, 24, uint16(len(s.Name)))
	putU16(buf, 26, uint16(snameAddr))

	return buf
}

// Build serializes the object into its on-disk IOF byte representation.
// Sections are emitted in registration order, each as a self-contained
// buffer following the header and section-pointer array.
func (o *Object) Build() []byte {
	sectionBufs := make([][]byte, len(o.Sections))
	for i, s := range o.Sections {
		sectionBufs[i] = s.buildSection()
	}

	pointerArrayAddr := headerSize
	cursor := pointerArrayAddr + pointerSize*len(o.Sections)

	out := make([]byte, cursor)
	for i, buf := range sectionBufs {
		putU16(out, pointerArrayAddr+i*pointerSize, uint16(cursor))
		out = append(out, buf...)
		cursor += len(buf)
	}

	copy(out[0:4], Magic[:])
	out[4] = Format
	out[5] = 2 // addrwidth, bytes per address (16-bit)
	putU16(out, 6, uint16(len(o.Sections)))
	putU16(out, 8, uint16(pointerArrayAddr))
	out[10] = 0 // endianness: 0 == little-endian
	// out[11:16] reserved, left zero.

	return out
}
