package iof

import "fmt"

// Parse reads a complete IOF byte stream into an Object. It validates the
// magic and format version, then decodes every section eagerly (the format
// is small enough, and the linker needs every table regardless).
func Parse(data []byte) (*Object, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if string(data[0:4]) != string(Magic[:]) {
		return nil, ErrBadMagic
	}
	if data[4] != Format {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadFormat, data[4], Format)
	}

	sectionCount := getU16(data, 6)
	sectionAddr := getU16(data, 8)

	obj := &Object{}
	for i := 0; i < int(sectionCount); i++ {
		ptrOff := int(sectionAddr) + i*pointerSize
		if ptrOff+pointerSize > len(data) {
			return nil, ErrTruncated
		}
		base := int(getU16(data, ptrOff))
		sec, err := parseSection(data, base)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		obj.Sections = append(obj.Sections, sec)
	}

	return obj, nil
}

func parseSection(data []byte, base int) (*Section, error) {
	if base+sectionHdrSize > len(data) {
		return nil, ErrTruncated
	}
	hdr := data[base:]

	flags := getU16(hdr, 0)
	origin := getU16(hdr, 2)
	codeSize := getU16(hdr, 4)
	codeAddr := getU16(hdr, 6)
	symbolsCount := getU16(hdr, 8)
	symbolsAddr := getU16(hdr, 10)
	linksCount := getU16(hdr, 12)
	linksAddr := getU16(hdr, 14)
	exportsCount := getU16(hdr, 16)
	exportsAddr := getU16(hdr, 18)
	stringsCount := getU16(hdr, 20)
	stringsAddr := getU16(hdr, 22)
	snameSize := getU16(hdr, 24)
	snameAddr := getU16(hdr, 26)

	abs := func(rel uint16) int { return base + int(rel) }

	if abs(codeAddr)+int(codeSize) > len(data) {
		return nil, ErrTruncated
	}
	code := make([]byte, codeSize)
	copy(code, data[abs(codeAddr):abs(codeAddr)+int(codeSize)])

	s := &Section{Flags: flags, Origin: origin, Code: code}

	if abs(snameAddr)+int(snameSize) > len(data) {
		return nil, ErrTruncated
	}
	s.Name = string(data[abs(snameAddr) : abs(snameAddr)+int(snameSize)])

	s.strings = make([]string, stringsCount)
	for i := 0; i < int(stringsCount); i++ {
		rowOff := abs(stringsAddr) + i*tableEntrySize
		if rowOff+tableEntrySize > len(data) {
			return nil, ErrTruncated
		}
		id := getU16(data, rowOff)
		addr := getU16(data, rowOff+2)
		strStart := base + int(addr)
		end := strStart
		for end < len(data) && data[end] != 0 {
			end++
		}
		if end >= len(data) {
			return nil, ErrTruncated
		}
		if int(id) >= len(s.strings) {
			return nil, fmt.Errorf("iof: string id %d out of range", id)
		}
		s.strings[id] = string(data[strStart:end])
	}

	for i := 0; i < int(symbolsCount); i++ {
		off := abs(symbolsAddr) + i*tableEntrySize
		if off+tableEntrySize > len(data) {
			return nil, ErrTruncated
		}
		s.Symbols = append(s.Symbols, Symbol{StringID: getU16(data, off), Addr: getU16(data, off+2)})
	}

	for i := 0; i < int(linksCount); i++ {
		off := abs(linksAddr) + i*tableEntrySize
		if off+tableEntrySize > len(data) {
			return nil, ErrTruncated
		}
		s.Links = append(s.Links, Link{StringID: getU16(data, off), Addr: getU16(data, off+2)})
	}

	for i := 0; i < int(exportsCount); i++ {
		off := abs(exportsAddr) + i*tableEntrySize
		if off+tableEntrySize > len(data) {
			return nil, ErrTruncated
		}
		s.Exports = append(s.Exports, Export{StringID: getU16(data, off), Offset: getU16(data, off+2)})
	}

	return s, nil
}
