package linker

import (
	"fmt"
	"io"

	"irid/internal/iof"
)

// DumpFormat selects how introspection output is rendered.
type DumpFormat int

const (
	// DumpHuman renders a reader-friendly, aligned report.
	DumpHuman DumpFormat = iota
	// DumpPortable renders one "field=value" line per field, intended for
	// scripts rather than humans.
	DumpPortable
)

// DumpHeader writes a per-section header report for obj, read from path,
// to w. It performs no placement or linking.
func DumpHeader(w io.Writer, path string, obj *iof.Object, format DumpFormat) {
	for _, sec := range obj.Sections {
		if format == DumpPortable {
			fmt.Fprintf(w, "object=%s\n", path)
			fmt.Fprintf(w, "section=%s\n", sec.Name)
			fmt.Fprintf(w, "flags=0x%04x\n", sec.Flags)
			fmt.Fprintf(w, "origin=0x%04x\n", sec.Origin)
			fmt.Fprintf(w, "has_origin=%t\n", sec.HasOrigin())
			fmt.Fprintf(w, "code_size=%d\n", len(sec.Code))
			fmt.Fprintf(w, "symbols=%d\n", len(sec.Symbols))
			fmt.Fprintf(w, "links=%d\n", len(sec.Links))
			fmt.Fprintf(w, "exports=%d\n", len(sec.Exports))
			continue
		}
		fmt.Fprintf(w, "%s: section %q\n", path, sec.Name)
		fmt.Fprintf(w, "  flags:      0x%04x\n", sec.Flags)
		if sec.HasOrigin() {
			fmt.Fprintf(w, "  origin:     0x%04x\n", sec.Origin)
		} else {
			fmt.Fprintf(w, "  origin:     unset (free-floating)\n")
		}
		fmt.Fprintf(w, "  code size:  %d bytes\n", len(sec.Code))
		fmt.Fprintf(w, "  symbols:    %d\n", len(sec.Symbols))
		fmt.Fprintf(w, "  links:      %d\n", len(sec.Links))
		fmt.Fprintf(w, "  exports:    %d\n", len(sec.Exports))
	}
}

// DumpSymbols writes a per-symbol report for obj to w. When onlyExported is
// set, only entries from each section's export table are shown.
func DumpSymbols(w io.Writer, path string, obj *iof.Object, onlyExported bool, format DumpFormat) {
	for _, sec := range obj.Sections {
		if !onlyExported {
			for _, sym := range sec.Symbols {
				writeSymbolLine(w, path, sec.Name, sec.SymbolName(sym), sym.Addr, false, format)
			}
		}
		for _, exp := range sec.Exports {
			writeSymbolLine(w, path, sec.Name, sec.ExportName(exp), exp.Offset, true, format)
		}
	}
}

func writeSymbolLine(w io.Writer, path, section, name string, offset uint16, exported bool, format DumpFormat) {
	if format == DumpPortable {
		fmt.Fprintf(w, "object=%s\n", path)
		fmt.Fprintf(w, "section=%s\n", section)
		fmt.Fprintf(w, "symbol=%s\n", name)
		fmt.Fprintf(w, "offset=0x%04x\n", offset)
		fmt.Fprintf(w, "exported=%t\n", exported)
		return
	}
	marker := " "
	if exported {
		marker = "*"
	}
	fmt.Fprintf(w, "%s %-24s 0x%04x  (%s:%s)\n", marker, name, offset, path, section)
}
