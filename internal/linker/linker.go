// Package linker combines one or more IOF objects into a single flat,
// placed executable image: it places every section in the 64 KiB address
// space, builds a global symbol map from exports, and patches every
// link-point to the resolved absolute address of the symbol it names.
package linker

import (
	"encoding/binary"
	"fmt"

	"irid/internal/iof"
	"irid/internal/isa"
)

// InputObject pairs a parsed IOF object with the source path it was read
// from, used only for diagnostics (symbol-collision and unresolved-link
// messages name the offending file).
type InputObject struct {
	Path   string
	Object *iof.Object
}

// UnresolvedLinkError reports a link-point whose target symbol was never
// exported by any input object.
type UnresolvedLinkError struct {
	Symbol     string
	ObjectPath string
	Section    string
}

func (e *UnresolvedLinkError) Error() string {
	return fmt.Sprintf("linker: unresolved symbol %q (referenced from %s, section %q)", e.Symbol, e.ObjectPath, e.Section)
}

// placedSection is one section after it has been assigned a final base
// address in the output image.
type placedSection struct {
	objectPath string
	sec        *iof.Section
	base       uint16
}

// Image is the result of a successful Link: a flat byte array ready to be
// written to disk or handed directly to the emulator.
type Image struct {
	Bytes []byte
}

// Link places every section from inputs, resolves every link-point across
// every section against the combined export set, and returns the
// resulting flat image. Objects are processed in the order given; the
// origin-flagged sections of every object are placed first, then the
// remaining sections first-fit.
func Link(inputs []InputObject) (*Image, error) {
	table := newRegionTable()
	globals := newGlobalSymbolTable()

	var placed []*placedSection

	// Pass 1: place every statically-origined section first, so the
	// first-fit placement of free-floating sections below sees the real
	// gaps.
	for _, in := range inputs {
		for _, sec := range in.Object.Sections {
			if !sec.HasOrigin() {
				continue
			}
			ps := &placedSection{objectPath: in.Path, sec: sec, base: sec.Origin}
			if err := table.allocateAt(int(sec.Origin), len(sec.Code), ps); err != nil {
				pe := err.(*PlacementError)
				pe.Section = in.Path + ":" + sec.Name
				return nil, pe
			}
			placed = append(placed, ps)
		}
	}

	for _, in := range inputs {
		for _, sec := range in.Object.Sections {
			if sec.HasOrigin() {
				continue
			}
			ps := &placedSection{objectPath: in.Path, sec: sec}
			addr, err := table.allocateFirstFit(len(sec.Code), ps)
			if err != nil {
				pe := err.(*PlacementError)
				pe.Section = in.Path + ":" + sec.Name
				return nil, pe
			}
			ps.base = uint16(addr)
			placed = append(placed, ps)
		}
	}

	// Pass 2: build the global symbol map from every section's exports,
	// now that every section has a final base address.
	for _, ps := range placed {
		for _, exp := range ps.sec.Exports {
			name := ps.sec.ExportName(exp)
			gs := &globalSymbol{name: name, objectPath: ps.objectPath, section: ps, relOffset: exp.Offset}
			if err := globals.declare(gs); err != nil {
				return nil, err
			}
		}
	}

	image := make([]byte, isa.MemSize)
	for _, ps := range placed {
		copy(image[ps.base:], ps.sec.Code)
	}

	// Pass 3: patch every link-point to the resolved absolute address.
	for _, ps := range placed {
		for _, link := range ps.sec.Links {
			name := ps.sec.LinkName(link)
			gs, ok := globals.lookup(name)
			if !ok {
				return nil, &UnresolvedLinkError{Symbol: name, ObjectPath: ps.objectPath, Section: ps.sec.Name}
			}
			addr := int(ps.base) + int(link.Addr)
			if addr+2 > len(image) {
				return nil, &PlacementError{Reason: "link point falls outside the image", Section: ps.objectPath + ":" + ps.sec.Name}
			}
			binary.LittleEndian.PutUint16(image[addr:addr+2], gs.absAddr())
		}
	}

	return &Image{Bytes: image}, nil
}
