package linker

import "irid/internal/isa"

// regionType classifies one interval of the linker's address-space map.
type regionType int

const (
	regionFree regionType = iota
	regionAllocated
)

// region is one [start, start+size) interval of the 64 KiB address space,
// either free for placement or already claimed by a placed section.
type region struct {
	typ     regionType
	start   int
	size    int
	section *placedSection
}

func (r *region) end() int {
	return r.start + r.size
}

// regionTable is a sorted, gap-free slice of regions covering
// [0, isa.MemSize) exactly once. It starts as a single free region and
// accumulates allocated holes as sections are placed.
type regionTable struct {
	regions []*region
}

func newRegionTable() *regionTable {
	return &regionTable{
		regions: []*region{{typ: regionFree, start: 0, size: isa.MemSize}},
	}
}

// allocateAt claims [start, start+size) for section, splitting whichever
// free region currently covers it. Returns an error if the range is out of
// bounds or overlaps an already-allocated region.
func (t *regionTable) allocateAt(start, size int, section *placedSection) error {
	if start < 0 || size < 0 || start+size > isa.MemSize {
		return &PlacementError{Reason: "section does not fit in the address space", Start: start, Size: size}
	}

	for i, r := range t.regions {
		if start < r.start || start >= r.end() {
			continue
		}
		if r.typ == regionAllocated {
			return &PlacementError{Reason: "section origin overlaps an already-placed section", Start: start, Size: size}
		}
		if start+size > r.end() {
			return &PlacementError{Reason: "section origin overlaps an already-placed section", Start: start, Size: size}
		}
		t.splitInsert(i, start, size, section)
		return nil
	}
	return &PlacementError{Reason: "no region covers the requested origin", Start: start, Size: size}
}

// splitInsert replaces the free region at index i with up to three
// regions: a leading free remainder (space-before), the new allocated
// region, and a trailing free remainder (space-after). Either remainder is
// omitted when it would be empty (the "exact fit" sub-case), and both are
// omitted together when the allocation exactly consumes the free region.
func (t *regionTable) splitInsert(i int, start, size int, section *placedSection) {
	free := t.regions[i]
	var replacement []*region

	if start > free.start {
		replacement = append(replacement, &region{typ: regionFree, start: free.start, size: start - free.start})
	}
	replacement = append(replacement, &region{typ: regionAllocated, start: start, size: size, section: section})
	if start+size < free.end() {
		replacement = append(replacement, &region{typ: regionFree, start: start + size, size: free.end() - start - size})
	}

	t.regions = append(t.regions[:i], append(replacement, t.regions[i+1:]...)...)
}

// allocateFirstFit finds the first free region with room for size bytes and
// claims the lowest size bytes of it for section, returning the address it
// was placed at.
func (t *regionTable) allocateFirstFit(size int, section *placedSection) (int, error) {
	for i, r := range t.regions {
		if r.typ != regionFree || r.size < size {
			continue
		}
		start := r.start
		t.splitInsert(i, start, size, section)
		return start, nil
	}
	return 0, &PlacementError{Reason: "no free region large enough for section", Size: size}
}

// PlacementError reports a section the linker could not place.
type PlacementError struct {
	Reason  string
	Section string
	Start   int
	Size    int
}

func (e *PlacementError) Error() string {
	if e.Section != "" {
		return "linker: " + e.Section + ": " + e.Reason
	}
	return "linker: " + e.Reason
}
