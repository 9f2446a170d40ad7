package linker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"irid/internal/iof"
	"irid/internal/isa"
)

func objectWithSection(build func(s *iof.Section)) *iof.Object {
	obj := &iof.Object{}
	sec := obj.NewSection("text")
	build(sec)
	return obj
}

func TestLinkSingleOriginSection(t *testing.T) {
	obj := objectWithSection(func(s *iof.Section) {
		s.Code = []byte{1, 2, 3, 4}
		s.SetOrigin(0x100)
	})

	img, err := Link([]InputObject{{Path: "a.iof", Object: obj}})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, img.Bytes[0x100:0x104])
}

func TestLinkFreeFloatingSectionGetsFirstFit(t *testing.T) {
	fixed := objectWithSection(func(s *iof.Section) {
		s.Code = make([]byte, 0x10)
		s.SetOrigin(0)
	})
	free := objectWithSection(func(s *iof.Section) {
		s.Code = []byte{9, 9}
	})

	img, err := Link([]InputObject{
		{Path: "fixed.iof", Object: fixed},
		{Path: "free.iof", Object: free},
	})
	require.NoError(t, err)
	require.Equal(t, byte(9), img.Bytes[0x10])
	require.Equal(t, byte(9), img.Bytes[0x11])
}

func TestLinkOverlappingOriginsFail(t *testing.T) {
	a := objectWithSection(func(s *iof.Section) {
		s.Code = []byte{1, 2, 3, 4}
		s.SetOrigin(0x100)
	})
	b := objectWithSection(func(s *iof.Section) {
		s.Code = []byte{5, 6}
		s.SetOrigin(0x101)
	})

	_, err := Link([]InputObject{{Path: "a.iof", Object: a}, {Path: "b.iof", Object: b}})
	require.Error(t, err)
}

func TestLinkCrossObjectSymbolResolution(t *testing.T) {
	a := objectWithSection(func(s *iof.Section) {
		s.Code = make([]byte, isa.InstrSize)
		s.Code[0] = byte(isa.JMP)
		s.SetOrigin(0)
		s.AddLink("main", 1)
	})
	b := objectWithSection(func(s *iof.Section) {
		s.Code = make([]byte, isa.InstrSize)
		s.SetOrigin(0x200)
		s.AddExport("main", 0)
	})

	img, err := Link([]InputObject{{Path: "a.iof", Object: a}, {Path: "b.iof", Object: b}})
	require.NoError(t, err)
	require.EqualValues(t, 0x00, img.Bytes[1])
	require.EqualValues(t, 0x02, img.Bytes[2])
}

func TestLinkUnresolvedSymbolFails(t *testing.T) {
	a := objectWithSection(func(s *iof.Section) {
		s.Code = make([]byte, isa.InstrSize)
		s.SetOrigin(0)
		s.AddLink("nosuch", 1)
	})

	_, err := Link([]InputObject{{Path: "a.iof", Object: a}})
	require.Error(t, err)
	var target *UnresolvedLinkError
	require.ErrorAs(t, err, &target)
	require.Equal(t, "nosuch", target.Symbol)
}

func TestLinkDuplicateExportFails(t *testing.T) {
	a := objectWithSection(func(s *iof.Section) {
		s.Code = []byte{0, 0, 0, 0}
		s.AddExport("dup", 0)
	})
	b := objectWithSection(func(s *iof.Section) {
		s.Code = []byte{0, 0, 0, 0}
		s.AddExport("dup", 0)
	})

	_, err := Link([]InputObject{{Path: "a.iof", Object: a}, {Path: "b.iof", Object: b}})
	require.Error(t, err)
}

func TestRegionTableExactFitThenNoRoom(t *testing.T) {
	table := newRegionTable()
	err := table.allocateAt(0, isa.MemSize, &placedSection{})
	require.NoError(t, err)

	_, err = table.allocateFirstFit(1, &placedSection{})
	require.Error(t, err)
}

func TestRegionTableSpaceBeforeAndAfter(t *testing.T) {
	table := newRegionTable()
	require.NoError(t, table.allocateAt(0x100, 0x10, &placedSection{}))
	require.Len(t, table.regions, 3)
	require.Equal(t, regionFree, table.regions[0].typ)
	require.Equal(t, regionAllocated, table.regions[1].typ)
	require.Equal(t, regionFree, table.regions[2].typ)
}
