package iof

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSampleObject() *Object {
	obj := &Object{}
	sec := obj.NewSection("text")
	sec.Code = []byte{0x14, 0x00, 0x10, 0x00, 0x01, 0x00, 0x00, 0x00}
	sec.SetOrigin(0x8000)
	sec.AddSymbol("start", 0)
	sec.AddExport("start", 0)
	sec.AddLink("helper", 4)

	other := obj.NewSection("data")
	other.Code = []byte{0xAA, 0xBB, 0xCC}
	other.AddSymbol("blob", 0)

	return obj
}

func TestRoundTrip(t *testing.T) {
	obj := buildSampleObject()
	data := obj.Build()

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, parsed.Sections, 2)

	orig, round := obj.Sections[0], parsed.Sections[0]
	require.Equal(t, orig.Name, round.Name)
	require.Equal(t, orig.Code, round.Code)
	require.Equal(t, orig.Flags, round.Flags)
	require.Equal(t, orig.Origin, round.Origin)
	require.Equal(t, orig.SymbolName(orig.Symbols[0]), round.SymbolName(round.Symbols[0]))
	require.Equal(t, orig.ExportName(orig.Exports[0]), round.ExportName(round.Exports[0]))
	require.Equal(t, orig.LinkName(orig.Links[0]), round.LinkName(round.Links[0]))

	orig2, round2 := obj.Sections[1], parsed.Sections[1]
	require.Equal(t, orig2.Code, round2.Code)
	require.Equal(t, orig2.Name, round2.Name)
}

func TestStringDedup(t *testing.T) {
	obj := &Object{}
	sec := obj.NewSection("text")
	sec.AddLink("shared", 0)
	sec.AddLink("shared", 4)
	sec.AddExport("shared", 0)

	require.Len(t, sec.strings, 1, "identical strings must share one ID")
	require.Equal(t, sec.Links[0].StringID, sec.Links[1].StringID)
	require.Equal(t, sec.Links[0].StringID, sec.Exports[0].StringID)
}

func TestBadMagic(t *testing.T) {
	_, err := Parse([]byte("not an iof file at all"))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestBadFormat(t *testing.T) {
	data := (&Object{}).Build()
	data[4] = 1
	_, err := Parse(data)
	require.ErrorIs(t, err, ErrBadFormat)
}

func TestTruncated(t *testing.T) {
	_, err := Parse([]byte{0, 1, 2})
	require.ErrorIs(t, err, ErrTruncated)
}

func TestEmptyObjectRoundTrip(t *testing.T) {
	obj := &Object{}
	data := obj.Build()
	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Empty(t, parsed.Sections)
}
