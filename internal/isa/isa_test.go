package isa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstrTableRoundTrip(t *testing.T) {
	for _, in := range Instrs {
		byName, ok := ByMnemonic(in.Mnemonic)
		require.True(t, ok, "mnemonic %q missing from table", in.Mnemonic)
		require.Equal(t, in, byName)

		byOp, ok := ByOpcode(in.Opcode)
		require.True(t, ok, "opcode %#x missing from table", in.Opcode)
		require.Equal(t, in, byOp)
	}
}

func TestRegisterNamesRoundTrip(t *testing.T) {
	for id, name := range registerNames {
		got, ok := RegisterByName(name)
		require.True(t, ok)
		require.Equal(t, id, got)
		require.Equal(t, name, id.String())
	}
}

func TestHalfRegisterWidth(t *testing.T) {
	require.Equal(t, 1, H0.Width())
	require.Equal(t, 1, L3.Width())
	require.Equal(t, 2, R0.Width())
	require.Equal(t, 2, IP.Width())
	require.True(t, H0.IsHalf())
	require.False(t, R0.IsHalf())
}
