package assembler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"irid/internal/isa"
)

func assembleRaw(t *testing.T, src string) ([]byte, []*Warning) {
	t.Helper()
	bin, warnings, err := AssembleRawBinary(Options{Filename: "t.s", WarnOriginOverlap: true}, src)
	require.NoError(t, err)
	return bin, warnings
}

func TestMinimalProgram(t *testing.T) {
	bin, _ := assembleRaw(t, `
start:
    nop
    cpucall
`)
	require.Equal(t, []byte{
		byte(isa.NOP), 0, 0, 0,
		byte(isa.CPUCALL), 0, 0, 0,
	}, bin)
}

func TestFourByteAlignment(t *testing.T) {
	bin, _ := assembleRaw(t, `
    .byte 1
    nop
`)
	require.Len(t, bin, 8)
	require.Equal(t, byte(isa.NOP), bin[4])
}

func TestLabelOffsetAfterAlignment(t *testing.T) {
	a := New(Options{Filename: "t.s"})
	err := a.run(`
    .byte 1
here:
    nop
    jmp here
`)
	require.NoError(t, err)
	l, ok := a.syms.lookupLabel("here")
	require.True(t, ok)
	require.Equal(t, uint16(4), l.offset)
}

func TestLocalLabelBeforeGlobalRejected(t *testing.T) {
	_, _, err := AssembleRawBinary(Options{Filename: "t.s"}, `
@loop:
    nop
`)
	require.Error(t, err)
}

func TestLocalLabelAfterGlobalResolves(t *testing.T) {
	bin, _ := assembleRaw(t, `
start:
@loop:
    jmp @loop
`)
	require.Len(t, bin, 4)
	require.Equal(t, byte(isa.JMP), bin[0])
	require.EqualValues(t, 0, bin[1])
	require.EqualValues(t, 0, bin[2])
}

func TestByteDirectiveBoundary(t *testing.T) {
	_, _, err := AssembleRawBinary(Options{Filename: "t.s"}, `.byte 255`)
	require.NoError(t, err)

	_, _, err = AssembleRawBinary(Options{Filename: "t.s"}, `.byte 256`)
	require.Error(t, err)
}

func TestGenericMnemonicPicksImm8(t *testing.T) {
	bin, _ := assembleRaw(t, `mov r0, 10`)
	require.Equal(t, byte(isa.MOV8), bin[0])
	require.Equal(t, byte(isa.R0), bin[1])
	require.Equal(t, byte(10), bin[2])
}

func TestGenericMnemonicPicksImm16(t *testing.T) {
	bin, _ := assembleRaw(t, `mov r0, 4000`)
	require.Equal(t, byte(isa.MOV16), bin[0])
}

func TestGenericMnemonicPicksRegister(t *testing.T) {
	bin, _ := assembleRaw(t, `mov r0, r1`)
	require.Equal(t, byte(isa.MOV), bin[0])
	require.Equal(t, byte(isa.R0), bin[1])
	require.Equal(t, byte(isa.R1), bin[2])
}

func TestGenericMnemonicWithSymbol(t *testing.T) {
	bin, _ := assembleRaw(t, `
start:
    mov r0, start
`)
	require.Equal(t, byte(isa.MOV16), bin[0])
}

func TestLoadStoreRejectLiteralSecondOperand(t *testing.T) {
	_, _, err := AssembleRawBinary(Options{Filename: "t.s"}, `load r0, 5`)
	require.Error(t, err)
}

func TestObjectModeAlwaysEmitsLinkForSymbol(t *testing.T) {
	res, err := AssembleString(Options{Filename: "t.s"}, `
start:
    jmp start
`)
	require.NoError(t, err)
	require.Len(t, res.Section.Links, 1)
	require.Equal(t, "start", res.Section.LinkName(res.Section.Links[0]))
}

func TestExportUnknownLabelFails(t *testing.T) {
	_, err := AssembleString(Options{Filename: "t.s"}, `.export nosuch`)
	require.Error(t, err)
}

func TestExportKnownLabel(t *testing.T) {
	res, err := AssembleString(Options{Filename: "t.s"}, `
start:
    nop
.export start
`)
	require.NoError(t, err)
	require.Len(t, res.Section.Exports, 1)
	require.Equal(t, "start", res.Section.ExportName(res.Section.Exports[0]))
}

func TestOrgOverlapWarns(t *testing.T) {
	_, warnings := assembleRaw(t, `
.org 0x10
.org 0x04
`)
	require.Len(t, warnings, 1)
	require.Equal(t, OverlappingOrg, warnings[0].Kind)
}

func TestHalfRegTruncationWarns(t *testing.T) {
	_, warnings := assembleRaw(t, `mov h0, 4000`)
	require.Len(t, warnings, 1)
	require.Equal(t, HalfRegTruncation, warnings[0].Kind)
}

func TestValueSubstitution(t *testing.T) {
	bin, _ := assembleRaw(t, `
.value kSize 10
mov r0, kSize
`)
	require.Equal(t, byte(isa.MOV8), bin[0])
	require.Equal(t, byte(10), bin[2])
}

func TestPush8EncodesSingleImmediateAtOffsetOne(t *testing.T) {
	bin, _ := assembleRaw(t, `push8 0x42`)
	require.Equal(t, byte(isa.PUSH8), bin[0])
	require.Equal(t, byte(0x42), bin[1])
	require.Equal(t, byte(0), bin[2])
	require.Equal(t, byte(0), bin[3])
}

func TestPush8RejectsRegisterOperand(t *testing.T) {
	_, _, err := AssembleRawBinary(Options{Filename: "t.s"}, `push8 r0`)
	require.Error(t, err)
}

func TestPush16EncodesAddressAtOffsetOne(t *testing.T) {
	bin, _ := assembleRaw(t, `push16 0x1234`)
	require.Equal(t, byte(isa.PUSH16), bin[0])
	require.Equal(t, byte(0x34), bin[1])
	require.Equal(t, byte(0x12), bin[2])
	require.Equal(t, byte(0), bin[3])
}

func TestLoopAndArithmeticScenario(t *testing.T) {
	bin, warnings := assembleRaw(t, `
start:
    mov r0, 0
loop:
    add r0, 1
    cmp r0, 10
    jnz r0, loop
    ret
`)
	require.Empty(t, warnings)
	require.Len(t, bin, 5*4)
}
