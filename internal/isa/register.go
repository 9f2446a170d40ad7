// Package isa enumerates the Irid architecture: registers, opcodes, cpucall
// numbers and CPU fault codes. It is pure data, shared by the assembler
// (encoding mnemonics) and the emulator (decoding opcodes).
package isa

// Register is the one-byte operand encoding used for register operands in
// instructions and throughout inter-component communication (IOF symbols
// never carry registers, but the assembler and emulator both key off this
// byte encoding).
type Register byte

const (
	R0 Register = 0x00
	R1 Register = 0x01
	R2 Register = 0x02
	R3 Register = 0x03
	R4 Register = 0x04
	R5 Register = 0x05
	R6 Register = 0x06
	R7 Register = 0x07

	H0 Register = 0x10
	H1 Register = 0x11
	H2 Register = 0x12
	H3 Register = 0x13

	L0 Register = 0x20
	L1 Register = 0x21
	L2 Register = 0x22
	L3 Register = 0x23

	IP Register = 0x70
	SP Register = 0x71
	BP Register = 0x72
)

var registerNames = map[Register]string{
	R0: "r0", R1: "r1", R2: "r2", R3: "r3",
	R4: "r4", R5: "r5", R6: "r6", R7: "r7",
	H0: "h0", H1: "h1", H2: "h2", H3: "h3",
	L0: "l0", L1: "l1", L2: "l2", L3: "l3",
	IP: "ip", SP: "sp", BP: "bp",
}

var namesToRegister = func() map[string]Register {
	m := make(map[string]Register, len(registerNames))
	for id, name := range registerNames {
		m[name] = id
	}
	return m
}()

func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return name
	}
	return "invalid-register"
}

// RegisterByName resolves a lowercase mnemonic register name, as it would
// appear in assembly source, to its ID.
func RegisterByName(name string) (Register, bool) {
	r, ok := namesToRegister[name]
	return r, ok
}

// IsHalf reports whether id addresses an 8-bit half of r0..r3 rather than a
// full 16-bit register.
func (r Register) IsHalf() bool {
	return r >= H0 && r <= L3
}

// Width returns the register's width in bytes: 1 for a half-register, 2
// otherwise (full registers and the three special registers are all 16-bit).
func (r Register) Width() int {
	if r.IsHalf() {
		return 1
	}
	return 2
}
