package emulator

import "irid/internal/isa"

// Registers is the CPU's register file: eight general registers (r0-r7,
// with r0-r3's high/low bytes independently addressable as h0-h3/l0-l3),
// the three special registers, and the four one-bit flags.
type Registers struct {
	R [8]uint16
	IP, SP, BP uint16
	CF, ZF, OF, SF bool
}

// Load reads id's current value, widened to 16 bits for a half-register.
func (r *Registers) Load(id isa.Register) (uint16, error) {
	switch {
	case id >= isa.R0 && id <= isa.R7:
		return r.R[id], nil
	case id >= isa.H0 && id <= isa.H3:
		return uint16(byte(r.R[id-isa.H0] >> 8)), nil
	case id >= isa.L0 && id <= isa.L3:
		return uint16(byte(r.R[id-isa.L0])), nil
	case id == isa.IP:
		return r.IP, nil
	case id == isa.SP:
		return r.SP, nil
	case id == isa.BP:
		return r.BP, nil
	}
	return 0, &Fault{Code: isa.FaultReg}
}

// Store writes value into id, truncating to 8 bits for a half-register
// without disturbing the other half of its parent register.
func (r *Registers) Store(id isa.Register, value uint16) error {
	switch {
	case id >= isa.R0 && id <= isa.R7:
		r.R[id] = value
	case id >= isa.H0 && id <= isa.H3:
		i := id - isa.H0
		r.R[i] = uint16(byte(r.R[i])) | uint16(byte(value))<<8
	case id >= isa.L0 && id <= isa.L3:
		i := id - isa.L0
		r.R[i] = (r.R[i] &^ 0xff) | uint16(byte(value))
	case id == isa.IP:
		r.IP = value
	case id == isa.SP:
		r.SP = value
	case id == isa.BP:
		r.BP = value
	default:
		return &Fault{Code: isa.FaultReg}
	}
	return nil
}
