package emulator

import "irid/internal/isa"

// Memory is the CPU's flat 64 KiB address space. Unlike the original's
// mmap-backed buffer, a plain Go array is both simpler and exactly as fast
// for this size.
type Memory struct {
	bytes [isa.MemSize]byte
}

// NewMemory returns a zeroed 64 KiB memory.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) checkAddr(addr uint16, width int) error {
	if int(addr)+width > isa.MemSize {
		return &Fault{Code: isa.FaultSeg}
	}
	return nil
}

// Read8 reads one byte at addr.
func (m *Memory) Read8(addr uint16) (byte, error) {
	if err := m.checkAddr(addr, 1); err != nil {
		return 0, err
	}
	return m.bytes[addr], nil
}

// Write8 writes one byte at addr.
func (m *Memory) Write8(addr uint16, value byte) error {
	if err := m.checkAddr(addr, 1); err != nil {
		return err
	}
	m.bytes[addr] = value
	return nil
}

// Read16 reads a little-endian 16-bit word at addr. An access straddling
// the top of the address space (addr == 0xFFFF) faults, the simplest of
// the implementation-defined choices the architecture allows.
func (m *Memory) Read16(addr uint16) (uint16, error) {
	if err := m.checkAddr(addr, 2); err != nil {
		return 0, err
	}
	return uint16(m.bytes[addr]) | uint16(m.bytes[addr+1])<<8, nil
}

// Write16 writes a little-endian 16-bit word at addr.
func (m *Memory) Write16(addr uint16, value uint16) error {
	if err := m.checkAddr(addr, 2); err != nil {
		return err
	}
	m.bytes[addr] = byte(value)
	m.bytes[addr+1] = byte(value >> 8)
	return nil
}

// ReadRange copies n bytes starting at src into dest.
func (m *Memory) ReadRange(src uint16, dest []byte) error {
	if err := m.checkAddr(src, len(dest)); err != nil {
		return err
	}
	copy(dest, m.bytes[src:int(src)+len(dest)])
	return nil
}

// WriteRange copies src into memory starting at dest.
func (m *Memory) WriteRange(dest uint16, src []byte) error {
	if err := m.checkAddr(dest, len(src)); err != nil {
		return err
	}
	copy(m.bytes[dest:int(dest)+len(src)], src)
	return nil
}

// Load copies image into memory starting at origin, for program loading
// before the CPU starts running.
func (m *Memory) Load(origin uint16, image []byte) error {
	return m.WriteRange(origin, image)
}
