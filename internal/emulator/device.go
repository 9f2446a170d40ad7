package emulator

import "irid/internal/isa"

// Device is a memory-mapped peripheral the CPU can poll, read a byte from,
// write a byte to, and eventually close. IDs must be unique among devices
// registered on one CPU; Name is truncated to isa.DeviceInfoNameLen-1 bytes
// when reported via the DEVICEINFO cpucall.
type Device interface {
	ID() uint16
	Name() string

	// Read returns the next pending byte, or 0 if none is available. It
	// never blocks.
	Read() byte
	// Write accepts one byte from the CPU.
	Write(b byte)
	// Poll reports whether the device has data ready to be read, or (for
	// write-only devices) some other attention-worthy condition.
	Poll() bool
	// Close releases any OS resources the device holds.
	Close()
}

// deviceSlot tracks one attached device plus the interrupt-handler address
// the running program has registered for it via DEVICEINTR (0 = none).
type deviceSlot struct {
	dev         Device
	handlerAddr uint16
}

// DeviceInfo is the fixed-layout record written to memory by the
// DEVICEINFO cpucall.
type DeviceInfo struct {
	ID   uint16
	Name [isa.DeviceInfoNameLen]byte
}

func newDeviceInfo(dev Device) DeviceInfo {
	var info DeviceInfo
	info.ID = dev.ID()
	name := dev.Name()
	if len(name) > isa.DeviceInfoNameLen-1 {
		name = name[:isa.DeviceInfoNameLen-1]
	}
	copy(info.Name[:], name)
	return info
}

// Bytes serializes info the way DEVICEINFO writes it to memory: a 16-bit ID
// followed by the fixed-width name field.
func (info DeviceInfo) Bytes() []byte {
	out := make([]byte, 2+isa.DeviceInfoNameLen)
	out[0] = byte(info.ID)
	out[1] = byte(info.ID >> 8)
	copy(out[2:], info.Name[:])
	return out
}
