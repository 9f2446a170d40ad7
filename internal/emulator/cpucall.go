package emulator

import "irid/internal/isa"

// cpucall dispatches on the function number in r0, matching the
// cpucall_* table in the architecture's CPU core.
func (c *CPU) cpucall() error {
	switch isa.Cpucall(c.Reg.R[0]) {
	case isa.CpucallPoweroff:
		return &Request{Kind: RequestPoweroff}
	case isa.CpucallRestart:
		return &Request{Kind: RequestRestart}
	case isa.CpucallFault:
		return &Fault{Code: isa.FaultUser}
	case isa.CpucallDeviceList:
		return c.cpucallDeviceList()
	case isa.CpucallDeviceInfo:
		return c.cpucallDeviceInfo()
	case isa.CpucallDeviceIntr:
		return c.cpucallDeviceIntr()
	case isa.CpucallDeviceWrite:
		return c.cpucallDeviceWrite()
	case isa.CpucallDeviceRead:
		return c.cpucallDeviceRead()
	case isa.CpucallDevicePoll:
		return c.cpucallDevicePoll()
	default:
		return &Fault{Code: isa.FaultCpucall}
	}
}

// cpucallDeviceList writes up to r2 device IDs to address r1 and reports
// the count actually written back in r2.
func (c *CPU) cpucallDeviceList() error {
	pointer := c.Reg.R[1]
	maxlen := int(c.Reg.R[2])

	n := len(c.devices)
	if n > maxlen {
		n = maxlen
	}

	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		id := c.devices[i].dev.ID()
		buf[i*2] = byte(id)
		buf[i*2+1] = byte(id >> 8)
	}
	if err := c.Mem.WriteRange(pointer, buf); err != nil {
		return err
	}
	c.Reg.R[2] = uint16(n)
	return nil
}

// cpucallDeviceInfo writes {id, name[14]} for the device identified by r1
// to address r2.
func (c *CPU) cpucallDeviceInfo() error {
	for _, slot := range c.devices {
		if slot.dev.ID() != c.Reg.R[1] {
			continue
		}
		info := newDeviceInfo(slot.dev)
		return c.Mem.WriteRange(c.Reg.R[2], info.Bytes())
	}
	return nil
}

// cpucallDeviceIntr registers r2 as device r1's interrupt handler address.
func (c *CPU) cpucallDeviceIntr() error {
	for _, slot := range c.devices {
		if slot.dev.ID() != c.Reg.R[1] {
			continue
		}
		slot.handlerAddr = c.Reg.R[2]
		return nil
	}
	return nil
}

// cpucallDeviceWrite writes h2 (the high byte of r2) to device r1.
func (c *CPU) cpucallDeviceWrite() error {
	for _, slot := range c.devices {
		if slot.dev.ID() != c.Reg.R[1] {
			continue
		}
		h2, err := c.Reg.Load(isa.H2)
		if err != nil {
			return err
		}
		slot.dev.Write(byte(h2))
		return nil
	}
	return nil
}

// cpucallDeviceRead stores the next byte from device r1 into h2.
func (c *CPU) cpucallDeviceRead() error {
	for _, slot := range c.devices {
		if slot.dev.ID() != c.Reg.R[1] {
			continue
		}
		return c.Reg.Store(isa.H2, uint16(slot.dev.Read()))
	}
	return nil
}

// cpucallDevicePoll stores device r1's Poll() result (0/1) into h2.
func (c *CPU) cpucallDevicePoll() error {
	for _, slot := range c.devices {
		if slot.dev.ID() != c.Reg.R[1] {
			continue
		}
		var v uint16
		if slot.dev.Poll() {
			v = 1
		}
		return c.Reg.Store(isa.H2, v)
	}
	return nil
}
