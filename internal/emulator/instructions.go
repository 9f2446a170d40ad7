package emulator

import "irid/internal/isa"

func (c *CPU) push(src isa.Register) error {
	if c.Reg.SP == 0 {
		return &Fault{Code: isa.FaultSeg}
	}
	if src.IsHalf() {
		v, err := c.Reg.Load(src)
		if err != nil {
			return err
		}
		c.Reg.SP--
		return c.Mem.Write8(c.Reg.SP, byte(v))
	}
	v, err := c.Reg.Load(src)
	if err != nil {
		return err
	}
	c.Reg.SP -= 2
	return c.Mem.Write16(c.Reg.SP, v)
}

func (c *CPU) push8(imm8 byte) error {
	if c.Reg.SP == 0 {
		return &Fault{Code: isa.FaultSeg}
	}
	c.Reg.SP--
	return c.Mem.Write8(c.Reg.SP, imm8)
}

func (c *CPU) push16(imm16 uint16) error {
	if c.Reg.SP == 0 {
		return &Fault{Code: isa.FaultSeg}
	}
	c.Reg.SP -= 2
	return c.Mem.Write16(c.Reg.SP, imm16)
}

func (c *CPU) pop(dest isa.Register) error {
	if dest.IsHalf() {
		v, err := c.Mem.Read8(c.Reg.SP)
		if err != nil {
			return err
		}
		c.Reg.SP++
		if err := c.checkStackBounds(); err != nil {
			return err
		}
		return c.Reg.Store(dest, uint16(v))
	}
	v, err := c.Mem.Read16(c.Reg.SP)
	if err != nil {
		return err
	}
	c.Reg.SP += 2
	if err := c.checkStackBounds(); err != nil {
		return err
	}
	return c.Reg.Store(dest, v)
}

// checkStackBounds faults STACK when a pop has walked sp past a
// program-established frame boundary in bp. bp defaults to 0 and is never
// touched by hardware, so an unused bp never triggers this: it only fires
// once a program has opted in by loading bp with its own frame base.
func (c *CPU) checkStackBounds() error {
	if c.Reg.BP != 0 && c.Reg.SP > c.Reg.BP {
		return &Fault{Code: isa.FaultStack}
	}
	return nil
}

func (c *CPU) mov(dest, src isa.Register) error {
	v, err := c.Reg.Load(src)
	if err != nil {
		return err
	}
	return c.Reg.Store(dest, v)
}

func (c *CPU) mov8(dest isa.Register, imm8 byte) error {
	return c.Reg.Store(dest, uint16(imm8))
}

func (c *CPU) mov16(dest isa.Register, imm16 uint16) error {
	return c.Reg.Store(dest, imm16)
}

func (c *CPU) load(dest, srcptr isa.Register) error {
	if srcptr.IsHalf() {
		return &Fault{Code: isa.FaultReg}
	}
	ptr, err := c.Reg.Load(srcptr)
	if err != nil {
		return err
	}
	if dest.IsHalf() {
		v, err := c.Mem.Read8(ptr)
		if err != nil {
			return err
		}
		return c.Reg.Store(dest, uint16(v))
	}
	v, err := c.Mem.Read16(ptr)
	if err != nil {
		return err
	}
	return c.Reg.Store(dest, v)
}

func (c *CPU) store(src, destptr isa.Register) error {
	if destptr.IsHalf() {
		return &Fault{Code: isa.FaultReg}
	}
	ptr, err := c.Reg.Load(destptr)
	if err != nil {
		return err
	}
	v, err := c.Reg.Load(src)
	if err != nil {
		return err
	}
	if src.IsHalf() {
		return c.Mem.Write8(ptr, byte(v))
	}
	return c.Mem.Write16(ptr, v)
}

func (c *CPU) load16(dest isa.Register, ptr uint16) error {
	if dest.IsHalf() {
		v, err := c.Mem.Read8(ptr)
		if err != nil {
			return err
		}
		return c.Reg.Store(dest, uint16(v))
	}
	v, err := c.Mem.Read16(ptr)
	if err != nil {
		return err
	}
	return c.Reg.Store(dest, v)
}

func (c *CPU) store16(src isa.Register, ptr uint16) error {
	v, err := c.Reg.Load(src)
	if err != nil {
		return err
	}
	if src.IsHalf() {
		return c.Mem.Write8(ptr, byte(v))
	}
	return c.Mem.Write16(ptr, v)
}

func (c *CPU) null(dest isa.Register) error {
	return c.Reg.Store(dest, 0)
}

func (c *CPU) cmp(left, right isa.Register) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	r, err := c.Reg.Load(right)
	if err != nil {
		return err
	}
	c.Reg.CF = l == r
	return nil
}

func (c *CPU) cmp8(left isa.Register, imm8 byte) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	c.Reg.CF = l == uint16(imm8)
	return nil
}

func (c *CPU) cmp16(left isa.Register, imm16 uint16) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	c.Reg.CF = l == imm16
	return nil
}

func (c *CPU) cmg(left, right isa.Register) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	r, err := c.Reg.Load(right)
	if err != nil {
		return err
	}
	c.Reg.CF = l > r
	return nil
}

func (c *CPU) cmg8(left isa.Register, imm8 byte) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	c.Reg.CF = l > uint16(imm8)
	return nil
}

func (c *CPU) cmg16(left isa.Register, imm16 uint16) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	c.Reg.CF = l > imm16
	return nil
}

func (c *CPU) cml(left, right isa.Register) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	r, err := c.Reg.Load(right)
	if err != nil {
		return err
	}
	c.Reg.CF = l < r
	return nil
}

func (c *CPU) cml8(left isa.Register, imm8 byte) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	c.Reg.CF = l < uint16(imm8)
	return nil
}

func (c *CPU) cml16(left isa.Register, imm16 uint16) error {
	l, err := c.Reg.Load(left)
	if err != nil {
		return err
	}
	c.Reg.CF = l < imm16
	return nil
}

func (c *CPU) jnz(cond isa.Register, addr uint16) error {
	v, err := c.Reg.Load(cond)
	if err != nil {
		return err
	}
	if v != 0 {
		c.Reg.IP = addr
	} else {
		c.Reg.IP += isa.InstrSize
	}
	return nil
}

func (c *CPU) jeq(addr uint16) error {
	if c.Reg.CF {
		c.Reg.IP = addr
	} else {
		c.Reg.IP += isa.InstrSize
	}
	return nil
}

func (c *CPU) call(addr uint16) error {
	if err := c.push16(c.Reg.IP + isa.InstrSize); err != nil {
		return err
	}
	c.Reg.IP = addr
	return nil
}

func (c *CPU) callr(srcaddr isa.Register) error {
	target, err := c.Reg.Load(srcaddr)
	if err != nil {
		return err
	}
	if err := c.push16(c.Reg.IP + isa.InstrSize); err != nil {
		return err
	}
	c.Reg.IP = target
	return nil
}

func (c *CPU) ret() error {
	addr, err := c.Mem.Read16(c.Reg.SP)
	if err != nil {
		return err
	}
	c.Reg.SP += 2
	c.Reg.IP = addr
	return nil
}

func (c *CPU) add(dest, src isa.Register) error {
	return c.binOp(dest, src, func(a, b uint16) uint16 { return a + b })
}

func (c *CPU) add8(dest isa.Register, imm8 byte) error {
	return c.binOpImm(dest, uint16(imm8), func(a, b uint16) uint16 { return a + b })
}

func (c *CPU) add16(dest isa.Register, imm16 uint16) error {
	return c.binOpImm(dest, imm16, func(a, b uint16) uint16 { return a + b })
}

func (c *CPU) sub(dest, src isa.Register) error {
	return c.binOp(dest, src, func(a, b uint16) uint16 { return a - b })
}

func (c *CPU) sub8(dest isa.Register, imm8 byte) error {
	return c.binOpImm(dest, uint16(imm8), func(a, b uint16) uint16 { return a - b })
}

func (c *CPU) sub16(dest isa.Register, imm16 uint16) error {
	return c.binOpImm(dest, imm16, func(a, b uint16) uint16 { return a - b })
}

func (c *CPU) and(dest, src isa.Register) error {
	return c.binOp(dest, src, func(a, b uint16) uint16 { return a & b })
}

func (c *CPU) and8(dest isa.Register, imm8 byte) error {
	return c.binOpImm(dest, uint16(imm8), func(a, b uint16) uint16 { return a & b })
}

func (c *CPU) and16(dest isa.Register, imm16 uint16) error {
	return c.binOpImm(dest, imm16, func(a, b uint16) uint16 { return a & b })
}

func (c *CPU) or(dest, src isa.Register) error {
	return c.binOp(dest, src, func(a, b uint16) uint16 { return a | b })
}

func (c *CPU) or8(dest isa.Register, imm8 byte) error {
	return c.binOpImm(dest, uint16(imm8), func(a, b uint16) uint16 { return a | b })
}

func (c *CPU) or16(dest isa.Register, imm16 uint16) error {
	return c.binOpImm(dest, imm16, func(a, b uint16) uint16 { return a | b })
}

func (c *CPU) not(dest isa.Register) error {
	v, err := c.Reg.Load(dest)
	if err != nil {
		return err
	}
	return c.Reg.Store(dest, ^v)
}

// shr/shl shift by the shift-amount's own width truncated to a byte, since
// the shift count is always read as an 8-bit quantity regardless of
// whether dest is a half or full register, matching the original's
// same-width-as-dest shift-in-place semantics.
func (c *CPU) shr(dest, src isa.Register) error {
	amt, err := c.Reg.Load(src)
	if err != nil {
		return err
	}
	return c.shiftOp(dest, byte(amt), func(v, a uint16) uint16 { return v >> a })
}

func (c *CPU) shr8(dest isa.Register, imm8 byte) error {
	return c.shiftOp(dest, imm8, func(v, a uint16) uint16 { return v >> a })
}

func (c *CPU) shl(dest, src isa.Register) error {
	amt, err := c.Reg.Load(src)
	if err != nil {
		return err
	}
	return c.shiftOp(dest, byte(amt), func(v, a uint16) uint16 { return v << a })
}

func (c *CPU) shl8(dest isa.Register, imm8 byte) error {
	return c.shiftOp(dest, imm8, func(v, a uint16) uint16 { return v << a })
}

func (c *CPU) mul(dest, src isa.Register) error {
	return c.binOp(dest, src, func(a, b uint16) uint16 { return a * b })
}

func (c *CPU) mul8(dest isa.Register, imm8 byte) error {
	return c.binOpImm(dest, uint16(imm8), func(a, b uint16) uint16 { return a * b })
}

func (c *CPU) mul16(dest isa.Register, imm16 uint16) error {
	return c.binOpImm(dest, imm16, func(a, b uint16) uint16 { return a * b })
}

func (c *CPU) binOp(dest, src isa.Register, op func(a, b uint16) uint16) error {
	a, err := c.Reg.Load(dest)
	if err != nil {
		return err
	}
	b, err := c.Reg.Load(src)
	if err != nil {
		return err
	}
	return c.Reg.Store(dest, maskToWidth(dest, op(a, b)))
}

func (c *CPU) binOpImm(dest isa.Register, imm uint16, op func(a, b uint16) uint16) error {
	a, err := c.Reg.Load(dest)
	if err != nil {
		return err
	}
	return c.Reg.Store(dest, maskToWidth(dest, op(a, imm)))
}

func (c *CPU) shiftOp(dest isa.Register, amt byte, op func(v, a uint16) uint16) error {
	v, err := c.Reg.Load(dest)
	if err != nil {
		return err
	}
	return c.Reg.Store(dest, maskToWidth(dest, op(v, uint16(amt))))
}

func maskToWidth(reg isa.Register, v uint16) uint16 {
	if reg.IsHalf() {
		return uint16(byte(v))
	}
	return v
}
