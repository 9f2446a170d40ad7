// Package emulator implements the Irid CPU: a flat 64 KiB memory, a
// register file with half-register aliasing, a fetch-decode-execute loop
// paced to a target instructions-per-second rate, and a device bus with
// polled interrupts.
package emulator

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"irid/internal/isa"
)

// CPU owns the full running state of one Irid machine: its memory,
// registers, device list, and pacing/accounting fields. Only stopRequested
// is safe to touch from another goroutine (a host signal handler); every
// other field is single-threaded to the mainloop.
type CPU struct {
	Mem *Memory
	Reg Registers

	regCache          Registers
	interruptsEnabled bool
	inInterrupt       bool

	devices []*deviceSlot

	cycleNs           int64
	targetIPS         int
	totalInstructions uint64
	startTime         time.Time

	stopRequested atomic.Bool
}

// NewCPU returns a CPU with a freshly zeroed register file over mem.
func NewCPU(mem *Memory) *CPU {
	return &CPU{Mem: mem}
}

// SetTargetIPS paces the mainloop toward target instructions executed per
// second by sleeping out the remainder of each instruction's cycle budget.
// A non-positive target disables pacing (run as fast as possible).
func (c *CPU) SetTargetIPS(target int) {
	if target <= 0 {
		return
	}
	c.targetIPS = target
	c.cycleNs = int64(time.Second) / int64(target)
}

// AddDevice registers dev on the bus. IDs are not deduplicated here: the
// caller (the emulator's cmd/ front end) is expected to reject collisions
// before calling AddDevice, matching the spec's "IDs must be unique"
// invariant.
func (c *CPU) AddDevice(dev Device) {
	c.devices = append(c.devices, &deviceSlot{dev: dev})
}

// RemoveDevices closes and forgets every attached device.
func (c *CPU) RemoveDevices() {
	for _, slot := range c.devices {
		slot.dev.Close()
	}
	c.devices = nil
}

// RequestStop asks the mainloop to stop at the top of its next iteration,
// the way the original's SIGINT handler sets global_stop_cpu. Safe to call
// from a different goroutine than the one running Start.
func (c *CPU) RequestStop() {
	c.stopRequested.Store(true)
}

// Start runs the CPU until a poweroff request, an unhandled restart loop
// exit, or a fault. A fault is returned to the caller; a poweroff request
// returns nil.
func (c *CPU) Start() error {
	c.startTime = time.Now()

	for {
		err := c.mainloop()
		if err == nil {
			return nil
		}

		var req *Request
		if errors.As(err, &req) {
			if req.Kind == RequestRestart {
				c.Reg = Registers{}
				continue
			}
			return nil
		}

		var fault *Fault
		if errors.As(err, &fault) {
			return fault
		}
		return err
	}
}

// mainloop runs instructions until a Request or Fault interrupts it.
func (c *CPU) mainloop() error {
	for {
		if c.stopRequested.Load() {
			return &Request{Kind: RequestPoweroff}
		}

		start := time.Now()

		if c.interruptsEnabled && !c.inInterrupt {
			c.pollDevices()
		}

		stepped, err := c.step()
		if err != nil {
			return err
		}
		if !stepped {
			c.Reg.IP += isa.InstrSize
		}

		c.totalInstructions++

		if c.cycleNs > 0 {
			elapsed := time.Since(start)
			if remaining := time.Duration(c.cycleNs) - elapsed; remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// step fetches and executes one instruction. stepped reports whether the
// handler already repositioned ip itself (jumps, calls, ret, rti) so the
// caller must not also advance it by isa.InstrSize.
func (c *CPU) step() (stepped bool, err error) {
	opcode, err := c.Mem.Read8(c.Reg.IP)
	if err != nil {
		return false, err
	}

	b1, err := c.Mem.Read8(c.Reg.IP + 1)
	if err != nil {
		return false, err
	}
	b2, err := c.Mem.Read8(c.Reg.IP + 2)
	if err != nil {
		return false, err
	}
	imm16, err := c.Mem.Read16(c.Reg.IP + 2)
	if err != nil {
		return false, err
	}
	// addr16 backs the single-address families (jmp/jeq/call), whose
	// 16-bit operand starts one byte earlier than the register+imm16
	// families' imm16 field.
	addr16, err := c.Mem.Read16(c.Reg.IP + 1)
	if err != nil {
		return false, err
	}

	dest := isa.Register(b1)
	src := isa.Register(b2)

	switch isa.Opcode(opcode) {
	case isa.NOP:
	case isa.CPUCALL:
		err = c.cpucall()
	case isa.RTI:
		c.rti()
		return true, nil
	case isa.STI:
		c.interruptsEnabled = true
	case isa.DSI:
		c.interruptsEnabled = false

	case isa.PUSH:
		err = c.push(dest)
	case isa.PUSH8:
		err = c.push8(b1)
	case isa.PUSH16:
		err = c.push16(addr16)
	case isa.POP:
		err = c.pop(dest)
	case isa.MOV:
		err = c.mov(dest, src)
	case isa.MOV8:
		err = c.mov8(dest, b2)
	case isa.MOV16:
		err = c.mov16(dest, imm16)
	case isa.LOAD:
		err = c.load(dest, src)
	case isa.STORE:
		err = c.store(dest, src)
	case isa.LOAD16:
		err = c.load16(dest, imm16)
	case isa.STORE16:
		err = c.store16(dest, imm16)
	case isa.NULL:
		err = c.null(dest)
	case isa.CMP:
		err = c.cmp(dest, src)
	case isa.CMP8:
		err = c.cmp8(dest, b2)
	case isa.CMP16:
		err = c.cmp16(dest, imm16)
	case isa.CMG:
		err = c.cmg(dest, src)
	case isa.CMG8:
		err = c.cmg8(dest, b2)
	case isa.CMG16:
		err = c.cmg16(dest, imm16)
	case isa.CML:
		err = c.cml(dest, src)
	case isa.CML8:
		err = c.cml8(dest, b2)
	case isa.CML16:
		err = c.cml16(dest, imm16)

	case isa.JMP:
		c.Reg.IP = addr16
		return true, nil
	case isa.JNZ:
		return true, c.jnz(dest, imm16)
	case isa.JEQ:
		return true, c.jeq(addr16)
	case isa.CALL:
		return true, c.call(addr16)
	case isa.CALLR:
		return true, c.callr(dest)
	case isa.RET:
		return true, c.ret()

	case isa.ADD:
		err = c.add(dest, src)
	case isa.ADD8:
		err = c.add8(dest, b2)
	case isa.ADD16:
		err = c.add16(dest, imm16)
	case isa.SUB:
		err = c.sub(dest, src)
	case isa.SUB8:
		err = c.sub8(dest, b2)
	case isa.SUB16:
		err = c.sub16(dest, imm16)
	case isa.AND:
		err = c.and(dest, src)
	case isa.AND8:
		err = c.and8(dest, b2)
	case isa.AND16:
		err = c.and16(dest, imm16)
	case isa.OR:
		err = c.or(dest, src)
	case isa.OR8:
		err = c.or8(dest, b2)
	case isa.OR16:
		err = c.or16(dest, imm16)
	case isa.NOT:
		err = c.not(dest)
	case isa.SHR:
		err = c.shr(dest, src)
	case isa.SHR8:
		err = c.shr8(dest, b2)
	case isa.SHL:
		err = c.shl(dest, src)
	case isa.SHL8:
		err = c.shl8(dest, b2)
	case isa.MUL:
		err = c.mul(dest, src)
	case isa.MUL8:
		err = c.mul8(dest, b2)
	case isa.MUL16:
		err = c.mul16(dest, imm16)

	default:
		err = &Fault{Code: isa.FaultIns}
	}

	return false, err
}

// pollDevices checks every attached device and raises the first pending
// interrupt whose handler is registered, matching the original's
// first-match (not fan-out) semantics.
func (c *CPU) pollDevices() {
	for _, slot := range c.devices {
		if slot.handlerAddr == 0 {
			continue
		}
		if slot.dev.Poll() {
			c.issueInterrupt(slot.handlerAddr)
			return
		}
	}
}

func (c *CPU) issueInterrupt(addr uint16) {
	c.inInterrupt = true
	c.regCache = c.Reg
	c.Reg.IP = addr
}

func (c *CPU) rti() {
	c.inInterrupt = false
	c.Reg = c.regCache
}

// DumpRegisters renders the register file for a fault report, matching the
// original's register-dump layout.
func (c *CPU) DumpRegisters() string {
	var b strings.Builder
	fmt.Fprintf(&b, "r0=0x%04x r1=0x%04x r2=0x%04x r3=0x%04x\n", c.Reg.R[0], c.Reg.R[1], c.Reg.R[2], c.Reg.R[3])
	fmt.Fprintf(&b, "r4=0x%04x r5=0x%04x r6=0x%04x r7=0x%04x\n", c.Reg.R[4], c.Reg.R[5], c.Reg.R[6], c.Reg.R[7])
	fmt.Fprintf(&b, "ip=0x%04x sp=0x%04x bp=0x%04x\n", c.Reg.IP, c.Reg.SP, c.Reg.BP)
	fmt.Fprintf(&b, "cf=%t zf=%t of=%t sf=%t\n", c.Reg.CF, c.Reg.ZF, c.Reg.OF, c.Reg.SF)
	return b.String()
}

// PerfSummary renders the -p instructions-per-second report.
func (c *CPU) PerfSummary() string {
	elapsed := time.Since(c.startTime).Seconds()
	if elapsed == 0 {
		elapsed = 1
	}
	avgIPS := float64(c.totalInstructions) / elapsed
	var avgCycleNs float64
	if c.totalInstructions > 0 {
		avgCycleNs = elapsed * 1e9 / float64(c.totalInstructions)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CPU performance results:\n\n")
	fmt.Fprintf(&b, "  total instructions    %d\n", c.totalInstructions)
	fmt.Fprintf(&b, "  average IPS           %.2f Hz\n", avgIPS)
	fmt.Fprintf(&b, "  average cycle time    %.2f ns\n", avgCycleNs)
	fmt.Fprintf(&b, "  target IPS            %d Hz\n", c.targetIPS)
	return b.String()
}
