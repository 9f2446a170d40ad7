package emulator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"irid/internal/assembler"
	"irid/internal/isa"
)

// assembleAndLoad assembles src to a raw binary and loads it into a fresh
// memory/CPU pair at address 0.
func assembleAndLoad(t *testing.T, src string) (*CPU, *Memory) {
	t.Helper()
	bin, _, err := assembler.AssembleRawBinary(assembler.Options{Filename: "t.s"}, src)
	require.NoError(t, err)

	mem := NewMemory()
	require.NoError(t, mem.Load(0, bin))
	return NewCPU(mem), mem
}

// runN steps the CPU exactly n instructions, matching mainloop's own
// step-then-advance logic without its pacing sleep or stop-flag checks.
func runN(t *testing.T, cpu *CPU, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		stepped, err := cpu.step()
		require.NoError(t, err)
		if !stepped {
			cpu.Reg.IP += isa.InstrSize
		}
	}
}

func TestMinimalProgramExitsCleanly(t *testing.T) {
	cpu, _ := assembleAndLoad(t, `
mov8 r0, 0x10
cpucall
`)
	require.NoError(t, cpu.Start())
}

func TestLoopArithmetic(t *testing.T) {
	cpu, _ := assembleAndLoad(t, `
mov8 r1, 0
mov8 r2, 10
loop:
    add8 r1, 3
    sub8 r2, 1
    cmp8 r2, 0
    jeq done
    jmp loop
done:
    mov8 r0, 0x10
    cpucall
`)
	require.NoError(t, cpu.Start())
	require.EqualValues(t, 30, cpu.Reg.R[1])
}

func TestPushPopRoundTripFullRegister(t *testing.T) {
	cpu, _ := assembleAndLoad(t, `
mov16 r0, 0x1234
push r0
mov8 r0, 0
pop r0
`)
	cpu.Reg.SP = 0x200
	sp0 := cpu.Reg.SP
	runN(t, cpu, 4)
	require.EqualValues(t, 0x1234, cpu.Reg.R[0])
	require.Equal(t, sp0, cpu.Reg.SP)
}

func TestPushPopRoundTripHalfRegister(t *testing.T) {
	cpu, _ := assembleAndLoad(t, `
mov8 h0, 0x42
push h0
mov8 h0, 0
pop h0
`)
	cpu.Reg.SP = 0x200
	sp0 := cpu.Reg.SP
	runN(t, cpu, 4)
	h0, err := cpu.Reg.Load(isa.H0)
	require.NoError(t, err)
	require.EqualValues(t, 0x42, h0)
	require.Equal(t, sp0, cpu.Reg.SP)
}

func TestPush8RoundTripsLiteralImmediate(t *testing.T) {
	cpu, _ := assembleAndLoad(t, `
push8 0x42
mov8 h0, 0
pop h0
`)
	cpu.Reg.SP = 0x200
	sp0 := cpu.Reg.SP
	runN(t, cpu, 1)
	require.Equal(t, sp0-1, cpu.Reg.SP)
	runN(t, cpu, 2)
	h0, err := cpu.Reg.Load(isa.H0)
	require.NoError(t, err)
	require.EqualValues(t, 0x42, h0)
	require.Equal(t, sp0, cpu.Reg.SP)
}

func TestPush16RoundTripsLiteralImmediate(t *testing.T) {
	cpu, _ := assembleAndLoad(t, `
push16 0x1234
mov16 r0, 0
pop r0
`)
	cpu.Reg.SP = 0x200
	sp0 := cpu.Reg.SP
	runN(t, cpu, 1)
	require.Equal(t, sp0-2, cpu.Reg.SP)
	runN(t, cpu, 2)
	require.EqualValues(t, 0x1234, cpu.Reg.R[0])
	require.Equal(t, sp0, cpu.Reg.SP)
}

func TestPushFaultsSegAtStackTop(t *testing.T) {
	cpu, _ := assembleAndLoad(t, `push r0`)
	cpu.Reg.SP = 0
	_, err := cpu.step()
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, isa.FaultSeg, fault.Code)
}

func TestCallRetPreservesStackAndReturnsAfterCall(t *testing.T) {
	cpu, _ := assembleAndLoad(t, `
call fn
jmp end
fn:
    ret
end:
    nop
`)
	cpu.Reg.SP = 0x200
	sp0 := cpu.Reg.SP
	// call (ip 0 -> fn), ret (back to ip 4, the jmp right after call).
	runN(t, cpu, 2)
	require.EqualValues(t, isa.InstrSize, cpu.Reg.IP)
	require.Equal(t, sp0, cpu.Reg.SP)
}

func TestInterruptRestoresRegistersOnRTI(t *testing.T) {
	mem := NewMemory()
	// Handler at 0x40: a bare RTI.
	require.NoError(t, mem.Write8(0x40, byte(isa.RTI)))
	cpu := NewCPU(mem)
	cpu.Reg.R[0] = 0x1234
	cpu.Reg.IP = 0x200
	cpu.interruptsEnabled = true

	dev := &fakeDevice{id: 1, ready: true}
	cpu.AddDevice(dev)
	cpu.devices[0].handlerAddr = 0x40

	snapshot := cpu.Reg
	cpu.pollDevices()
	require.True(t, cpu.inInterrupt)
	require.EqualValues(t, 0x40, cpu.Reg.IP)

	stepped, err := cpu.step()
	require.NoError(t, err)
	require.True(t, stepped)
	require.False(t, cpu.inInterrupt)
	require.Equal(t, snapshot, cpu.Reg)
}

func TestPollDevicesSkipsUnregisteredHandlers(t *testing.T) {
	mem := NewMemory()
	cpu := NewCPU(mem)
	cpu.interruptsEnabled = true
	dev := &fakeDevice{id: 1, ready: true}
	cpu.AddDevice(dev)

	cpu.pollDevices()
	require.False(t, cpu.inInterrupt)
}

func TestCpucallDeviceList(t *testing.T) {
	cpu, mem := assembleAndLoad(t, `
mov16 r1, 0x300
mov8 r2, 10
mov8 r0, 0x13
cpucall
`)
	dev := &fakeDevice{id: 7, name: "disk"}
	cpu.AddDevice(dev)
	runN(t, cpu, 4)
	require.EqualValues(t, 1, cpu.Reg.R[2])
	lo, err := mem.Read8(0x300)
	require.NoError(t, err)
	hi, err := mem.Read8(0x301)
	require.NoError(t, err)
	require.EqualValues(t, 7, uint16(hi)<<8|uint16(lo))
}

func TestOutOfRangeMemoryFaultsSeg(t *testing.T) {
	mem := NewMemory()
	_, err := mem.Read16(0xFFFF)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, isa.FaultSeg, fault.Code)
}

func TestUnknownOpcodeFaultsIns(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.Write8(0, 0xfe))
	cpu := NewCPU(mem)
	_, err := cpu.step()
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, isa.FaultIns, fault.Code)
}

func TestCpucallRestartRequestsRestart(t *testing.T) {
	mem := NewMemory()
	cpu := NewCPU(mem)
	cpu.Reg.R[0] = uint16(isa.CpucallRestart)
	cpu.Reg.R[3] = 0xbeef

	err := cpu.cpucall()
	var req *Request
	require.ErrorAs(t, err, &req)
	require.Equal(t, RequestRestart, req.Kind)
}

func TestCpucallDeviceInfoWritesIDAndName(t *testing.T) {
	cpu, mem := assembleAndLoad(t, `
mov16 r1, 7
mov16 r2, 0x300
mov8 r0, 0x14
cpucall
`)
	cpu.AddDevice(&fakeDevice{id: 7, name: "disk"})
	runN(t, cpu, 4)

	var buf [2 + isa.DeviceInfoNameLen]byte
	require.NoError(t, mem.ReadRange(0x300, buf[:]))
	require.EqualValues(t, 7, uint16(buf[1])<<8|uint16(buf[0]))
	require.Equal(t, "disk", string(buf[2:6]))
}

type fakeDevice struct {
	id    uint16
	name  string
	ready bool
}

func (d *fakeDevice) ID() uint16    { return d.id }
func (d *fakeDevice) Name() string  { return d.name }
func (d *fakeDevice) Read() byte    { return 0 }
func (d *fakeDevice) Write(b byte)  {}
func (d *fakeDevice) Poll() bool    { return d.ready }
func (d *fakeDevice) Close()        {}
