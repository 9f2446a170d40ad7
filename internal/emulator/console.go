package emulator

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// isPrintableASCII matches the C locale's isprint(): true only for the
// printable ASCII range 0x20-0x7E.
func isPrintableASCII(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

// Console device control codes, matching the wire protocol the original
// emulator's console device speaks over its read/write byte stream.
const (
	consoleCtrl = 0x11
	cctlSize    = 0x01
)

// ConsoleDevice is the built-in device ID 0x1000, the terminal the
// emulator was launched from. Writes pass printable bytes straight
// through to stdout; reads are non-blocking and drawn first from an
// internal queue (filled by control-mode responses like CCTL_SIZE) before
// falling back to stdin.
type ConsoleDevice struct {
	in, out    *os.File
	controlMode bool
	queue      []byte

	rawState *term.State
}

// NewConsoleDevice wraps in/out (normally os.Stdin/os.Stdout) as a device.
func NewConsoleDevice(in, out *os.File) *ConsoleDevice {
	return &ConsoleDevice{in: in, out: out}
}

func (d *ConsoleDevice) ID() uint16 { return 0x1000 }

func (d *ConsoleDevice) Name() string { return "console" }

// EnterRawMode puts the console's input terminal into raw/non-canonical
// mode for the duration of a CPU run, mirroring the original's termios
// toggle in cpu::start(). It is a no-op (and returns nil) when in is not
// backed by a terminal.
func (d *ConsoleDevice) EnterRawMode() error {
	if !term.IsTerminal(int(d.in.Fd())) {
		return nil
	}
	state, err := term.MakeRaw(int(d.in.Fd()))
	if err != nil {
		return err
	}
	d.rawState = state
	return nil
}

// RestoreMode undoes EnterRawMode, matching the original's SIGINT/exit
// restoration of canonical mode.
func (d *ConsoleDevice) RestoreMode() error {
	if d.rawState == nil {
		return nil
	}
	err := term.Restore(int(d.in.Fd()), d.rawState)
	d.rawState = nil
	return err
}

func (d *ConsoleDevice) Read() byte {
	if len(d.queue) > 0 {
		b := d.queue[0]
		d.queue = d.queue[1:]
		return b
	}
	if !d.Poll() {
		return 0
	}
	buf := make([]byte, 1)
	n, err := d.in.Read(buf)
	if err != nil || n <= 0 {
		return 0
	}
	return buf[0]
}

func (d *ConsoleDevice) Write(b byte) {
	if d.controlMode {
		d.control(b)
		d.controlMode = false
		return
	}

	if isPrintableASCII(b) || b == '\n' || b == '\r' || b == 0x7F {
		d.out.Write([]byte{b})
		return
	}

	if b == '\f' {
		d.out.Write([]byte("\033[2J\033[1;1H"))
		return
	}

	if b == consoleCtrl {
		d.controlMode = true
	}
}

func (d *ConsoleDevice) control(code byte) {
	if code == cctlSize {
		d.enqueueSize()
	}
}

func (d *ConsoleDevice) enqueueSize() {
	var w, h uint16
	if term.IsTerminal(int(d.out.Fd())) {
		if width, height, err := term.GetSize(int(d.out.Fd())); err == nil {
			w, h = uint16(width), uint16(height)
		}
	}
	d.queue = append(d.queue, byte(w), byte(w>>8), byte(h), byte(h>>8))
}

func (d *ConsoleDevice) Poll() bool {
	if len(d.queue) > 0 {
		return true
	}

	fds := []unix.PollFd{{Fd: int32(d.in.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil || n <= 0 {
		return false
	}
	return fds[0].Revents&unix.POLLIN != 0
}

func (d *ConsoleDevice) Close() {
	d.RestoreMode()
}
