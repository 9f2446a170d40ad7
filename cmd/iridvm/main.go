// Command iridvm loads one or more flat images into a 64 KiB address space
// and runs them on the Irid emulator, with an optional perf summary and
// file-backed serial devices alongside the built-in console.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"irid/internal/emulator"
)

var (
	ips     = flag.Int("i", 0, "target instructions per second (<=0 disables pacing)")
	perf    = flag.Bool("p", false, "print a perf summary after the run")
	verbose = flag.Bool("v", false, "enable verbose tool-level logging")
)

type serialSpec struct {
	name string
	file string
}

type serialFlags []serialSpec

func (f *serialFlags) String() string { return fmt.Sprint(*f) }

func (f *serialFlags) Set(value string) error {
	spec := serialSpec{}
	for _, field := range strings.Split(value, ",") {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return fmt.Errorf("malformed -s spec %q: expected name=...,file=...", value)
		}
		switch kv[0] {
		case "name":
			spec.name = kv[1]
		case "file":
			spec.file = kv[1]
		default:
			return fmt.Errorf("malformed -s spec %q: unknown field %q", value, kv[0])
		}
	}
	if spec.name == "" || spec.file == "" {
		return fmt.Errorf("malformed -s spec %q: both name= and file= are required", value)
	}
	*f = append(*f, spec)
	return nil
}

var serials serialFlags

func init() {
	flag.Var(&serials, "s", "register a file-backed serial device: name=...,file=...")
}

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.WarnLevel)
	}

	images := os.Args[len(os.Args)-flag.NArg():]
	if len(images) == 0 {
		fmt.Fprintln(os.Stderr, "usage: iridvm [-i ips] [-p] [-s name=...,file=...] <image[:hex-offset]> ...")
		os.Exit(1)
	}

	mem := emulator.NewMemory()
	for _, spec := range images {
		path, offset, err := parseImageSpec(spec)
		if err != nil {
			fmt.Fprintln(os.Stderr, "iridvm:", err)
			os.Exit(1)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "iridvm:", err)
			os.Exit(1)
		}
		if err := mem.Load(offset, data); err != nil {
			fmt.Fprintln(os.Stderr, "iridvm:", err)
			os.Exit(1)
		}
		log.Debug().Str("file", path).Uint16("offset", offset).Int("bytes", len(data)).Msg("loaded image")
	}

	cpu := emulator.NewCPU(mem)
	cpu.SetTargetIPS(*ips)

	console := emulator.NewConsoleDevice(os.Stdin, os.Stdout)
	if err := console.EnterRawMode(); err != nil {
		log.Warn().Err(err).Msg("could not enter raw terminal mode")
	}
	defer console.Close()
	cpu.AddDevice(console)

	seen := map[uint16]bool{console.ID(): true}
	for i, spec := range serials {
		id := uint16(0x2000 + i)
		if seen[id] {
			fmt.Fprintf(os.Stderr, "iridvm: device id 0x%04x collides\n", id)
			os.Exit(1)
		}
		seen[id] = true
		dev, err := emulator.NewSerialDevice(id, spec.name, spec.file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "iridvm:", err)
			os.Exit(1)
		}
		cpu.AddDevice(dev)
		log.Debug().Str("name", spec.name).Str("file", spec.file).Uint16("id", id).Msg("registered serial device")
	}
	defer cpu.RemoveDevices()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT)
	go func() {
		<-sigc
		cpu.RequestStop()
		<-sigc
		os.Exit(1)
	}()

	err := cpu.Start()
	if *perf {
		fmt.Print(cpu.PerfSummary())
	}
	if err != nil {
		fmt.Fprint(os.Stderr, cpu.DumpRegisters())
		fmt.Fprintln(os.Stderr, "iridvm:", err)
		os.Exit(1)
	}
}

// parseImageSpec splits "path[:hex-offset]" into its path and load offset,
// defaulting to offset 0 when no suffix is given. The suffix is matched from
// the right so Windows-style drive letters in path are not mistaken for it.
func parseImageSpec(spec string) (path string, offset uint16, err error) {
	idx := strings.LastIndex(spec, ":")
	if idx < 0 {
		return spec, 0, nil
	}
	hex := spec[idx+1:]
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "0x"), 16, 16)
	if err != nil {
		return spec, 0, nil
	}
	return spec[:idx], uint16(v), nil
}
