// Command iridas assembles Irid assembly source into an IOF object (the
// default) or a raw flat binary (-r/--raw).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"irid/internal/assembler"
	"irid/internal/iof"
)

var (
	output  = flag.String("o", "a.iof", "output file path")
	raw     = flag.Bool("r", false, "emit a raw flat binary instead of an IOF object")
	warnOrg = flag.Bool("Worigin-overlap", true, "warn when a .org directive moves the cursor backward")
	noWarnOrg = flag.Bool("Wno-origin-overlap", false, "disable the origin-overlap warning")
	verbose = flag.Bool("v", false, "enable verbose tool-level logging")
)

func main() {
	flag.BoolVar(raw, "raw", false, "same as -r")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.WarnLevel)
	}

	args := os.Args[len(os.Args)-flag.NArg():]
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: iridas [-o output] [-r] [-Worigin-overlap[no-]] <input.s|->")
		os.Exit(1)
	}

	source, filename, err := readSource(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "iridas:", err)
		os.Exit(1)
	}
	log.Debug().Str("file", filename).Int("bytes", len(source)).Msg("read source")

	opts := assembler.Options{
		Filename:          filename,
		WarnOriginOverlap: *warnOrg && !*noWarnOrg,
	}

	var out []byte
	var warnings []*assembler.Warning

	if *raw {
		out, warnings, err = assembler.AssembleRawBinary(opts, source)
	} else {
		var res *assembler.Result
		res, err = assembler.AssembleString(opts, source)
		if err == nil {
			obj := &iof.Object{Sections: []*iof.Section{res.Section}}
			out = obj.Build()
			warnings = res.Warnings
		}
	}

	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w.String())
	}

	if err != nil {
		if diag, ok := err.(*assembler.Diagnostic); ok {
			fmt.Fprintln(os.Stderr, diag.Render())
		} else {
			fmt.Fprintln(os.Stderr, "iridas:", err)
		}
		os.Exit(1)
	}

	if err := os.WriteFile(*output, out, 0644); err != nil {
		fmt.Fprintln(os.Stderr, "iridas:", err)
		os.Exit(1)
	}
	log.Info().Str("output", *output).Int("bytes", len(out)).Msg("wrote object")
}

func readSource(path string) (string, string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), "<stdin>", err
	}
	b, err := os.ReadFile(path)
	return string(b), path, err
}
