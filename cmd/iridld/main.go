// Command iridld combines one or more IOF objects into a flat executable
// image, or (in one of its introspection modes) dumps an object's header or
// symbol table without linking.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"irid/internal/iof"
	"irid/internal/linker"
)

var (
	output       = flag.String("o", "a.out", "output image path")
	dumpSymbols  = flag.Bool("t", false, "dump each input object's symbol table instead of linking")
	dumpHeader   = flag.Bool("header", false, "dump each input object's section headers instead of linking")
	portable     = flag.Bool("portable", false, "render dump output as one field=value line per field")
	onlyExported = flag.Bool("only-exported", false, "restrict -t output to exported symbols")
	verbose      = flag.Bool("v", false, "enable verbose tool-level logging")
)

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.WarnLevel)
	}

	paths := os.Args[len(os.Args)-flag.NArg():]
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: iridld [-o output] [-t|--header [--portable] [--only-exported]] <input.iof> ...")
		os.Exit(1)
	}

	format := linker.DumpHuman
	if *portable {
		format = linker.DumpPortable
	}

	var inputs []linker.InputObject
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "iridld:", err)
			os.Exit(1)
		}
		obj, err := iof.Parse(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "iridld: %s: %s\n", path, err)
			os.Exit(1)
		}
		log.Debug().Str("file", path).Int("sections", len(obj.Sections)).Msg("parsed object")

		if *dumpHeader {
			linker.DumpHeader(os.Stdout, path, obj, format)
			continue
		}
		if *dumpSymbols {
			linker.DumpSymbols(os.Stdout, path, obj, *onlyExported, format)
			continue
		}
		inputs = append(inputs, linker.InputObject{Path: path, Object: obj})
	}

	if *dumpHeader || *dumpSymbols {
		return
	}

	image, err := linker.Link(inputs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "iridld:", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*output, image.Bytes, 0644); err != nil {
		fmt.Fprintln(os.Stderr, "iridld:", err)
		os.Exit(1)
	}
	log.Info().Str("output", *output).Int("bytes", len(image.Bytes)).Msg("wrote image")
}
