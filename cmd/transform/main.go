// transform converts a FinnHub stock symbol listing into the symbol_list.json
// directory used by the viewer.
// Usage: go run ./cmd/transform --in finnhub_symbols.json --out symbol_list.json
//
// With no flags it reads stdin and writes stdout.
package main

import (
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/dfunklove/tikka/internal/symbols"
)

func main() {
	in := flag.String("in", "", "FinnHub listing file (stdin when empty)")
	out := flag.String("out", "", "output file (stdout when empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(*in, *out); err != nil {
		logger.Error("transform failed", "error", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string) error {
	var r io.Reader = os.Stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	entries, err := symbols.Transform(r)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	return symbols.WriteEntries(w, entries)
}
