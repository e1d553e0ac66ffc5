// Command kbrowse is a thin flag-parsing shell around the core
// pipeline (internal/browser): it reads an HTML document from a file
// or stdin, runs it through parse→style→layout→render, and writes the
// resulting ANSI frame to stdout. It wires no real HTTP fetcher, URL
// resolver, or raw-mode terminal collaborator; only the one-shot
// local-file render path exercises the core here.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kbrowse/kbrowse/internal/browser"
	kbimage "github.com/kbrowse/kbrowse/internal/image"
	"github.com/kbrowse/kbrowse/internal/render"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	width := flag.Int("width", 80, "viewport width in columns")
	height := flag.Int("height", 24, "viewport height in rows")
	colorFlag := flag.String("color", "truecolor", "color support: none, mono, ansi16, ansi256, truecolor")
	showVersion := flag.Bool("version", false, "show version")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Render an HTML document to a terminal ANSI frame.\n\n")
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  file    HTML file path or '-' for stdin\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("kbrowse version %s\n", version)
		return nil
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing input file")
	}

	cs, err := parseColorSupport(*colorFlag)
	if err != nil {
		return err
	}

	var input []byte
	if args[0] == "-" {
		input, err = io.ReadAll(os.Stdin)
	} else {
		input, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	b := browser.New()
	b.Height = *height
	b.Load(input, *width)

	canvas := b.Render(render.Options{ColorSupport: cs})
	out := render.Serialize(canvas, cs)
	if cs == kbimage.ColorNone {
		// No color codes may survive under -color none, even if a
		// future caller feeds pre-colored text into this path.
		out = render.StripANSI(out)
	}

	fmt.Println(out)

	if msg, ok := b.Handler.FirstFatal(); ok {
		fmt.Fprintln(os.Stderr, msg)
	}
	return nil
}

func parseColorSupport(s string) (kbimage.ColorSupport, error) {
	switch s {
	case "none":
		return kbimage.ColorNone, nil
	case "mono":
		return kbimage.ColorMono, nil
	case "ansi16":
		return kbimage.ColorAnsi16, nil
	case "ansi256":
		return kbimage.ColorAnsi256, nil
	case "truecolor":
		return kbimage.ColorTrueColor, nil
	default:
		return 0, fmt.Errorf("unknown color support %q", s)
	}
}
