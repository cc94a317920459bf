package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  squiggle run [flags] <file.squiggle>")
	fmt.Fprintln(os.Stderr, "  squiggle run [flags] -e <code>")
	fmt.Fprintln(os.Stderr, "  squiggle [flags] <file.squiggle>")
	fmt.Fprintln(os.Stderr, "  squiggle check [flags] <file.squiggle>")
	fmt.Fprintln(os.Stderr, "  squiggle deps [flags] <file.squiggle>")
	fmt.Fprintln(os.Stderr, "  squiggle repl [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Run flags:")
	fmt.Fprintln(os.Stderr, "  --output none|result-or-bindings|result-and-bindings")
	fmt.Fprintln(os.Stderr, "  -q, --quiet           same as --output none")
	fmt.Fprintln(os.Stderr, "  -b, --show-bindings   same as --output result-and-bindings")
	fmt.Fprintln(os.Stderr, "  --sample-count N      samples per sample set")
	fmt.Fprintln(os.Stderr, "  --xy-point-length N   points per point set")
	fmt.Fprintln(os.Stderr, "  --seed S              random seed")
	fmt.Fprintln(os.Stderr, "  --time                print evaluation time")
	fmt.Fprintln(os.Stderr, "  --config PATH         squiggle.yaml to use instead of the nearest one")
	fmt.Fprintln(os.Stderr, "  --log-events          log module load and run events to stderr")
	fmt.Fprintln(os.Stderr, "  --runner in-process|serializing")
}
