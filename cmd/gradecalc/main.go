// Command gradecalc computes final grades and class summaries from a JSON
// array of assessment scores and prints them as terminal tables.
//
//	gradecalc -in scores.json -pass-threshold 60
//	cat scores.json | gradecalc
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/fatih/color"

	"github.com/noah-isme/sma-grading-api/internal/grading"
)

func main() {
	var (
		inPath    string
		threshold float64
	)
	flag.StringVar(&inPath, "in", "", "Path to a JSON array of scores (reads stdin when empty)")
	flag.Float64Var(&threshold, "pass-threshold", grading.DefaultPassThreshold, "Pass threshold percentage (0-100)")
	flag.Parse()

	if err := run(inPath, threshold, os.Stdin, os.Stdout); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err) //nolint:errcheck
		os.Exit(1)
	}
}

func run(inPath string, threshold float64, stdin io.Reader, out io.Writer) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return fmt.Errorf("pass-threshold must be between 0 and 100, got %v", threshold)
	}
	in := stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close() //nolint:errcheck
		in = f
	}
	raw, err := decodeScores(in)
	if err != nil {
		return err
	}
	result, err := compute(raw, threshold)
	if err != nil {
		return err
	}
	render(out, result)
	return nil
}
