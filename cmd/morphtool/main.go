// Package main is a command-line tool for morph files: validation,
// analysis, graphs, HTML docs, format conversion, state matching,
// keyframe previews, and scenario expectations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
