package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Comcast/morphs/tools"

	"github.com/spf13/cobra"
)

func runExpect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed int
	for _, filename := range args {
		x, err := tools.ReadExpectation(filename)
		if err != nil {
			return err
		}
		if evaluatorName != "" && x.Evaluator == "" {
			x.Evaluator = evaluatorName
		}
		x.Verbose = x.Verbose || verbose
		if err = x.Run(context.Background(), filepath.Dir(filename)); err != nil {
			fmt.Fprintf(out, "FAIL %s: %s\n", filename, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d IOs)\n", filename, len(x.IOs))
	}
	if 0 < failed {
		return fmt.Errorf("%d of %d expectation(s) failed", failed, len(args))
	}
	return nil
}
