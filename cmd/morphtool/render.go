package main

import (
	"fmt"
	"io"

	"github.com/Comcast/morphs/tools"

	"github.com/spf13/cobra"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func runGraph(cmd *cobra.Command, args []string) error {
	ms, err := readMorphs(args[0])
	if err != nil {
		return err
	}
	m := ms[0]

	if graphPNG != "" {
		filename, err := tools.PNG(m, graphPNG, graphTransition)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filename)
		return nil
	}

	out := nopCloser{cmd.OutOrStdout()}
	switch graphFormat {
	case "dot":
		return tools.Dot(m, out, graphTransition)
	case "mermaid":
		opts := &tools.MermaidOpts{
			ShowPatterns: showPatterns,
			ShowTriggers: true,
			PrivateFill:  "#dddddd",
		}
		return tools.Mermaid(m, out, opts)
	}
	return fmt.Errorf("unknown graph format %q", graphFormat)
}

func runHTML(cmd *cobra.Command, args []string) error {
	return tools.ReadAndRenderMorphPage(args[0], cssFiles, cmd.OutOrStdout(), includeGraph)
}
