package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	evaluatorName string
	verbose       bool

	prettyJSON bool

	warningsOnly bool

	graphFormat     string
	graphTransition string
	graphPNG        string
	showPatterns    bool

	cssFiles     []string
	includeGraph bool

	specFilename string
	transition   string
	reversed     bool

	rootCmd = &cobra.Command{
		Use:           "morphtool",
		Short:         "Tools for morph definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// --- Checking ---
	validateCmd = &cobra.Command{
		Use:   "validate FILE...",
		Short: "Parse and compile morph files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runValidate, // Defined in inspect.go
	}
	analyzeCmd = &cobra.Command{
		Use:   "analyze FILE",
		Short: "Report orphan states, unused signals, and other oddities",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze, // Defined in inspect.go
	}
	matchCmd = &cobra.Command{
		Use:   "match FILE",
		Short: "Report the states that a visualization spec (-s) matches",
		Args:  cobra.ExactArgs(1),
		RunE:  runMatch, // Defined in inspect.go
	}
	keyframesCmd = &cobra.Command{
		Use:   "keyframes FILE",
		Short: "Generate the keyframes for a transition (-t) from a visualization spec (-s)",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeyframes, // Defined in inspect.go
	}

	// --- Rendering ---
	graphCmd = &cobra.Command{
		Use:   "graph FILE",
		Short: "Write a Graphviz dot or Mermaid graph of a morph",
		Args:  cobra.ExactArgs(1),
		RunE:  runGraph, // Defined in render.go
	}
	htmlCmd = &cobra.Command{
		Use:   "html FILE",
		Short: "Write an HTML page documenting a morph",
		Args:  cobra.ExactArgs(1),
		RunE:  runHTML, // Defined in render.go
	}

	// --- Conversion ---
	yamlToJSONCmd = &cobra.Command{
		Use:   "yamltojson",
		Short: "Convert YAML (stdin) to JSON (stdout)",
		Args:  cobra.NoArgs,
		RunE:  runYAMLToJSON, // Defined in convert.go
	}
	jsonToYAMLCmd = &cobra.Command{
		Use:   "jsontoyaml",
		Short: "Convert JSON (stdin) to YAML (stdout)",
		Args:  cobra.NoArgs,
		RunE:  runJSONToYAML, // Defined in convert.go
	}

	// --- Scenarios ---
	expectCmd = &cobra.Command{
		Use:   "expect FILE...",
		Short: "Run expectation files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExpect, // Defined in expect.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&evaluatorName, "evaluator", "goja", "Expression evaluator")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose")

	analyzeCmd.Flags().BoolVarP(&warningsOnly, "warnings", "w", false, "Only print warnings")

	matchCmd.Flags().StringVarP(&specFilename, "spec", "s", "", "Visualization spec (JSON or YAML) filename")
	matchCmd.MarkFlagRequired("spec")

	keyframesCmd.Flags().StringVarP(&specFilename, "spec", "s", "", "Visualization spec (JSON or YAML) filename")
	keyframesCmd.Flags().StringVarP(&transition, "transition", "t", "", "Transition name")
	keyframesCmd.Flags().BoolVarP(&reversed, "reversed", "r", false, "Take a bidirectional transition backwards")
	keyframesCmd.MarkFlagRequired("spec")
	keyframesCmd.MarkFlagRequired("transition")

	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "dot", `"dot" or "mermaid"`)
	graphCmd.Flags().StringVarP(&graphTransition, "transition", "t", "", "Active transition to highlight (dot)")
	graphCmd.Flags().StringVar(&graphPNG, "png", "", "Write BASENAME.dot and BASENAME.png (requires Graphviz)")
	graphCmd.Flags().BoolVar(&showPatterns, "patterns", false, "Show state patterns (mermaid)")

	htmlCmd.Flags().StringSliceVar(&cssFiles, "css", nil, "CSS files to link")
	htmlCmd.Flags().BoolVar(&includeGraph, "graph", false, "Include a Mermaid graph")

	yamlToJSONCmd.Flags().BoolVarP(&prettyJSON, "pretty", "p", false, "Indent the JSON")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(keyframesCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(htmlCmd)
	rootCmd.AddCommand(yamlToJSONCmd)
	rootCmd.AddCommand(jsonToYAMLCmd)
	rootCmd.AddCommand(expectCmd)
}
