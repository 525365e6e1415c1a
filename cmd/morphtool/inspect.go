package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/interpreters"
	"github.com/Comcast/morphs/keyframe"
	"github.com/Comcast/morphs/match"
	"github.com/Comcast/morphs/sio"
	"github.com/Comcast/morphs/tools"

	"github.com/jsccast/yaml"
	"github.com/spf13/cobra"
)

// readMorphs reads a morph file (with %inline support).
func readMorphs(filename string) ([]*core.Morph, error) {
	ms, err := tools.ReadMorphs(filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("%s: no morphs", filename)
	}
	return ms, nil
}

// readSpec reads a visualization spec in JSON or YAML.
func readSpec(filename string) (core.VisSpec, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var x map[string]interface{}
	if err = yaml.Unmarshal(bs, &x); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	y, err := core.Canonicalize(x)
	if err != nil {
		return nil, err
	}
	spec, is := y.(map[string]interface{})
	if !is {
		return nil, fmt.Errorf("%s: not an object", filename)
	}
	return core.VisSpec(spec), nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed int
	for _, filename := range args {
		ms, err := readMorphs(filename)
		if err != nil {
			fmt.Fprintf(out, "FAIL %s\n", err)
			failed++
			continue
		}
		for _, m := range ms {
			fmt.Fprintf(out, "ok   %s %s (%d states, %d transitions)\n",
				filename, m.Name, len(m.States), len(m.Transitions))
		}
	}
	if 0 < failed {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ms, err := readMorphs(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range ms {
		a, err := tools.Analyze(m)
		if err != nil {
			return err
		}
		if warningsOnly {
			for _, w := range a.Warnings() {
				fmt.Fprintf(out, "%s: %s\n", m.Name, w)
			}
			continue
		}
		fmt.Fprintf(out, "%s\n", sio.JSON(map[string]interface{}{
			"morph":    m.Name,
			"analysis": a,
		}))
	}
	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	ms, err := readMorphs(args[0])
	if err != nil {
		return err
	}
	live, err := readSpec(specFilename)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	var matched int
	for _, m := range ms {
		for _, s := range m.States {
			bs, ok := match.DefaultMatcher.Match(live, s.Pattern, m.HasSignal)
			if !ok {
				if verbose {
					fmt.Fprintf(out, "no   %s %s\n", m.Name, s.Name)
				}
				continue
			}
			matched++
			access := ""
			if s.Private() {
				access = " (private)"
			}
			fmt.Fprintf(out, "yes  %s %s%s %s\n", m.Name, s.Name, access, sio.JS(bs))
		}
	}
	if matched == 0 {
		fmt.Fprintf(out, "no matches\n")
	}
	return nil
}

// initialSignals answers with each signal's declared value.
type initialSignals struct {
	morph  *core.Morph
	values map[string]core.Value
}

func newInitialSignals(m *core.Morph) (*initialSignals, error) {
	ss := &initialSignals{
		morph:  m,
		values: make(map[string]core.Value),
	}
	for _, s := range m.Signals {
		if s.Value == nil {
			continue
		}
		v, err := core.Of(s.Value)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", s.Name, err)
		}
		ss.values[s.Name] = v
	}
	return ss, nil
}

func (ss *initialSignals) IsSignal(name string) bool {
	return ss.morph.HasSignal(name)
}

func (ss *initialSignals) Last(name string) (core.Value, bool) {
	v, have := ss.values[name]
	return v, have
}

func runKeyframes(cmd *cobra.Command, args []string) error {
	ms, err := readMorphs(args[0])
	if err != nil {
		return err
	}
	live, err := readSpec(specFilename)
	if err != nil {
		return err
	}
	eval, have := interpreters.Find(evaluatorName)
	if !have {
		return fmt.Errorf("unknown evaluator %q", evaluatorName)
	}

	for _, m := range ms {
		t, have := m.Transition(transition)
		if !have {
			continue
		}
		if reversed && !t.Bidirectional {
			return fmt.Errorf("transition %s isn't bidirectional", t.Name)
		}
		initial, _ := m.State(t.States[0])
		final, _ := m.State(t.States[1])

		signals, err := newInitialSignals(m)
		if err != nil {
			return err
		}
		g := keyframe.NewGenerator(eval, signals)
		g.Debug = verbose
		kfs, err := g.Generate(context.Background(), live, initial, final, nil, reversed)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", sio.JSON(map[string]interface{}{
			"morph":      m.Name,
			"transition": t.Name,
			"initial":    kfs.Initial,
			"final":      kfs.Final,
			"changes":    keyframe.Changes(kfs.Initial, kfs.Final, kfs.Bound...),
		}))
		return nil
	}

	var names []string
	for _, m := range ms {
		for _, t := range m.Transitions {
			names = append(names, t.Name)
		}
	}
	return fmt.Errorf("no transition %q (have %s)", transition, strings.Join(names, ", "))
}
