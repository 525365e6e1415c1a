/* Copyright 2021 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func twoStates() []*State {
	return []*State{
		{Name: "a", Pattern: map[string]interface{}{"mark": "bar"}},
		{Name: "b", Pattern: map[string]interface{}{"mark": "point"}},
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		description string
		morph       *Morph
		bad         bool
		check       func(error) bool
	}{
		{
			description: "Success",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "b"}, Triggers: []string{"!go"}},
				},
			},
		},
		{
			description: "No name",
			morph: &Morph{
				States: twoStates(),
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "b"}, Triggers: []string{"go"}},
				},
			},
			bad: true,
		},
		{
			description: "One state",
			morph: &Morph{
				Name:   "m",
				States: twoStates()[:1],
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "a"}, Triggers: []string{"go"}},
				},
			},
			bad: true,
		},
		{
			description: "No transitions",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
			},
			bad: true,
		},
		{
			description: "Unknown state",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "c"}, Triggers: []string{"go"}},
				},
			},
			check: func(err error) bool {
				var u *UnknownState
				return errors.As(err, &u)
			},
		},
		{
			description: "Duplicate transition",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "b"}, Triggers: []string{"go"}},
					{Name: "t", States: []string{"b", "a"}, Triggers: []string{"go"}},
				},
			},
			check: func(err error) bool {
				var d *DuplicateTransition
				return errors.As(err, &d)
			},
		},
		{
			description: "No conditions",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "b"}, Timing: &Timing{Duration: 1}},
				},
			},
		},
		{
			description: "Same state",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "a"}, Triggers: []string{"go"}},
				},
			},
		},
		{
			description: "Signal cycle",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
				Signals: []*SignalSpec{
					{Name: "x", Expression: "y + 1"},
					{Name: "y", Expression: "z * 2"},
					{Name: "z", Expression: "x"},
				},
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "b"}, Triggers: []string{"x"}},
				},
			},
			bad: true,
		},
		{
			description: "Signal without source",
			morph: &Morph{
				Name:    "m",
				States:  twoStates(),
				Signals: []*SignalSpec{{Name: "go"}},
				Transitions: []*Transition{
					{Name: "t", States: []string{"a", "b"}, Triggers: []string{"go"}},
				},
			},
			bad: true,
		},
		{
			description: "Bad staging",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
				Transitions: []*Transition{
					{
						Name:     "t",
						States:   []string{"a", "b"},
						Triggers: []string{"go"},
						Staging:  map[string][]float64{"x": {0.5, 0.2}},
					},
				},
			},
			bad: true,
		},
		{
			description: "Bad interrupt",
			morph: &Morph{
				Name:   "m",
				States: twoStates(),
				Transitions: []*Transition{
					{
						Name:      "t",
						States:    []string{"a", "b"},
						Triggers:  []string{"go"},
						Interrupt: &Interrupt{Control: "shrug"},
					},
				},
			},
			bad: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			err := tc.morph.Compile()
			switch {
			case tc.bad:
				var b *BadMorph
				if !errors.As(err, &b) {
					t.Fatalf("expected a BadMorph, got %v", err)
				}
			case tc.check != nil:
				if err == nil {
					t.Fatal("expected an error")
				}
				if !tc.check(err) {
					t.Fatalf("unexpected error %T (%v)", err, err)
				}
			default:
				if err != nil {
					t.Fatal(err)
				}
				if !tc.morph.Compiled() {
					t.Fatal("not compiled")
				}
			}
		})
	}
}

func TestLocalsOrder(t *testing.T) {
	m := &Morph{
		Name:   "m",
		States: twoStates(),
		Signals: []*SignalSpec{
			{Name: "high", Expression: "scaled > 0.5"},
			{Name: "scaled", Expression: "level * scale"},
			{Name: "level", Source: "input"},
			{Name: "scale", Source: "vis", Target: "width"},
			{Name: "self", Expression: "self + level"},
		},
		Transitions: []*Transition{
			{Name: "t", States: []string{"a", "b"}, Triggers: []string{"high"}},
		},
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range m.Locals() {
		names = append(names, s.Name)
	}
	if got, want := strings.Join(names, " "), "scale scaled high self"; got != want {
		t.Fatalf("%s != %s", got, want)
	}
}

func TestIdentifiers(t *testing.T) {
	ids := Identifiers(`clamp(hand.y * 2, 0, handle) + "grab" + 1.5e3`)
	want := "clamp hand handle"
	if got := strings.Join(ids, " "); got != want {
		t.Fatalf("%s != %s", got, want)
	}
}

func TestCompileErrorTypes(t *testing.T) {
	m := &Morph{
		Name:   "m",
		States: twoStates(),
		Transitions: []*Transition{
			{Name: "t", States: []string{"a", "c"}, Triggers: []string{"go"}},
		},
	}
	var u *UnknownState
	if err := m.Compile(); !errors.As(err, &u) {
		t.Fatalf("expected UnknownState, got %v", err)
	}
	if u.State != "c" {
		t.Fatal(u.State)
	}
}

func TestChoroplethMorph(t *testing.T) {
	m, err := ChoroplethMorph()
	if err != nil {
		t.Fatal(err)
	}
	tr, have := m.Transition("extrude")
	if !have {
		t.Fatal("no extrude")
	}
	if tr.Duration() != 1 || !tr.ElapsedAtEnd() || tr.Ignores() {
		t.Fatal(tr)
	}
	if !m.HasSignal("grab") {
		t.Fatal("no grab")
	}
}

func TestStateJSON(t *testing.T) {
	js := `{"name":"hidden","access":false,"mark":"bar","encoding":{"x":{"field":"a"}}}`
	var s State
	if err := json.Unmarshal([]byte(js), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "hidden" || !s.Private() {
		t.Fatal(s)
	}
	if _, have := s.Pattern["name"]; have {
		t.Fatal("name leaked into pattern")
	}
	if s.Pattern["mark"] != "bar" {
		t.Fatal(s.Pattern)
	}

	bs, err := json.Marshal(&s)
	if err != nil {
		t.Fatal(err)
	}
	var again State
	if err := json.Unmarshal(bs, &again); err != nil {
		t.Fatal(err)
	}
	if again.Name != s.Name || !again.Private() {
		t.Fatal(string(bs))
	}
}

func TestParseMorphsYAML(t *testing.T) {
	src := `
name: flip
states:
  - name: flat
    encoding:
      z: null
  - name: tall
    access: false
    encoding:
      z:
        field: Population
signals:
  - name: grab
    source: input
  - name: half
    expression: "grab * 0.5"
transitions:
  - name: lift
    states: [flat, tall]
    bidirectional: true
    triggers: ["grab"]
    timing:
      duration: 2
      elapsed: start
    priority: 3
    staging:
      z: [0, 0.5]
    interrupt:
      control: ignore
    disable-grab: true
`
	ms, err := ParseMorphs([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 {
		t.Fatal(len(ms))
	}
	m := ms[0]
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}
	tall, _ := m.State("tall")
	if !tall.Private() {
		t.Fatal("tall should be private")
	}
	tr := m.Transitions[0]
	if tr.Priority != 3 || !tr.DisableGrab || !tr.Ignores() || tr.ElapsedAtEnd() || tr.Duration() != 2 {
		t.Fatalf("%#v", tr)
	}
	if r := tr.Staging["z"]; len(r) != 2 || r[1] != 0.5 {
		t.Fatal(r)
	}
	half, _ := m.Signal("half")
	if !half.Local() {
		t.Fatal("expression signals are local")
	}
	grab, _ := m.Signal("grab")
	if grab.Local() {
		t.Fatal("input signals are global")
	}
}

func TestParseMorphsArray(t *testing.T) {
	src := `{"morphs":[{"name":"a"},{"name":"b"}]}`
	ms, err := ParseMorphs([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 || ms[1].Name != "b" {
		t.Fatal(ms)
	}
}

func TestTrigger(t *testing.T) {
	if name, neg := Trigger("!grab"); name != "grab" || !neg {
		t.Fatal(name, neg)
	}
	if name, neg := Trigger("grab"); name != "grab" || neg {
		t.Fatal(name, neg)
	}
}
