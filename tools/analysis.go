/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package tools

import (
	"sort"

	"github.com/Comcast/morphs/core"
)

// MorphAnalysis reports structural oddities in a morph.  None of
// these are errors (Compile catches those), but most are mistakes.
type MorphAnalysis struct {
	morph *core.Morph

	States      int
	Transitions int
	Signals     int

	// Orphans are states that no transition mentions.
	Orphans []string

	// Private states (access: false).
	Private []string

	// Unreachable are private states that no path from a public
	// state reaches.  A morph can never be in one of these.
	Unreachable []string

	// External are trigger and control signals that the morph
	// doesn't declare.  Another morph might.
	External []string

	// Unconditioned are transitions without triggers.  A control
	// signal drives these, or, without one, they start as soon as
	// their state is reached and run on a timer.
	Unconditioned []string

	// Unused are declared signals that nothing references.
	Unused []string

	// Bidirectional transitions.
	Bidirectional []string
}

// Analyze examines a compiled (or at least well-formed) morph.
func Analyze(m *core.Morph) (*MorphAnalysis, error) {
	a := MorphAnalysis{
		morph:       m,
		States:      len(m.States),
		Transitions: len(m.Transitions),
		Signals:     len(m.Signals),
	}

	var (
		mentioned     = make(map[string]bool)
		external      = make(map[string]bool)
		used          = make(map[string]bool)
		unconditioned = make(map[string]bool)
		bidirectional = make(map[string]bool)
		edges         = make(map[string][]string)
	)

	ref := func(name string) {
		if name == "" {
			return
		}
		used[name] = true
		if !m.HasSignal(name) {
			external[name] = true
		}
	}

	for _, t := range m.Transitions {
		if len(t.States) != 2 {
			continue
		}
		from, to := t.States[0], t.States[1]
		mentioned[from] = true
		mentioned[to] = true
		edges[from] = append(edges[from], to)
		if t.Bidirectional {
			edges[to] = append(edges[to], from)
			bidirectional[t.Name] = true
		}
		if len(t.Triggers) == 0 {
			unconditioned[t.Name] = true
		}
		for _, trigger := range t.Triggers {
			name, _ := core.Trigger(trigger)
			ref(name)
		}
		ref(t.Control())
	}

	// Expressions use other signals.
	for _, s := range m.Signals {
		if s.Expression == "" {
			continue
		}
		for _, id := range core.Identifiers(s.Expression) {
			if m.HasSignal(id) {
				used[id] = true
			}
		}
	}

	var (
		orphans = make(map[string]bool)
		private = make(map[string]bool)
		reached = make(map[string]bool)
		queue   []string
	)
	for _, s := range m.States {
		if !mentioned[s.Name] {
			orphans[s.Name] = true
		}
		if s.Private() {
			private[s.Name] = true
			continue
		}
		reached[s.Name] = true
		queue = append(queue, s.Name)
	}
	for 0 < len(queue) {
		at := queue[0]
		queue = queue[1:]
		for _, next := range edges[at] {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	unreachable := make(map[string]bool)
	for name := range private {
		if !reached[name] {
			unreachable[name] = true
		}
	}

	unused := make(map[string]bool)
	for _, s := range m.Signals {
		if !used[s.Name] {
			unused[s.Name] = true
		}
	}

	a.Orphans = keysToStringSlice(orphans)
	a.Private = keysToStringSlice(private)
	a.Unreachable = keysToStringSlice(unreachable)
	a.External = keysToStringSlice(external)
	a.Unconditioned = keysToStringSlice(unconditioned)
	a.Unused = keysToStringSlice(unused)
	a.Bidirectional = keysToStringSlice(bidirectional)

	return &a, nil
}

// Warnings summarizes the analysis as human-readable lines.
func (a *MorphAnalysis) Warnings() []string {
	var acc []string
	add := func(what string, names []string) {
		for _, name := range names {
			acc = append(acc, what+": "+name)
		}
	}
	add("orphan state", a.Orphans)
	add("unreachable private state", a.Unreachable)
	add("transition without triggers", a.Unconditioned)
	add("unused signal", a.Unused)
	add("external signal", a.External)
	return acc
}

// keysToStringSlice returns the sorted keys, or the optional default
// value when there aren't any.
func keysToStringSlice(m map[string]bool, defaultValue ...string) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)

	if len(list) == 0 && len(defaultValue) > 0 {
		return []string{defaultValue[0]}
	}

	return list
}
