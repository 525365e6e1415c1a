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

// Package engine tracks which morphs apply to running visualizations
// and drives their transitions.
//
// An Engine holds the loaded morphs, the global signals, and the
// frame scheduler.  Each running visualization gets an Instance,
// which keeps a Candidate for every morph that has a state matching
// the visualization's spec.  A Candidate watches the conditions of
// the transitions reachable from its state, and an Instance queues
// activations and deactivations for the resolution phase of the
// frame.
//
// Nothing here is safe for concurrent use.  Other goroutines should
// go through Scheduler.Post (or Signals.Post).
package engine

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/match"
	"github.com/Comcast/morphs/signal"
	"github.com/Comcast/morphs/storage"

	"github.com/google/uuid"
)

// Engine owns the morph and signal tables for a set of
// visualization instances.
type Engine struct {
	Ctx       context.Context
	Matcher   *match.Matcher
	Signals   *signal.Manager
	Scheduler *signal.Scheduler
	Evaluator core.Evaluator

	// Store, if not nil, persists keyframe memory.
	Store storage.KeyframeStore

	Hooks Hooks

	// Debug turns on some logging.
	Debug bool

	morphs    []*core.Morph
	instances map[string]*Instance
}

// NewEngine makes an Engine with its own scheduler and signal
// manager.
func NewEngine(eval core.Evaluator) *Engine {
	sched := signal.NewScheduler()
	m := *match.DefaultMatcher
	return &Engine{
		Ctx:       context.Background(),
		Matcher:   &m,
		Signals:   signal.NewManager(sched, eval),
		Scheduler: sched,
		Evaluator: eval,
		instances: make(map[string]*Instance),
	}
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.Debug {
		log.Printf("engine "+format, args...)
	}
}

// Load replaces the loaded morphs.
//
// Every instance is reset first, and the global signal table is
// rebuilt.  A morph that doesn't compile, that declares a transition
// name another morph in the set already uses, or whose global signals
// can't be built is skipped, and its error is returned.  The other
// morphs are loaded.  Then every instance looks for candidates.
func (e *Engine) Load(morphs []*core.Morph) []error {
	for _, inst := range e.Instances() {
		inst.Reset()
	}
	e.Signals.Reset()
	e.morphs = nil

	var (
		errs        []error
		names       = make(map[string]bool)
		transitions = make(map[string]string)
	)

MORPHS:
	for _, m := range morphs {
		if err := m.Compile(); err != nil {
			errs = append(errs, err)
			continue
		}
		if names[m.Name] {
			errs = append(errs, &core.BadMorph{
				Morph:  m.Name,
				Reason: "duplicate morph name",
			})
			continue
		}
		for _, t := range m.Transitions {
			if other, have := transitions[t.Name]; have {
				errs = append(errs, &core.DuplicateTransition{
					Morph:      m.Name,
					Transition: t.Name,
					Other:      other,
				})
				continue MORPHS
			}
		}
		if err := e.Signals.Declare(m); err != nil {
			errs = append(errs, &core.BadMorph{
				Morph:  m.Name,
				Reason: err.Error(),
			})
			continue
		}
		names[m.Name] = true
		for _, t := range m.Transitions {
			transitions[t.Name] = m.Name
		}
		e.morphs = append(e.morphs, m)
	}

	for _, err := range errs {
		log.Printf("ERROR loading morphs: %s", err)
	}
	e.logf("loaded %d of %d morphs", len(e.morphs), len(morphs))

	for _, inst := range e.Instances() {
		inst.CheckForMorphs()
	}

	return errs
}

// Morphs returns the loaded morphs.
func (e *Engine) Morphs() []*core.Morph {
	acc := make([]*core.Morph, len(e.morphs))
	copy(acc, e.morphs)
	return acc
}

// Morph finds a loaded morph.
func (e *Engine) Morph(name string) (*core.Morph, bool) {
	for _, m := range e.morphs {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// NewInstance makes an Instance for a running visualization.  With
// an empty id, a random one is generated.
//
// The instance doesn't look for candidates until it's given a spec
// (OnSpecUpdated) or asked (CheckForMorphs).
func (e *Engine) NewInstance(id string, vis Vis) *Instance {
	if id == "" {
		id = uuid.NewString()
	}
	if old, have := e.instances[id]; have {
		old.Close()
	}
	inst := newInstance(e, id, vis)
	e.instances[id] = inst
	return inst
}

// Instance finds an instance by id.
func (e *Engine) Instance(id string) (*Instance, bool) {
	inst, have := e.instances[id]
	return inst, have
}

// Instances returns the instances ordered by id.
func (e *Engine) Instances() []*Instance {
	acc := make([]*Instance, 0, len(e.instances))
	for _, inst := range e.instances {
		acc = append(acc, inst)
	}
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Id < acc[j].Id
	})
	return acc
}

func (e *Engine) remove(inst *Instance) {
	if e.instances[inst.Id] == inst {
		delete(e.instances, inst.Id)
	}
}

// Tick runs one frame.
func (e *Engine) Tick(dt time.Duration) {
	e.Scheduler.Tick(dt)
}

// isSignal reports whether the name is a global signal or a signal
// declared by the morph.
func (e *Engine) isSignal(m *core.Morph) func(string) bool {
	return func(name string) bool {
		if m != nil && m.HasSignal(name) {
			return true
		}
		_, have := e.Signals.Global(name)
		return have
	}
}

// Matches reports whether the spec matches the state's pattern.
func (e *Engine) Matches(spec core.VisSpec, m *core.Morph, s *core.State) bool {
	return e.Matcher.Matches(spec, s.Pattern, e.isSignal(m))
}
