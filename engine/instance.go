package engine

import (
	"errors"
	"log"
	"sort"

	"github.com/Comcast/morphs/core"
)

// Instance is the engine's view of one running visualization.
type Instance struct {
	Id  string
	Vis Vis

	// Debug turns on some logging.
	Debug bool

	engine     *Engine
	candidates map[string]*Candidate
	active     map[string]*ActiveTransition
	phases     map[string]Phase
	pending    map[string]*action
	disarmed   map[string]bool
	seq        int
	scheduled  bool
	resolving  bool
	recheck    bool
	closed     bool
}

func newInstance(e *Engine, id string, vis Vis) *Instance {
	inst := &Instance{
		Id:     id,
		Vis:    vis,
		Debug:  e.Debug,
		engine: e,
	}
	inst.clear()
	return inst
}

func (inst *Instance) clear() {
	inst.candidates = make(map[string]*Candidate)
	inst.active = make(map[string]*ActiveTransition)
	inst.phases = make(map[string]Phase)
	inst.pending = make(map[string]*action)
	inst.disarmed = make(map[string]bool)
	inst.recheck = false
}

func (inst *Instance) logf(format string, args ...interface{}) {
	if inst.Debug {
		log.Printf("instance %s "+format, append([]interface{}{inst.Id}, args...)...)
	}
}

// report logs an error and tells the hooks.
func (inst *Instance) report(err error) {
	hooks := inst.engine.Hooks
	var conflict *core.TransitionConflict
	if errors.As(err, &conflict) {
		log.Printf("instance %s: %s", inst.Id, err)
		if hooks.OnConflict != nil {
			hooks.OnConflict(inst, conflict)
		}
		return
	}
	log.Printf("ERROR instance %s: %s", inst.Id, err)
	if hooks.OnError != nil {
		hooks.OnError(inst, err)
	}
}

// OnSpecUpdated is how the host says that the visualization's spec
// has changed.
//
// The instance re-matches every loaded morph against the spec.  A
// candidate whose state still matches keeps it.  Otherwise all of the
// morph's states are scanned in order, including private ones if the
// morph was already a candidate, and the first match becomes the
// candidate's state.  A morph with no matching state stops being a
// candidate, and its active transitions are stopped without
// committing.
//
// While activations or deactivations are queued, matching is put off
// until they have been resolved, and then the current spec is used.
func (inst *Instance) OnSpecUpdated(spec core.VisSpec) {
	if inst.closed {
		return
	}
	if inst.resolving || 0 < len(inst.pending) {
		inst.logf("deferring a spec update")
		inst.recheck = true
		return
	}
	inst.check(spec)
}

// CheckForMorphs re-matches against the visualization's current
// spec.  Calling it again without a change does nothing new.
func (inst *Instance) CheckForMorphs() {
	inst.OnSpecUpdated(inst.Vis.CurrentSpec())
}

func (inst *Instance) check(spec core.VisSpec) {
	e := inst.engine
	loaded := make(map[string]bool, len(e.morphs))

	for _, m := range e.morphs {
		loaded[m.Name] = true
		c, have := inst.candidates[m.Name]
		if have && c.Morph != m {
			inst.drop(c)
			c, have = nil, false
		}

		var state *core.State
		if have && e.Matches(spec, m, c.State) {
			state = c.State
		} else {
			state = inst.scan(spec, m, have)
		}

		switch {
		case state == nil:
			if have {
				inst.logf("%s is no longer a candidate", m.Name)
				inst.drop(c)
			}
		case !have:
			inst.logf("%s is a candidate in state %s", m.Name, state.Name)
			c = newCandidate(inst, m, state)
			inst.candidates[m.Name] = c
			c.rebuild()
		case c.State != state:
			inst.logf("%s moved from %s to %s", m.Name, c.State.Name, state.Name)
			c.State = state
			c.rebuild()
		default:
			c.refresh()
		}
	}

	for name, c := range inst.candidates {
		if !loaded[name] {
			inst.drop(c)
		}
	}
}

// scan returns the first state of the morph that matches the spec.
func (inst *Instance) scan(spec core.VisSpec, m *core.Morph, private bool) *core.State {
	for _, s := range m.States {
		if s.Private() && !private {
			continue
		}
		if inst.engine.Matches(spec, m, s) {
			return s
		}
	}
	return nil
}

func (inst *Instance) drop(c *Candidate) {
	for _, at := range inst.Active() {
		if at.candidate == c {
			inst.stop(at, false, false)
		}
	}
	c.close()
	delete(inst.candidates, c.Morph.Name)
}

// Reset stops every active transition without committing and drops
// every candidate, releasing all of the instance's subscriptions.
func (inst *Instance) Reset() {
	for _, at := range inst.Active() {
		inst.stop(at, false, false)
	}
	for _, c := range inst.candidates {
		c.close()
	}
	inst.clear()
}

// Close resets the instance and removes it from its engine.
func (inst *Instance) Close() {
	inst.Reset()
	inst.closed = true
	inst.engine.remove(inst)
}

// Candidates returns the candidates in the order the morphs were
// loaded.
func (inst *Instance) Candidates() []*Candidate {
	acc := make([]*Candidate, 0, len(inst.candidates))
	for _, m := range inst.engine.morphs {
		if c, have := inst.candidates[m.Name]; have {
			acc = append(acc, c)
		}
	}
	return acc
}

// Candidate finds the candidate for a morph.
func (inst *Instance) Candidate(morph string) (*Candidate, bool) {
	c, have := inst.candidates[morph]
	return c, have
}

// Active returns the active transitions in the order they were
// applied.
func (inst *Instance) Active() []*ActiveTransition {
	acc := make([]*ActiveTransition, 0, len(inst.active))
	for _, at := range inst.active {
		acc = append(acc, at)
	}
	sort.Slice(acc, func(i, j int) bool {
		if acc[i].Frame != acc[j].Frame {
			return acc[i].Frame < acc[j].Frame
		}
		return acc[i].Name < acc[j].Name
	})
	return acc
}

// ActiveTransition finds an active transition by name.
func (inst *Instance) ActiveTransition(name string) (*ActiveTransition, bool) {
	at, have := inst.active[name]
	return at, have
}

// Phase returns the lifecycle phase of the named transition.
func (inst *Instance) Phase(name string) Phase {
	return inst.phases[name]
}

// Subscriptions counts the live signal subscriptions that the
// instance owns.
func (inst *Instance) Subscriptions() int {
	n := 0
	for _, c := range inst.candidates {
		n += c.Subscriptions()
	}
	for _, at := range inst.active {
		n += at.group.Len()
	}
	return n
}
