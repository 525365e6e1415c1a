package engine

import (
	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/signal"
)

// Candidate is a morph with a state that matches an instance's spec.
//
// A Candidate owns the morph's local signals and the watches for the
// transitions reachable from its state.  It also remembers the
// keyframes of the transitions it has taken, by state name.  All of
// that survives a change of state, so a morph that stays a candidate
// keeps its signals and its memory.
type Candidate struct {
	Morph *core.Morph
	State *core.State

	inst      *Instance
	locals    map[string]*signal.Signal
	keyframes map[string]core.VisSpec
	group     *signal.Group
	routes    []Route
	watches   []*watch
	watching  *signal.Group
}

// Route is a transition that can be taken from a state, and which
// way.
type Route struct {
	Transition *core.Transition
	Reversed   bool
}

func newCandidate(inst *Instance, m *core.Morph, s *core.State) *Candidate {
	c := &Candidate{
		Morph:     m,
		State:     s,
		inst:      inst,
		locals:    make(map[string]*signal.Signal),
		keyframes: make(map[string]core.VisSpec),
		group:     signal.NewGroup(),
	}
	c.watching = c.group.Group()
	c.buildLocals()
	return c
}

// buildLocals makes the morph's local signals in the order Compile
// worked out: "vis" signals, then expressions after the signals they
// mention.
func (c *Candidate) buildLocals() {
	e := c.inst.engine
	env := e.Signals.Env()
	env.Spec = c.inst.Vis.CurrentSpec
	env.Lookup = c.Lookup

	for _, spec := range c.Morph.Locals() {
		s, err := e.Signals.Build(env, spec)
		if err != nil {
			c.inst.report(err)
			continue
		}
		c.locals[spec.Name] = s
		c.group.Add(signal.DisposeFunc(s.Close))
	}
}

// Lookup finds a signal, local first.
func (c *Candidate) Lookup(name string) (*signal.Signal, bool) {
	if s, have := c.locals[name]; have {
		return s, true
	}
	return c.inst.engine.Signals.Global(name)
}

// IsSignal reports whether name is a signal that this candidate can
// see.
func (c *Candidate) IsSignal(name string) bool {
	if c.Morph.HasSignal(name) {
		return true
	}
	_, have := c.Lookup(name)
	return have
}

// Last returns the last value of a signal.
func (c *Candidate) Last(name string) (core.Value, bool) {
	s, have := c.Lookup(name)
	if !have {
		return core.Value{}, false
	}
	return s.Last()
}

// Routes returns the transitions reachable from the current state:
// those that start there, and bidirectional ones that end there.
func (c *Candidate) Routes() []Route {
	var acc []Route
	for _, t := range c.Morph.Transitions {
		switch {
		case t.States[0] == c.State.Name:
			acc = append(acc, Route{Transition: t})
		case t.Bidirectional && t.States[1] == c.State.Name:
			acc = append(acc, Route{Transition: t, Reversed: true})
		}
	}
	return acc
}

// Keyframe returns the remembered keyframe for a state, if any.
func (c *Candidate) Keyframe(state string) core.VisSpec {
	if kf, have := c.keyframes[state]; have {
		return kf
	}
	e := c.inst.engine
	if e.Store == nil {
		return nil
	}
	kf, err := e.Store.LoadKeyframe(e.Ctx, c.inst.Id, c.Morph.Name, state)
	if err != nil {
		c.inst.report(err)
		return nil
	}
	if kf != nil {
		c.keyframes[state] = kf
	}
	return kf
}

func (c *Candidate) remember(state string, kf core.VisSpec) {
	kf = kf.Copy()
	c.keyframes[state] = kf
	e := c.inst.engine
	if e.Store == nil {
		return
	}
	if err := e.Store.SaveKeyframe(e.Ctx, c.inst.Id, c.Morph.Name, state, kf); err != nil {
		c.inst.report(err)
	}
}

// rebuild replaces the watches with ones for the current routes.
//
// An active transition of this candidate that's still reachable is
// handed to its new watch.  One that isn't is stopped.
func (c *Candidate) rebuild() {
	c.watching.Dispose()
	c.watching = c.group.Group()
	c.watches = nil
	c.routes = c.Routes()

	for _, r := range c.routes {
		w, err := newWatch(c, r.Transition, r.Reversed)
		if err != nil {
			c.inst.report(err)
			continue
		}
		c.watches = append(c.watches, w)
	}

	for _, at := range c.inst.Active() {
		if at.candidate != c {
			continue
		}
		if w := c.watch(at.Name); w != nil && w.reversed == at.Reversed {
			at.watch = w
			continue
		}
		c.inst.logf("stopping %s, which is no longer reachable from %s", at.Name, c.State.Name)
		c.inst.stop(at, false, false)
	}
}

// refresh rebuilds the watches if the routes out of the current
// state have changed since the last rebuild.  Watches that are still
// good keep their condition values.
func (c *Candidate) refresh() {
	routes := c.Routes()
	if len(routes) == len(c.routes) {
		same := true
		for i, r := range routes {
			if r != c.routes[i] {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	c.rebuild()
}

func (c *Candidate) watch(name string) *watch {
	for _, w := range c.watches {
		if w.t.Name == name {
			return w
		}
	}
	return nil
}

// Subscriptions counts the live subscriptions that the candidate
// owns.
func (c *Candidate) Subscriptions() int {
	return c.group.Len()
}

func (c *Candidate) close() {
	c.group.Dispose()
	c.watches = nil
}
