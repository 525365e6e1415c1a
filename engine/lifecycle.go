package engine

import (
	"log"
	"sort"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/keyframe"
	"github.com/Comcast/morphs/signal"
)

// Phase is where a transition is in its lifecycle.
type Phase int

const (
	Inactive Phase = iota
	PendingActivation
	Active
	PendingDeactivation
)

var phaseNames = []string{"inactive", "pending-activation", "active", "pending-deactivation"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// condition is one of a transition's activation conditions.
type condition struct {
	signal  string
	negated bool
	control bool
	value   core.Value
	known   bool
}

// holds reports whether the condition is currently true.  A control
// condition holds while its value is strictly between 0 and 1.
func (c *condition) holds() bool {
	if !c.known {
		return false
	}
	if c.control {
		f, ok := c.value.Float()
		return ok && 0 < f && f < 1
	}
	return c.value.Truthy() != c.negated
}

// watch follows the conditions of one route out of a candidate's
// state.
//
// Signal emissions only record values.  The conditions are evaluated
// once at the end of the frame, after every signal has settled.
type watch struct {
	c        *Candidate
	t        *core.Transition
	reversed bool
	group    *signal.Group

	conds     []*condition
	scheduled bool
}

func newWatch(c *Candidate, t *core.Transition, reversed bool) (*watch, error) {
	w := &watch{
		c:        c,
		t:        t,
		reversed: reversed,
		group:    c.watching.Group(),
	}
	if ctl := t.Control(); ctl != "" {
		w.conds = append(w.conds, &condition{
			signal:  ctl,
			control: true,
		})
	}
	for _, trigger := range t.Triggers {
		name, negated := core.Trigger(trigger)
		w.conds = append(w.conds, &condition{
			signal:  name,
			negated: negated,
		})
	}

	sigs := make([]*signal.Signal, len(w.conds))
	for i, cond := range w.conds {
		s, have := c.Lookup(cond.signal)
		if !have {
			w.group.Dispose()
			return nil, &core.UnknownSignal{
				Transition: t.Name,
				Signal:     cond.signal,
			}
		}
		sigs[i] = s
	}

	for i, s := range sigs {
		cond := w.conds[i]
		w.group.Subscribe(s, func(v core.Value) {
			cond.value, cond.known = v, true
			w.schedule()
		})
	}

	if len(w.conds) == 0 {
		// Nothing will ever emit, and no conditions always hold.
		w.schedule()
	}

	return w, nil
}

func (w *watch) schedule() {
	if w.scheduled {
		return
	}
	w.scheduled = true
	w.c.inst.engine.Scheduler.AtEndOfFrame(w.evaluate)
}

func (w *watch) holds() bool {
	for _, c := range w.conds {
		if !c.holds() {
			return false
		}
	}
	return true
}

// from and to return the states in the direction of travel.
func (w *watch) from() string {
	if w.reversed {
		return w.t.States[1]
	}
	return w.t.States[0]
}

func (w *watch) to() string {
	if w.reversed {
		return w.t.States[0]
	}
	return w.t.States[1]
}

func (w *watch) evaluate() {
	w.scheduled = false
	if w.group.Disposed() {
		return
	}
	inst := w.c.inst
	name := w.t.Name
	all := w.holds()
	if !all {
		// Rearmed.
		delete(inst.disarmed, name)
	}

	switch inst.phases[name] {
	case Inactive:
		if all && !inst.disarmed[name] {
			inst.queueActivation(w)
		}
	case PendingActivation:
		if !all {
			inst.cancel(name)
		}
	case Active:
		at := inst.active[name]
		if all || at == nil || at.watch != w {
			return
		}
		if goToEnd, stop := w.interrupted(); stop {
			inst.queueDeactivation(name, goToEnd, true)
		}
	}
}

// interrupted decides what happens when an active transition's
// conditions stop holding.
//
// A control value at or past either end lands on that end.  Otherwise
// a trigger failed: "ignore" keeps the transition going, "reset" goes
// to the interrupt's value ("end" is the destination), and without
// an interrupt policy the transition goes back to where it started.
func (w *watch) interrupted() (goToEnd bool, stop bool) {
	for _, c := range w.conds {
		if !c.control || !c.known {
			continue
		}
		if f, ok := c.value.Float(); ok {
			switch {
			case 1 <= f:
				return true, true
			case f <= 0:
				return false, true
			}
		}
	}
	if w.t.Ignores() {
		return false, false
	}
	if i := w.t.Interrupt; i != nil && i.Control == "reset" {
		return (i.Value == "end") != w.reversed, true
	}
	return w.reversed, true
}

// action is a queued activation or deactivation.
type action struct {
	name     string
	activate bool
	watch    *watch
	goToEnd  bool
	commit   bool
	priority int
	seq      int
}

func (inst *Instance) enqueue(a *action) {
	inst.seq++
	a.seq = inst.seq
	inst.pending[a.name] = a
	if !inst.scheduled {
		inst.scheduled = true
		inst.engine.Scheduler.AtResolution(inst.resolve)
	}
}

func (inst *Instance) queueActivation(w *watch) {
	name := w.t.Name
	if inst.phases[name] != Inactive {
		return
	}
	inst.phases[name] = PendingActivation
	inst.enqueue(&action{
		name:     name,
		activate: true,
		watch:    w,
		priority: w.t.Priority,
	})
}

func (inst *Instance) queueDeactivation(name string, goToEnd, commit bool) {
	switch inst.phases[name] {
	case PendingActivation:
		inst.cancel(name)
		return
	case Active:
	default:
		return
	}
	at := inst.active[name]
	inst.phases[name] = PendingDeactivation
	inst.enqueue(&action{
		name:     name,
		goToEnd:  goToEnd,
		commit:   commit,
		priority: at.transition.Priority,
	})
}

func (inst *Instance) cancel(name string) {
	delete(inst.pending, name)
	delete(inst.phases, name)
}

// Start queues the activation of a transition that's reachable from a
// candidate's state, whatever its conditions say.
func (inst *Instance) Start(name string) error {
	if p := inst.phases[name]; p != Inactive {
		return &core.InvariantViolation{
			Transition: name,
			Op:         "activation",
			Reason:     "transition is " + p.String(),
		}
	}
	for _, c := range inst.Candidates() {
		if w := c.watch(name); w != nil {
			inst.queueActivation(w)
			return nil
		}
	}
	return &core.InvariantViolation{
		Transition: name,
		Op:         "activation",
		Reason:     "not reachable",
	}
}

// Stop queues the deactivation of an active transition, committing
// to the given end.
func (inst *Instance) Stop(name string, goToEnd bool) error {
	if p := inst.phases[name]; p != Active {
		return &core.InvariantViolation{
			Transition: name,
			Op:         "deactivation",
			Reason:     "transition is " + p.String(),
		}
	}
	inst.queueDeactivation(name, goToEnd, true)
	return nil
}

// resolve runs the queued actions: deactivations first (since they
// commit changes that activations read), then activations.  Within
// each group, higher priority goes first, and then the order of
// queuing.
func (inst *Instance) resolve() {
	inst.scheduled = false
	if inst.closed {
		return
	}

	acts := make([]*action, 0, len(inst.pending))
	for _, a := range inst.pending {
		acts = append(acts, a)
	}
	inst.pending = make(map[string]*action)
	sort.Slice(acts, func(i, j int) bool {
		a, b := acts[i], acts[j]
		if a.activate != b.activate {
			return !a.activate
		}
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		return a.seq < b.seq
	})

	inst.resolving = true
	for _, a := range acts {
		var err error
		if a.activate {
			if inst.phases[a.name] != PendingActivation {
				continue
			}
			err = inst.activate(a.watch)
		} else {
			if inst.phases[a.name] != PendingDeactivation {
				continue
			}
			err = inst.deactivate(a.name, a.goToEnd, a.commit)
		}
		if err != nil {
			inst.report(err)
		}
	}
	inst.resolving = false

	if inst.recheck && len(inst.pending) == 0 {
		inst.recheck = false
		inst.check(inst.Vis.CurrentSpec())
	}
}

// activate computes the keyframes for a route and hands the
// transition to the visualization.
func (inst *Instance) activate(w *watch) error {
	name := w.t.Name
	if _, have := inst.active[name]; have {
		return &core.InvariantViolation{
			Transition: name,
			Op:         "activation",
			Reason:     "already active",
		}
	}
	delete(inst.phases, name)

	e := inst.engine
	c := w.c
	if w.group.Disposed() || inst.candidates[c.Morph.Name] != c {
		inst.logf("dropping stale activation of %s", name)
		return nil
	}

	from, _ := c.Morph.State(w.from())
	spec := inst.Vis.CurrentSpec()
	if !e.Matches(spec, c.Morph, from) {
		inst.logf("dropping activation of %s: no longer in %s", name, from.Name)
		return nil
	}

	initial, _ := c.Morph.State(w.t.States[0])
	final, _ := c.Morph.State(w.t.States[1])
	history := make(map[string]core.VisSpec)
	if kf := c.Keyframe(w.to()); kf != nil {
		history[w.to()] = kf
	}

	g := keyframe.NewGenerator(e.Evaluator, c)
	g.Debug = inst.Debug
	kf, err := g.Generate(e.Ctx, spec, initial, final, history, w.reversed)
	if err != nil {
		return err
	}

	changes := keyframe.Changes(kf.Initial, kf.Final, kf.Bound...)
	for _, other := range inst.Active() {
		if shared := keyframe.Overlap(other.Changes, changes); 0 < len(shared) {
			return &core.TransitionConflict{
				Transition: name,
				Active:     other.Name,
				Channels:   shared,
			}
		}
	}

	at := &ActiveTransition{
		Name:        name,
		Morph:       c.Morph.Name,
		From:        w.from(),
		To:          w.to(),
		Reversed:    w.reversed,
		Changes:     changes,
		Initial:     kf.Initial,
		Final:       kf.Final,
		RawInitial:  kf.RawInitial,
		RawFinal:    kf.RawFinal,
		Staging:     w.t.Staging,
		DisableGrab: w.t.DisableGrab,
		Frame:       e.Scheduler.Frame(),
		transition:  w.t,
		candidate:   c,
		watch:       w,
		group:       signal.NewGroup(),
	}

	if easing := w.t.Easing(); easing != "" {
		fn, ok := signal.Easing(easing)
		if !ok {
			log.Printf("warning: transition %s has unknown easing %q", name, easing)
		}
		at.Easing = fn
	}

	if at.Progress, err = inst.progress(at); err != nil {
		at.group.Dispose()
		return err
	}

	if !inst.Vis.ApplyTransition(at) {
		at.group.Dispose()
		return &core.InvariantViolation{
			Transition: name,
			Op:         "activation",
			Reason:     "refused by the visualization",
		}
	}

	c.remember(initial.Name, kf.Initial)
	c.remember(final.Name, kf.Final)

	inst.active[name] = at
	inst.phases[name] = Active
	inst.logf("activated %s (%s to %s) changing %v", name, at.From, at.To, at.Channels())

	if h := e.Hooks.OnActivate; h != nil {
		h(inst, at)
	}

	return nil
}

// progress makes the transition's progress source.
//
// With a timing control signal, progress follows that signal (clamped
// to [0,1]).  Otherwise a timer runs for the transition's duration
// and then queues the deactivation, landing where timing.elapsed says
// (flipped for a reversed transition).
func (inst *Instance) progress(at *ActiveTransition) (*signal.Signal, error) {
	t := at.transition
	name := t.Name + ".progress"

	if ctl := t.Control(); ctl != "" {
		s, have := at.candidate.Lookup(ctl)
		if !have {
			return nil, &core.UnknownSignal{
				Transition: t.Name,
				Signal:     ctl,
			}
		}
		p := signal.New(name, func(emit func(core.Value)) func() {
			sub := at.group.Subscribe(s, func(v core.Value) {
				if f, ok := v.Float(); ok {
					emit(core.NumberValue(clamp(f)))
				}
			})
			return sub.Dispose
		})
		at.group.Add(signal.DisposeFunc(p.Close))
		return p, nil
	}

	d := time.Duration(t.Duration() * float64(time.Second))
	goToEnd := t.ElapsedAtEnd() != at.Reversed
	p := signal.Timer(name, inst.engine.Scheduler, d, at.Reversed, func() {
		inst.logf("%s timer done", t.Name)
		inst.queueDeactivation(t.Name, goToEnd, true)
	})
	at.group.Add(signal.DisposeFunc(p.Close))
	return p, nil
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case 1 < f:
		return 1
	}
	return f
}

func (inst *Instance) deactivate(name string, goToEnd, commit bool) error {
	at, have := inst.active[name]
	if !have {
		delete(inst.phases, name)
		return &core.InvariantViolation{
			Transition: name,
			Op:         "deactivation",
			Reason:     "not active",
		}
	}
	inst.stop(at, goToEnd, commit)
	return nil
}

// stop ends an active transition right now.
//
// When committing, the candidate's state becomes the state the
// transition landed on, and the instance re-matches after the current
// resolution.
func (inst *Instance) stop(at *ActiveTransition, goToEnd, commit bool) {
	delete(inst.active, at.Name)
	delete(inst.phases, at.Name)
	delete(inst.pending, at.Name)
	inst.disarmed[at.Name] = true

	inst.Vis.StopTransition(at.Name, goToEnd, commit)
	at.group.Dispose()

	inst.logf("deactivated %s goToEnd=%v commit=%v", at.Name, goToEnd, commit)

	if commit {
		c := at.candidate
		if target, have := c.Morph.State(at.Target(goToEnd)); have && inst.candidates[c.Morph.Name] == c && c.State != target {
			c.State = target
			c.rebuild()
		}
		if inst.resolving {
			inst.recheck = true
		} else {
			inst.CheckForMorphs()
		}
	}

	if h := inst.engine.Hooks.OnDeactivate; h != nil {
		h(inst, at, goToEnd, commit)
	}
}
