package sio

import (
	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/engine"
	"github.com/Comcast/morphs/signal"
)

// RemoteVis is an engine.Vis for a visualization that lives on the
// other side of a Session's couplings.
//
// Applying and stopping transitions become events.  When a stop
// commits, the RemoteVis takes the keyframe as its spec right away
// (the remote side is told the spec in the "stop" event) and tells
// the engine.
type RemoteVis struct {
	Id string

	session *Session
	inst    *engine.Instance
	spec    core.VisSpec
	applied map[string]*engine.ActiveTransition
	subs    map[string]*signal.Subscription
}

// Instance returns the engine's instance for this visualization.
func (v *RemoteVis) Instance() *engine.Instance {
	return v.inst
}

func (v *RemoteVis) CurrentSpec() core.VisSpec {
	return v.spec
}

// SetSpec is how the remote side reports a new spec.
func (v *RemoteVis) SetSpec(spec core.VisSpec) {
	v.spec = spec.Copy()
	v.inst.OnSpecUpdated(v.spec)
}

func (v *RemoteVis) ApplyTransition(at *engine.ActiveTransition) bool {
	v.applied[at.Name] = at
	v.session.emit(&Event{
		Event:       "apply",
		Instance:    v.Id,
		Transition:  at.Name,
		Morph:       at.Morph,
		From:        at.From,
		To:          at.To,
		Reversed:    at.Reversed,
		Changes:     at.Changes,
		Initial:     at.Initial.Copy(),
		Final:       at.Final.Copy(),
		Staging:     at.Staging,
		DisableGrab: at.DisableGrab,
	})

	if v.session.Conf.Progress {
		if v.subs == nil {
			v.subs = make(map[string]*signal.Subscription)
		}
		v.subs[at.Name] = at.Progress.Subscribe(func(x core.Value) {
			p, ok := x.Float()
			if !ok {
				return
			}
			e := &Event{
				Event:      "progress",
				Instance:   v.Id,
				Transition: at.Name,
				Progress:   &p,
			}
			if at.Easing != nil {
				eased := at.Easing(p)
				e.Eased = &eased
			}
			v.session.emit(e)
		})
	}

	return true
}

func (v *RemoteVis) StopTransition(name string, goToEnd, commit bool) {
	if sub, have := v.subs[name]; have {
		sub.Dispose()
		delete(v.subs, name)
	}
	at, have := v.applied[name]
	delete(v.applied, name)

	e := &Event{
		Event:      "stop",
		Instance:   v.Id,
		Transition: name,
		GoToEnd:    goToEnd,
		Commit:     commit,
	}
	commit = commit && have
	if commit {
		v.spec = at.Keyframe(goToEnd).Copy()
		e.Spec = v.spec.Copy()
	}
	v.session.emit(e)

	if commit {
		v.inst.OnSpecUpdated(v.spec)
	}
}
