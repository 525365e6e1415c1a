package engine

import (
	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/keyframe"
	"github.com/Comcast/morphs/signal"
)

// Vis is what the engine needs from a running visualization.
//
// ApplyTransition starts animating between the keyframes of the given
// transition, reading progress from at.Progress.  It returns false if
// the visualization can't apply the transition.
//
// StopTransition ends an applied transition.  If commit is true, the
// visualization's spec becomes the final keyframe (goToEnd) or the
// initial keyframe (!goToEnd), and the host should then tell the
// Instance with OnSpecUpdated.
type Vis interface {
	CurrentSpec() core.VisSpec
	ApplyTransition(at *ActiveTransition) bool
	StopTransition(name string, goToEnd, commit bool)
}

// ActiveTransition is an in-flight transition.
//
// The keyframes are always oriented from the transition's first state
// (Initial) to its second state (Final), whichever way the transition
// is being taken.  Progress is likewise 0 at Initial and 1 at Final,
// so a reversed transition's progress runs downwards.
type ActiveTransition struct {
	Name  string `json:"name"`
	Morph string `json:"morph"`

	// From and To are the state names in the direction of travel.
	From string `json:"from"`
	To   string `json:"to"`

	Reversed bool `json:"reversed,omitempty"`

	Changes []keyframe.Change `json:"changes"`

	Initial    core.VisSpec `json:"initial"`
	Final      core.VisSpec `json:"final"`
	RawInitial core.VisSpec `json:"-"`
	RawFinal   core.VisSpec `json:"-"`

	Progress *signal.Signal        `json:"-"`
	Easing   func(float64) float64 `json:"-"`
	Staging  map[string][]float64  `json:"staging,omitempty"`

	DisableGrab bool `json:"disableGrab,omitempty"`

	// Frame is when the transition was applied.
	Frame uint64 `json:"frame"`

	transition *core.Transition
	candidate  *Candidate
	watch      *watch
	group      *signal.Group
}

// Keyframe returns the keyframe that StopTransition with the given
// goToEnd lands on.
func (at *ActiveTransition) Keyframe(goToEnd bool) core.VisSpec {
	if goToEnd {
		return at.Final
	}
	return at.Initial
}

// Target returns the name of the state that StopTransition with the
// given goToEnd lands on.
func (at *ActiveTransition) Target(goToEnd bool) string {
	if goToEnd {
		return at.transition.States[1]
	}
	return at.transition.States[0]
}

// Transition returns the transition's definition.
func (at *ActiveTransition) Transition() *core.Transition {
	return at.transition
}

// Channels returns the names of the channels this transition changes.
func (at *ActiveTransition) Channels() []string {
	return keyframe.Channels(at.Changes)
}

// Hooks get told about lifecycle events.  Any can be nil.
type Hooks struct {
	OnActivate   func(inst *Instance, at *ActiveTransition)
	OnDeactivate func(inst *Instance, at *ActiveTransition, goToEnd, commit bool)
	OnConflict   func(inst *Instance, err *core.TransitionConflict)
	OnError      func(inst *Instance, err error)
}
