package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

var (
	// DefaultDuration is the duration (in seconds) of a timer-driven
	// transition that doesn't specify one.
	DefaultDuration = 1.0

	// DefaultElapsed is the end a timer-driven transition commits
	// to when its timer runs out and the transition doesn't say.
	DefaultElapsed = "end"

	// Wildcard is the pattern value that matches any non-null
	// value.
	Wildcard = "*"
)

// Morph is a declarative bundle of states, signals, and transitions
// describing one family of animatable behavior.
//
// A Morph should be Compiled before use.
type Morph struct {
	// Name is the identifier for this morph.  Must be unique
	// within a loaded set.
	Name string `json:"name"`

	// Doc is optional Markdown documentation.
	Doc string `json:"doc,omitempty"`

	// States are the partial-spec patterns, in declaration order.
	States []*State `json:"states"`

	// Signals declares the named reactive values that the states
	// and transitions use.
	Signals []*SignalSpec `json:"signals,omitempty"`

	// Transitions are the named paths between states.
	Transitions []*Transition `json:"transitions"`

	locals   []*SignalSpec
	compiled bool
}

// State is a named partial visualization spec.
//
// A State is both a match predicate and a keyframe template.
type State struct {
	Name string

	// Access, when explicitly false, makes this state private:
	// the state isn't considered when a morph first becomes a
	// candidate.
	Access *bool

	// Pattern is everything other than "name" and "access".
	Pattern map[string]interface{}
}

// Private reports whether the state is hidden from initial
// matching.
func (s *State) Private() bool {
	return s.Access != nil && !*s.Access
}

func (s *State) UnmarshalJSON(bs []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(bs, &m); err != nil {
		return err
	}
	if x, have := m["name"]; have {
		name, is := x.(string)
		if !is {
			return &BadMorph{Reason: "state name is not a string"}
		}
		s.Name = name
		delete(m, "name")
	}
	if x, have := m["access"]; have {
		b, is := x.(bool)
		if !is {
			return &BadMorph{Reason: `state "` + s.Name + `" has non-boolean access`}
		}
		s.Access = &b
		delete(m, "access")
	}
	s.Pattern = m
	return nil
}

func (s *State) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(s.Pattern)+2)
	for k, v := range s.Pattern {
		m[k] = v
	}
	m["name"] = s.Name
	if s.Access != nil {
		m["access"] = *s.Access
	}
	return json.Marshal(m)
}

// SignalSpec declares a named signal.
//
// A signal either has a Source (a provider capability like "input",
// "constant", "object", "vis", "mqtt") or an Expression over other
// signals.
type SignalSpec struct {
	Name string `json:"name"`

	// Source names the provider.
	Source string `json:"source,omitempty"`

	// Target is provider-specific: an object name, a property
	// path, a topic.
	Target string `json:"target,omitempty"`

	// Value is an initial (or constant) value.
	Value interface{} `json:"value,omitempty"`

	// Expression, if given, derives this signal from others.
	Expression string `json:"expression,omitempty"`

	// Params holds additional provider-specific parameters.
	Params map[string]interface{} `json:"params,omitempty"`
}

// Local reports whether this signal lives with one visualization
// instance rather than in the global table.
func (s *SignalSpec) Local() bool {
	return s.Expression != "" || s.Source == "vis"
}

// Param returns the named string parameter or the given default.
func (s *SignalSpec) Param(name, def string) string {
	if s.Params == nil {
		return def
	}
	switch vv := s.Params[name].(type) {
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	}
	return def
}

// Timing says how a transition's progress is driven.
type Timing struct {
	// Control is the name of a signal that acts as 0..1
	// progress.
	Control string `json:"control,omitempty"`

	// Duration in seconds for a timer-driven transition.
	Duration float64 `json:"duration,omitempty"`

	// Elapsed is "end" or "start": where a timer-driven
	// transition lands when the timer runs out.
	Elapsed string `json:"elapsed,omitempty"`

	// Easing names an easing function ("linear", "inOutQuad",
	// ...).
	Easing string `json:"easing,omitempty"`
}

// Interrupt is the policy for when triggers fail mid-transition.
type Interrupt struct {
	// Control is "reset" or "ignore".
	Control string `json:"control,omitempty"`

	// Value is "start" or "end" for "reset".
	Value string `json:"value,omitempty"`
}

// Transition is a named path between two states.
type Transition struct {
	Name string `json:"name"`

	// States is exactly [from, to].
	States []string `json:"states"`

	// Bidirectional transitions can also be taken from to to
	// from.
	Bidirectional bool `json:"bidirectional,omitempty"`

	// Triggers are names of boolean signals.  A leading "!"
	// negates.
	Triggers []string `json:"triggers,omitempty"`

	Timing *Timing `json:"timing,omitempty"`

	// Priority orders queued actions within a frame.  Higher
	// goes first.
	Priority int `json:"priority,omitempty"`

	// Staging maps a channel to a [start,end] sub-range of
	// progress.
	Staging map[string][]float64 `json:"staging,omitempty"`

	Interrupt *Interrupt `json:"interrupt,omitempty"`

	// DisableGrab tells the visualization not to let users grab
	// it while this transition is active.
	DisableGrab bool `json:"disable-grab,omitempty"`
}

// Control returns the name of the timing control signal if any.
func (t *Transition) Control() string {
	if t.Timing == nil {
		return ""
	}
	return t.Timing.Control
}

// Duration returns the timer duration in seconds.
func (t *Transition) Duration() float64 {
	if t.Timing == nil || t.Timing.Duration <= 0 {
		return DefaultDuration
	}
	return t.Timing.Duration
}

// ElapsedAtEnd reports whether an expired timer should land on the
// transition's destination.
func (t *Transition) ElapsedAtEnd() bool {
	e := DefaultElapsed
	if t.Timing != nil && t.Timing.Elapsed != "" {
		e = t.Timing.Elapsed
	}
	return e == "end"
}

// Easing returns the easing name, which might be empty.
func (t *Transition) Easing() string {
	if t.Timing == nil {
		return ""
	}
	return t.Timing.Easing
}

// Ignores reports whether trigger failures are ignored while
// active.
func (t *Transition) Ignores() bool {
	return t.Interrupt != nil && t.Interrupt.Control == "ignore"
}

// Trigger parses a trigger into a signal name and a negation flag.
func Trigger(trigger string) (string, bool) {
	trigger = strings.TrimSpace(trigger)
	if strings.HasPrefix(trigger, "!") {
		return strings.TrimSpace(trigger[1:]), true
	}
	return trigger, false
}

// Compile validates the morph and canonicalizes its patterns.
func (m *Morph) Compile() error {
	bad := func(reason string) error {
		return &BadMorph{Morph: m.Name, Reason: reason}
	}

	if m.Name == "" {
		return bad("no name")
	}
	if len(m.States) < 2 {
		return bad("need at least two states")
	}
	if len(m.Transitions) < 1 {
		return bad("need at least one transition")
	}

	states := make(map[string]bool, len(m.States))
	for _, s := range m.States {
		if s == nil || s.Name == "" {
			return bad("state without a name")
		}
		if states[s.Name] {
			return bad(`duplicate state "` + s.Name + `"`)
		}
		states[s.Name] = true
		if s.Pattern == nil {
			s.Pattern = map[string]interface{}{}
		}
		x, err := Canonicalize(s.Pattern)
		if err != nil {
			return err
		}
		p, is := x.(map[string]interface{})
		if !is {
			return bad(`state "` + s.Name + `" pattern isn't an object`)
		}
		s.Pattern = p
	}

	signals := make(map[string]bool, len(m.Signals))
	for _, s := range m.Signals {
		if s == nil || s.Name == "" {
			return bad("signal without a name")
		}
		if s.Source == "" && s.Expression == "" {
			return bad(`signal "` + s.Name + `" needs a source or an expression`)
		}
		if signals[s.Name] {
			return bad(`duplicate signal "` + s.Name + `"`)
		}
		signals[s.Name] = true
		if s.Value != nil {
			x, err := Canonicalize(s.Value)
			if err != nil {
				return err
			}
			s.Value = x
		}
	}

	locals, err := m.orderLocals()
	if err != nil {
		return err
	}
	m.locals = locals

	transitions := make(map[string]bool, len(m.Transitions))
	for _, t := range m.Transitions {
		if t == nil || t.Name == "" {
			return bad("transition without a name")
		}
		if transitions[t.Name] {
			return &DuplicateTransition{
				Morph:      m.Name,
				Transition: t.Name,
				Other:      m.Name,
			}
		}
		transitions[t.Name] = true
		if len(t.States) != 2 {
			return bad(`transition "` + t.Name + `" needs exactly two states`)
		}
		for _, name := range t.States {
			if !states[name] {
				return &UnknownState{
					Morph:      m.Name,
					Transition: t.Name,
					State:      name,
				}
			}
		}
		for _, trigger := range t.Triggers {
			if name, _ := Trigger(trigger); name == "" {
				return bad(`transition "` + t.Name + `" has an empty trigger`)
			}
		}
		if t.Timing != nil {
			if t.Timing.Duration < 0 {
				return bad(`transition "` + t.Name + `" has a negative duration`)
			}
			switch t.Timing.Elapsed {
			case "", "end", "start":
			default:
				return bad(`transition "` + t.Name + `" has bad elapsed "` + t.Timing.Elapsed + `"`)
			}
		}
		if t.Interrupt != nil {
			switch t.Interrupt.Control {
			case "", "reset", "ignore":
			default:
				return bad(`transition "` + t.Name + `" has bad interrupt control "` + t.Interrupt.Control + `"`)
			}
			switch t.Interrupt.Value {
			case "", "start", "end":
			default:
				return bad(`transition "` + t.Name + `" has bad interrupt value "` + t.Interrupt.Value + `"`)
			}
		}
		for channel, r := range t.Staging {
			if len(r) != 2 || r[0] < 0 || r[1] > 1 || r[0] >= r[1] {
				return bad(`transition "` + t.Name + `" has bad staging for "` + channel + `"`)
			}
		}
	}

	m.compiled = true

	return nil
}

// orderLocals puts the local signals in an order where every
// expression comes after the local expressions it mentions.  "vis"
// signals go first.  A cycle among expressions is a BadMorph.
func (m *Morph) orderLocals() ([]*SignalSpec, error) {
	var (
		acc   []*SignalSpec
		exprs = make(map[string]*SignalSpec)
		state = make(map[string]int) // 1: visiting, 2: done
	)
	for _, s := range m.Signals {
		switch {
		case s.Expression != "":
			exprs[s.Name] = s
		case s.Local():
			acc = append(acc, s)
		}
	}

	var visit func(s *SignalSpec, path []string) error
	visit = func(s *SignalSpec, path []string) error {
		switch state[s.Name] {
		case 1:
			return &BadMorph{
				Morph:  m.Name,
				Reason: "signal cycle " + strings.Join(append(path, s.Name), " -> "),
			}
		case 2:
			return nil
		}
		state[s.Name] = 1
		path = append(path, s.Name)
		for _, id := range Identifiers(s.Expression) {
			dep, have := exprs[id]
			if !have || id == s.Name {
				continue
			}
			if err := visit(dep, path); err != nil {
				return err
			}
		}
		state[s.Name] = 2
		acc = append(acc, s)
		return nil
	}

	for _, s := range m.Signals {
		if s.Expression == "" {
			continue
		}
		if err := visit(s, nil); err != nil {
			return nil, err
		}
	}

	return acc, nil
}

// Locals returns the morph's local signals in build order.  Call
// after Compile.
func (m *Morph) Locals() []*SignalSpec {
	return m.locals
}

// Compiled reports whether Compile succeeded.
func (m *Morph) Compiled() bool {
	return m.compiled
}

// State finds the named state.
func (m *Morph) State(name string) (*State, bool) {
	for _, s := range m.States {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Signal finds the named signal declaration.
func (m *Morph) Signal(name string) (*SignalSpec, bool) {
	for _, s := range m.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// HasSignal reports whether the morph declares the named signal.
func (m *Morph) HasSignal(name string) bool {
	_, have := m.Signal(name)
	return have
}

// Transition finds the named transition.
func (m *Morph) Transition(name string) (*Transition, bool) {
	for _, t := range m.Transitions {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
