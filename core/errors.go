package core

// Specification errors are reported when morphs are loaded.  Runtime
// errors (InvariantViolation, TransitionConflict, ChainedReference)
// abort a single operation.
//
// Probably should have a type just for user errors.

import (
	"errors"
	"fmt"
	"strings"
)

// BadMorph occurs when a Morph is structurally invalid: too few
// states, no transitions, a signal without a name, etc.
type BadMorph struct {
	Morph  string
	Reason string
}

func (e *BadMorph) Error() string {
	return `morph "` + e.Morph + `" invalid: ` + e.Reason
}

// UnknownState occurs when a transition refers to a state that the
// Morph doesn't declare.
type UnknownState struct {
	Morph      string
	Transition string
	State      string
}

func (e *UnknownState) Error() string {
	return `state "` + e.State + `" in transition "` + e.Transition + `" not found in morph "` + e.Morph + `"`
}

// DuplicateTransition occurs when two morphs in the same loaded set
// (or one morph) declare transitions with the same name.
type DuplicateTransition struct {
	Morph      string
	Transition string
	Other      string
}

func (e *DuplicateTransition) Error() string {
	return `transition "` + e.Transition + `" in morph "` + e.Morph + `" already declared by morph "` + e.Other + `"`
}

// UnknownSignal occurs when a trigger or a timing control refers to a
// signal that is neither local to the candidate nor global.
type UnknownSignal struct {
	Transition string
	Signal     string
}

func (e *UnknownSignal) Error() string {
	return `signal "` + e.Signal + `" used by transition "` + e.Transition + `" not found`
}

// UnknownSource occurs when a signal declares a source that no
// registered provider can serve.
type UnknownSource struct {
	Signal string
	Source string
}

func (e *UnknownSource) Error() string {
	return `no provider for source "` + e.Source + `" of signal "` + e.Signal + `"`
}

// InvariantViolation reports an attempt to activate a transition that
// is already active or to deactivate one that isn't.
type InvariantViolation struct {
	Transition string
	Op         string
	Reason     string
}

func (e *InvariantViolation) Error() string {
	return e.Op + ` of transition "` + e.Transition + `" refused: ` + e.Reason
}

// TransitionConflict occurs when a transition would change a channel
// (or pose axis) that another active transition is already changing.
type TransitionConflict struct {
	Transition string
	Active     string
	Channels   []string
}

func (e *TransitionConflict) Error() string {
	return fmt.Sprintf(`transition "%s" conflicts with active "%s" on %s`,
		e.Transition, e.Active, strings.Join(e.Channels, ","))
}

// ChainedReference occurs when a this./other. reference resolves to
// a value that is itself a reference (including a reference to
// itself).
type ChainedReference struct {
	Path   string
	Target string
}

func (e *ChainedReference) Error() string {
	return `reference at "` + e.Path + `" to "` + e.Target + `" chains to another reference`
}

// MissingReference occurs when a this./other. reference doesn't
// resolve to anything.
type MissingReference struct {
	Path   string
	Target string
}

func (e *MissingReference) Error() string {
	return `reference at "` + e.Path + `" to "` + e.Target + `" not found`
}

// UnresolvedVariable is returned by an Evaluator when an expression
// refers to a variable that isn't bound.
type UnresolvedVariable struct {
	Expr string
	Name string
}

func (e *UnresolvedVariable) Error() string {
	return `unresolved variable "` + e.Name + `" in "` + e.Expr + `"`
}

// IsUnresolved reports whether err is (or wraps) an
// UnresolvedVariable.
func IsUnresolved(err error) bool {
	var u *UnresolvedVariable
	return errors.As(err, &u)
}

// UnconvertibleValue occurs when a Go value can't be represented as
// a Value.
type UnconvertibleValue struct {
	X interface{}
}

func (e *UnconvertibleValue) Error() string {
	return fmt.Sprintf("can't convert %#v (%T) to a signal value", e.X, e.X)
}

// NoEvaluator is returned when an expression needs evaluating but
// nobody provided an Evaluator.
var NoEvaluator = errors.New("no evaluator")
