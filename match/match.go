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

// Package match implements the state pattern matcher.
//
// A state pattern is a partial visualization spec.  Matching is
// driven by the pattern: only properties that the pattern mentions
// are constrained, so a live spec can match several patterns (from
// several morphs) at once.
//
// Pattern leaves have three flavors:
//
//	null             the live value must be absent or null
//	"*", "this.a.b",
//	"other.c", or a
//	signal name      the live value must be present and non-null
//	anything else    the live value must be present and equal by
//	                 string representation
//
// Maps recurse with the same rules.  Encoding channels are looked up
// case-insensitively.
package match

import (
	"strings"

	"github.com/Comcast/morphs/core"
)

// Bindings maps pattern paths (like "encoding.x.field") to the live
// values that existential leaves matched.
type Bindings map[string]interface{}

type Matcher struct {
	// Ignored properties are never constrained at the top level
	// of a pattern.
	//
	// "name" and "access" belong to the state declaration, and
	// "data" is too big to compare.
	Ignored []string

	// IgnorePose, when true, also ignores "position" and
	// "rotation" at the top level.  These view properties are
	// usually driven continuously by signals, so they aren't
	// meaningful for deciding which state a visualization is in.
	IgnorePose bool

	// EncodingProperty names the map whose keys are compared
	// case-insensitively.
	EncodingProperty string
}

// DefaultMatcher is the matcher used by the package-level functions.
var DefaultMatcher = &Matcher{
	Ignored:          []string{"name", "access", "data"},
	IgnorePose:       true,
	EncodingProperty: "encoding",
}

// Matches is a convenience function that calls DefaultMatcher.Matches.
func Matches(live, pattern map[string]interface{}, isSignal func(string) bool) bool {
	return DefaultMatcher.Matches(live, pattern, isSignal)
}

// Matches reports whether the live spec matches the pattern.
//
// The isSignal function, which can be nil, says whether a string is
// the name of a declared signal.
//
// The result depends only on the arguments.
func (m *Matcher) Matches(live, pattern map[string]interface{}, isSignal func(string) bool) bool {
	_, ok := m.Match(live, pattern, isSignal)
	return ok
}

// Match is Matches that also returns the live values that the
// pattern's existential leaves matched.
func (m *Matcher) Match(live, pattern map[string]interface{}, isSignal func(string) bool) (Bindings, bool) {
	bs := make(Bindings)
	for k, p := range pattern {
		if m.ignored(k) {
			continue
		}
		v, have := live[k]
		caseless := k == m.EncodingProperty
		if !m.match(v, have, p, k, caseless, isSignal, bs) {
			return nil, false
		}
	}
	return bs, true
}

func (m *Matcher) ignored(k string) bool {
	for _, s := range m.Ignored {
		if s == k {
			return true
		}
	}
	if m.IgnorePose && (k == "position" || k == "rotation") {
		return true
	}
	return false
}

// Existential reports whether a pattern leaf only requires presence.
func (m *Matcher) Existential(s string, isSignal func(string) bool) bool {
	if s == core.Wildcard || core.IsReference(s) {
		return true
	}
	return isSignal != nil && isSignal(s)
}

func (m *Matcher) match(live interface{}, have bool, pattern interface{}, path string, caseless bool, isSignal func(string) bool, bs Bindings) bool {
	switch vv := pattern.(type) {
	case nil:
		return !have || live == nil

	case string:
		if m.Existential(vv, isSignal) {
			if !have || live == nil {
				return false
			}
			bs[path] = live
			return true
		}

	case map[string]interface{}:
		var lm map[string]interface{}
		if have && live != nil {
			var is bool
			if lm, is = live.(map[string]interface{}); !is {
				return false
			}
		}
		for k, p := range vv {
			var (
				v  interface{}
				ok bool
			)
			if caseless {
				_, v, ok = core.FindKey(lm, k)
			} else {
				v, ok = lm[k]
			}
			if !m.match(v, ok, p, path+"."+k, false, isSignal, bs) {
				return false
			}
		}
		return true
	}

	if !have || live == nil {
		return false
	}
	return core.Literal(live) == core.Literal(pattern)
}

// Paths lists the dotted paths of the leaves in a pattern.
func Paths(pattern map[string]interface{}) []string {
	var acc []string
	var walk func(prefix string, x interface{})
	walk = func(prefix string, x interface{}) {
		if m, is := x.(map[string]interface{}); is && len(m) > 0 {
			for k, v := range m {
				walk(strings.TrimPrefix(prefix+"."+k, "."), v)
			}
			return
		}
		acc = append(acc, prefix)
	}
	walk("", pattern)
	return acc
}
