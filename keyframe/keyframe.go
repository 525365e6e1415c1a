// Package keyframe synthesizes the visualization specs at the two
// ends of a transition.
//
// The live spec is one end.  The other end is computed by applying
// the difference between the two states' patterns to a copy of the
// live spec:
//
//  1. Removal: a property (or encoding channel) that the current
//     state's pattern has but the target pattern lacks (or sets to
//     null) is dropped, unless the target pattern merely doesn't
//     mention it and a stored keyframe for the target state has a
//     value, which is then restored.  "width", "height", and "depth"
//     are never dropped this way.
//  2. Addition: a property the target pattern adds comes from the
//     stored keyframe if there is one, else from the pattern.
//  3. Modification: properties in both are merged.  For encoding
//     channels, a target "field" or "value" replaces both existing
//     "field" and "value".  Arrays are replaced, and nulls remove.
//
// Then null leaves are pruned, and the leaves that came from the
// target pattern are resolved: signal names become the signal's last
// value, "this."/"other." references are looked up, and strings with
// whitespace are evaluated as expressions.
//
// The "data" block never takes part.  It's stripped first and put
// back at the end.
package keyframe

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/util"
)

// Signals is what a Generator needs to know about signals.
type Signals interface {
	IsSignal(name string) bool
	Last(name string) (core.Value, bool)
}

var (
	// NeverRemoved lists the view properties that removal leaves
	// alone so that scale inference stays stable.
	NeverRemoved = []string{"width", "height", "depth"}

	// Ignored are pattern properties that aren't part of a
	// keyframe.
	Ignored = []string{"name", "access", "data"}

	// FieldKey is the channel sub-property that's never
	// evaluated as an expression.  Field names can contain
	// spaces.
	FieldKey = "field"
)

// Generator synthesizes keyframes.
type Generator struct {
	Evaluator core.Evaluator
	Signals   Signals

	// Debug turns on some logging.
	Debug bool
}

func NewGenerator(eval core.Evaluator, signals Signals) *Generator {
	return &Generator{
		Evaluator: eval,
		Signals:   signals,
	}
}

func (g *Generator) logf(format string, args ...interface{}) {
	if g.Debug {
		util.Logf("keyframe "+format, args...)
	}
}

// Keyframes are the two ends of a transition.
type Keyframes struct {
	// Initial and Final are fully resolved.
	Initial core.VisSpec
	Final   core.VisSpec

	// RawInitial and RawFinal are before leaf resolution, so they
	// can contain signal names, references, and expressions.
	RawInitial core.VisSpec
	RawFinal   core.VisSpec

	// Bound lists the dotted paths of leaves that are bound to
	// signals.
	Bound []string
}

// Generate computes the keyframes for a transition from initial to
// final.
//
// When reversed is false, the live spec is the initial keyframe, and
// the final keyframe is synthesized.  When reversed is true, the live
// spec is the final keyframe, and the initial keyframe is
// synthesized.  The history holds previously stored keyframes by
// state name.
func (g *Generator) Generate(ctx context.Context, live core.VisSpec, initial, final *core.State, history map[string]core.VisSpec, reversed bool) (*Keyframes, error) {
	from, to := initial, final
	if reversed {
		from, to = final, initial
	}

	raw, resolved, bound, err := g.Synthesize(ctx, live, from.Pattern, to.Pattern, history[to.Name])
	if err != nil {
		return nil, err
	}

	kf := &Keyframes{
		Bound: bound,
	}
	current := live.Copy()
	if reversed {
		kf.Initial, kf.RawInitial = resolved, raw
		kf.Final, kf.RawFinal = current, current.Copy()
	} else {
		kf.Initial, kf.RawInitial = current, current.Copy()
		kf.Final, kf.RawFinal = resolved, raw
	}
	return kf, nil
}

type leaf struct {
	path []string
	raw  string
}

func (l *leaf) key() string {
	return strings.Join(l.path, ".")
}

type synth struct {
	g        *Generator
	doc      map[string]interface{}
	other    map[string]interface{}
	hist     map[string]interface{}
	leaves   []*leaf
	recorded map[string]bool
}

// Synthesize applies the difference between the from and to
// patterns to the live spec, which should match from.
//
// Returns the synthesized keyframe before and after leaf resolution
// and the paths of signal-bound leaves.
func (g *Generator) Synthesize(ctx context.Context, live core.VisSpec, from, to map[string]interface{}, history core.VisSpec) (core.VisSpec, core.VisSpec, []string, error) {
	base, data := live.WithoutData()
	other, _ := live.WithoutData()

	var hist map[string]interface{}
	if history != nil {
		h, _ := history.WithoutData()
		hist = h
	}

	s := &synth{
		g:        g,
		doc:      base,
		other:    other,
		hist:     hist,
		recorded: make(map[string]bool),
	}

	_, hadEncoding := base["encoding"]

	for _, k := range keys(from, to) {
		if contains(Ignored, k) {
			continue
		}
		fv, fHas := from[k]
		tv, tHas := to[k]
		if k == "encoding" {
			s.encoding(fv, tv, tHas, hadEncoding)
			continue
		}
		s.property(k, fv, fHas, tv, tHas)
	}

	prune(s.doc)
	s.forceSignals(to)

	raw := core.VisSpec(core.Copy(s.doc).(map[string]interface{}))
	bound, err := s.resolve(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	resolved := core.VisSpec(s.doc)
	if data != nil {
		raw["data"] = data
		resolved["data"] = data
	}

	return raw, resolved, bound, nil
}

func (s *synth) isSignal(x interface{}) bool {
	str, is := x.(string)
	return is && s.g.Signals != nil && s.g.Signals.IsSignal(str)
}

func (s *synth) property(k string, fv interface{}, fHas bool, tv interface{}, tHas bool) {
	fromPresent := fHas && fv != nil
	switch {
	case !tHas:
		if !fromPresent || contains(NeverRemoved, k) {
			return
		}
		if hv := s.hist[k]; hv != nil {
			s.doc[k] = core.Copy(hv)
			return
		}
		delete(s.doc, k)
	case tv == nil:
		delete(s.doc, k)
	case tv == core.Wildcard:
	case !fromPresent:
		if hv := s.hist[k]; hv != nil {
			s.doc[k] = core.Copy(hv)
			return
		}
		s.doc[k] = s.take([]string{k}, tv)
	default:
		s.doc[k] = s.merge([]string{k}, s.doc[k], tv)
	}
}

func (s *synth) encoding(fromEnc, toEnc interface{}, tHas bool, hadEncoding bool) {
	if tHas && toEnc == nil {
		delete(s.doc, "encoding")
		return
	}
	if toEnc == core.Wildcard {
		return
	}

	fe, _ := fromEnc.(map[string]interface{})
	te, _ := toEnc.(map[string]interface{})
	he, _ := s.hist["encoding"].(map[string]interface{})
	de, _ := s.doc["encoding"].(map[string]interface{})
	if de == nil {
		de = make(map[string]interface{})
	}

	for _, c := range channels(fe, te) {
		_, fv, fHas := core.FindKey(fe, c)
		tk, tv, tHas := core.FindKey(te, c)
		dk, dv, dHas := core.FindKey(de, c)
		_, hv, _ := core.FindKey(he, c)

		key := tk
		if dHas {
			key = dk
		} else if !tHas {
			key = c
		}
		path := []string{"encoding", key}
		fromPresent := fHas && fv != nil

		switch {
		case !tHas:
			if !fromPresent {
				continue
			}
			if hv != nil {
				de[key] = core.Copy(hv)
				continue
			}
			if dHas {
				delete(de, dk)
			}
		case tv == nil:
			if dHas {
				delete(de, dk)
			}
		case tv == core.Wildcard:
		case !fromPresent:
			if hv != nil {
				de[key] = core.Copy(hv)
				continue
			}
			de[key] = s.take(path, tv)
		default:
			tm, isMap := tv.(map[string]interface{})
			if !isMap {
				de[key] = s.take(path, tv)
				continue
			}
			cm, _ := core.Copy(dv).(map[string]interface{})
			if cm == nil {
				cm = make(map[string]interface{})
			}
			if specifies(tm, "field") || specifies(tm, "value") {
				delete(cm, "field")
				delete(cm, "value")
			}
			de[key] = s.merge(path, cm, tm)
		}
	}

	if len(de) == 0 && !hadEncoding {
		delete(s.doc, "encoding")
		return
	}
	s.doc["encoding"] = de
}

// specifies reports whether a pattern gives a concrete value for a
// key.
func specifies(m map[string]interface{}, k string) bool {
	v, have := m[k]
	return have && v != nil && v != core.Wildcard
}

// take copies a pattern value into the document and records its
// string leaves for resolution.
func (s *synth) take(path []string, x interface{}) interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for _, k := range sortedKeys(vv) {
			v := vv[k]
			if v == core.Wildcard {
				continue
			}
			acc[k] = s.take(extend(path, k), v)
		}
		return acc
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = s.take(extend(path, strconv.Itoa(i)), v)
		}
		return acc
	case string:
		s.record(path, vv)
		return vv
	default:
		return x
	}
}

func (s *synth) record(path []string, raw string) {
	l := &leaf{path: path, raw: raw}
	if s.recorded[l.key()] {
		return
	}
	s.recorded[l.key()] = true
	s.leaves = append(s.leaves, l)
}

// merge overlays a pattern value onto a document value.
func (s *synth) merge(path []string, cur, pat interface{}) interface{} {
	pm, isMap := pat.(map[string]interface{})
	if !isMap {
		if pat == core.Wildcard {
			return cur
		}
		return s.take(path, pat)
	}
	cm, isMap := cur.(map[string]interface{})
	if !isMap {
		cm = make(map[string]interface{})
	}
	for _, k := range sortedKeys(pm) {
		pv := pm[k]
		switch {
		case pv == nil:
			delete(cm, k)
		case pv == core.Wildcard:
		default:
			if _, isMap := pv.(map[string]interface{}); isMap {
				cm[k] = s.merge(extend(path, k), cm[k], pv)
			} else {
				cm[k] = s.take(extend(path, k), pv)
			}
		}
	}
	return cm
}

// forceSignals makes sure every signal-name leaf in the target
// pattern is in the document, overriding anything that came from a
// stored keyframe.
func (s *synth) forceSignals(to map[string]interface{}) {
	var walk func(path []string, x interface{})
	walk = func(path []string, x interface{}) {
		switch vv := x.(type) {
		case map[string]interface{}:
			for _, k := range sortedKeys(vv) {
				key := k
				if len(path) == 1 && path[0] == "encoding" {
					if dk, _, have := core.FindKey(s.doc["encoding"].(map[string]interface{}), k); have {
						key = dk
					}
				}
				walk(extend(path, key), vv[k])
			}
		case string:
			if s.isSignal(vv) {
				if core.SetPath(s.doc, path, vv) {
					s.record(path, vv)
				}
			}
		}
	}
	for _, k := range sortedKeys(to) {
		if contains(Ignored, k) || to[k] == nil {
			// An explicit null has no signals, and the block
			// stays dropped.
			continue
		}
		if k == "encoding" {
			if _, is := s.doc["encoding"].(map[string]interface{}); !is {
				s.doc["encoding"] = map[string]interface{}{}
			}
		}
		walk([]string{k}, to[k])
	}
	if enc, is := s.doc["encoding"].(map[string]interface{}); is && len(enc) == 0 {
		if _, have := s.other["encoding"]; !have {
			delete(s.doc, "encoding")
		}
	}
}

func (s *synth) resolve(ctx context.Context) ([]string, error) {
	var bound []string

	// Signal names first, so that references and expressions see
	// signal values.
	for _, l := range s.leaves {
		if !s.isSignal(l.raw) {
			continue
		}
		bound = append(bound, l.key())
		v, have := s.g.Signals.Last(l.raw)
		if !have {
			s.g.logf("signal %s at %s has no value yet", l.raw, l.key())
			continue
		}
		core.SetPath(s.doc, l.path, v.Native())
	}

	// Every reference leaf is marked as resolving.  A reference
	// whose target is (or contains, or is inside) a marked leaf
	// chains.
	resolving := make(map[string]bool)
	for _, l := range s.leaves {
		if core.IsReference(l.raw) && !s.isSignal(l.raw) {
			resolving[l.key()] = true
		}
	}
	snapshot := core.Copy(s.doc).(map[string]interface{})
	for _, l := range s.leaves {
		if !resolving[l.key()] {
			continue
		}
		src, rest := snapshot, strings.TrimPrefix(l.raw, "this.")
		if strings.HasPrefix(l.raw, "other.") {
			src, rest = s.other, strings.TrimPrefix(l.raw, "other.")
		}
		target := core.SplitPath(rest)
		if strings.HasPrefix(l.raw, "this.") && chains(resolving, strings.Join(target, ".")) {
			return nil, &core.ChainedReference{Path: l.key(), Target: l.raw}
		}
		x, have := core.GetPath(src, target)
		if !have {
			return nil, &core.MissingReference{Path: l.key(), Target: l.raw}
		}
		core.SetPath(s.doc, l.path, core.Copy(x))
	}

	for _, l := range s.leaves {
		if resolving[l.key()] || s.isSignal(l.raw) {
			continue
		}
		if l.path[len(l.path)-1] == FieldKey || !strings.ContainsAny(l.raw, " \t\n") {
			continue
		}
		x, err := s.evaluate(ctx, l.raw)
		if err != nil {
			s.g.logf("expression %q at %s: %s", l.raw, l.key(), err)
			continue
		}
		core.SetPath(s.doc, l.path, x)
	}

	return bound, nil
}

func (s *synth) evaluate(ctx context.Context, expr string) (interface{}, error) {
	if s.g.Evaluator == nil {
		return nil, core.NoEvaluator
	}
	vars := make(map[string]interface{})
	if s.g.Signals != nil {
		for _, id := range core.Identifiers(expr) {
			if !s.g.Signals.IsSignal(id) {
				continue
			}
			if v, have := s.g.Signals.Last(id); have {
				vars[id] = v.Native()
			}
		}
	}
	x, err := s.g.Evaluator.Evaluate(ctx, expr, vars)
	if err != nil {
		return nil, err
	}
	return core.Canonicalize(x)
}

func chains(resolving map[string]bool, target string) bool {
	for p := range resolving {
		if p == target || strings.HasPrefix(p, target+".") || strings.HasPrefix(target, p+".") {
			return true
		}
	}
	return false
}

// prune removes null leaves everywhere.
func prune(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		for k, v := range vv {
			if v == nil {
				delete(vv, k)
				continue
			}
			vv[k] = prune(v)
		}
		return vv
	case []interface{}:
		acc := vv[:0]
		for _, v := range vv {
			if v == nil {
				continue
			}
			acc = append(acc, prune(v))
		}
		return acc
	}
	return x
}

func keys(ms ...map[string]interface{}) []string {
	seen := make(map[string]bool)
	var acc []string
	for _, m := range ms {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				acc = append(acc, k)
			}
		}
	}
	sort.Strings(acc)
	return acc
}

func sortedKeys(m map[string]interface{}) []string {
	return keys(m)
}

// channels returns the lower-cased union of channel names.
func channels(ms ...map[string]interface{}) []string {
	seen := make(map[string]bool)
	var acc []string
	for _, m := range ms {
		for k := range m {
			c := strings.ToLower(k)
			if !seen[c] {
				seen[c] = true
				acc = append(acc, c)
			}
		}
	}
	sort.Strings(acc)
	return acc
}

func contains(xs []string, x string) bool {
	for _, y := range xs {
		if x == y {
			return true
		}
	}
	return false
}

func extend(path []string, k string) []string {
	acc := make([]string, len(path)+1)
	copy(acc, path)
	acc[len(path)] = k
	return acc
}
