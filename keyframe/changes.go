package keyframe

import (
	"sort"
	"strings"

	"github.com/Comcast/morphs/core"
)

// PoseAxes are the view properties that at most one active
// transition can change at a time.  They are independent of each
// other.
var PoseAxes = []string{"position", "rotation"}

// Change says what a transition does to one channel.
//
// Channel is an encoding channel name or a top-level view property
// like "width" or "position".  Initial and Final are the values at
// each end, and either can be nil (absent).
type Change struct {
	Channel string      `json:"channel"`
	Initial interface{} `json:"initial,omitempty"`
	Final   interface{} `json:"final,omitempty"`
}

// Changes computes the change set between two keyframes.
//
// Encoding channels that differ produce one Change each.  Top-level
// properties (other than "encoding" and "data") that differ also
// produce a Change.  The bound paths (see Keyframes.Bound) also count
// as changes even when the two ends happen to agree right now, since
// their values can move while the transition runs.
func Changes(initial, final core.VisSpec, bound ...string) []Change {
	var acc []Change
	seen := make(map[string]bool)
	add := func(channel string, i, f interface{}) {
		c := strings.ToLower(channel)
		if seen[c] {
			return
		}
		seen[c] = true
		acc = append(acc, Change{
			Channel: channel,
			Initial: i,
			Final:   f,
		})
	}

	ie, fe := initial.Encoding(), final.Encoding()
	for _, c := range channels(ie, fe) {
		ik, iv, _ := core.FindKey(ie, c)
		fk, fv, _ := core.FindKey(fe, c)
		if core.Literal(iv) == core.Literal(fv) {
			continue
		}
		name := fk
		if name == "" {
			name = ik
		}
		add(name, iv, fv)
	}

	for _, k := range keys(initial, final) {
		if k == "encoding" || k == "data" || contains(Ignored, k) {
			continue
		}
		iv, fv := initial[k], final[k]
		if core.Literal(iv) == core.Literal(fv) {
			continue
		}
		add(k, iv, fv)
	}

	for _, p := range bound {
		path := core.SplitPath(p)
		if len(path) == 0 {
			continue
		}
		if path[0] == "encoding" {
			if len(path) < 2 {
				continue
			}
			_, iv, _ := core.FindKey(ie, path[1])
			_, fv, _ := core.FindKey(fe, path[1])
			add(path[1], iv, fv)
			continue
		}
		add(path[0], initial[path[0]], final[path[0]])
	}

	sort.SliceStable(acc, func(i, j int) bool {
		return strings.ToLower(acc[i].Channel) < strings.ToLower(acc[j].Channel)
	})

	return acc
}

// Channels returns the channel names of a change set.
func Channels(cs []Change) []string {
	acc := make([]string, len(cs))
	for i, c := range cs {
		acc[i] = c.Channel
	}
	return acc
}

// Overlap returns the channel names (compared case-insensitively)
// that two change sets share.
//
// Since "position" and "rotation" are channel names like any other,
// two change sets that both touch the same pose axis overlap, and a
// change set that only moves "position" doesn't overlap with one that
// only touches "rotation".
func Overlap(a, b []Change) []string {
	in := make(map[string]bool, len(a))
	for _, c := range a {
		in[strings.ToLower(c.Channel)] = true
	}
	var acc []string
	for _, c := range b {
		if in[strings.ToLower(c.Channel)] {
			acc = append(acc, c.Channel)
		}
	}
	return acc
}

// Pose returns the pose axes that a change set touches.
func Pose(cs []Change) []string {
	var acc []string
	for _, c := range cs {
		for _, axis := range PoseAxes {
			if strings.EqualFold(c.Channel, axis) {
				acc = append(acc, axis)
			}
		}
	}
	return acc
}
