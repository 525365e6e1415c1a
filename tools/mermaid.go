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

package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/morphs/core"
)

type MermaidOpts struct {
	// ShowPatterns will result in a state label that includes the
	// JSON representation of the state's pattern.
	ShowPatterns bool `json:"showPatterns"`

	// ShowTriggers adds triggers to transition labels.
	ShowTriggers bool `json:"showTriggers"`

	// PrivateFill is the fill color of for private states.
	PrivateFill string `json:"privateFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given morph.
func Mermaid(m *core.Morph, w io.WriteCloser, opts *MermaidOpts) error {

	if opts == nil {
		opts = &MermaidOpts{
			ShowTriggers: true,
			PrivateFill:  "#dddddd",
		}
	}

	fmt.Fprintf(w, "graph LR\n")

	nids := make(map[string]string)
	for i, s := range m.States {
		nid := fmt.Sprintf("n%d", i+1)
		nids[s.Name] = nid

		label := s.Name
		if opts.ShowPatterns && 0 < len(s.Pattern) {
			bs, err := json.Marshal(s.Pattern)
			if err != nil {
				return err
			}
			js := strings.Replace(string(bs), `"`, `'`, -1)
			label += "<br/><pre>" + js + "</pre>"
		}
		fmt.Fprintf(w, "  %s(\"%s\")\n", nid, label)
		if s.Private() && opts.PrivateFill != "" {
			fmt.Fprintf(w, "  style %s fill:%s,stroke-dasharray: 5 5\n", nid, opts.PrivateFill)
		}
	}

	for _, t := range m.Transitions {
		if len(t.States) != 2 {
			continue
		}
		from, have := nids[t.States[0]]
		if !have {
			return &core.UnknownState{Morph: m.Name, Transition: t.Name, State: t.States[0]}
		}
		to, have := nids[t.States[1]]
		if !have {
			return &core.UnknownState{Morph: m.Name, Transition: t.Name, State: t.States[1]}
		}

		label := t.Name
		if opts.ShowTriggers && 0 < len(t.Triggers) {
			label += ": " + strings.Join(t.Triggers, " && ")
		}
		arrow := "-->"
		if t.Bidirectional {
			arrow = "<-->"
		}
		fmt.Fprintf(w, "  %s %s|\"%s\"| %s\n", from, arrow, label, to)
	}

	fmt.Fprintf(w, "\n")

	return w.Close()
}
