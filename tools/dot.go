package tools

// dot -Tpng g.dot > g.png

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/morphs/core"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the given morph.  A really ugly
// dot file.
//
// States are nodes labeled with their patterns, and transitions are
// edges labeled with their triggers.  The optional transition names
// an active transition, which is drawn in red.
func Dot(m *core.Morph, w io.WriteCloser, transition string) error {

	yamlPatterns := true

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	var active *core.Transition
	if transition != "" {
		active, _ = m.Transition(transition)
	}

	for _, s := range m.States {
		label := s.Name
		if 0 < len(s.Pattern) {
			var (
				bs  []byte
				err error
			)
			if yamlPatterns {
				bs, err = yaml.Marshal(s.Pattern)
			} else {
				bs, err = json.MarshalIndent(s.Pattern, " ", " ")
			}
			if err != nil {
				bs = []byte(err.Error())
			}
			src := escapeHTML(string(bs))
			label += `<FONT POINT-SIZE="8">` +
				`<BR/>` + strings.Replace(src, "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}
		var (
			color     = "black"
			fillcolor = "#99ddc8"
			style     = "filled"
		)
		if s.Private() {
			style += ",dashed"
			fillcolor = "#dddddd"
		}
		if active != nil && len(active.States) == 2 && active.States[1] == s.Name {
			color = "red"
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(w, "  %s [shape=\"note\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			id(s.Name), style, color, fillcolor, label)
	}

	for _, t := range m.Transitions {
		if len(t.States) != 2 {
			continue
		}
		label := t.Name
		if 0 < len(t.Triggers) {
			label += `<BR/><FONT POINT-SIZE="8">` + strings.Join(escapeAll(t.Triggers), " &amp;&amp; ") + `</FONT>`
		}
		if c := t.Control(); c != "" {
			label += `<BR/><FONT POINT-SIZE="8">control: ` + escapeHTML(c) + `</FONT>`
		}
		if t.Priority != 0 {
			label += fmt.Sprintf(`<BR/><FONT POINT-SIZE="8">priority %d</FONT>`, t.Priority)
		}
		color := "black"
		if active == t {
			color = "red"
		}
		dir := "forward"
		if t.Bidirectional {
			dir = "both"
		}
		fmt.Fprintf(w, "  %s -> %s [ color=\"%s\" dir=\"%s\" label = <%s> ]\n",
			id(t.States[0]), id(t.States[1]), color, dir, label)
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(m *core.Morph, basename string, transition string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(m, dotfile, transition); err != nil {
		return pngname, err
	}
	cmd := "dot -Tpng " + dotname + " > " + pngname
	if err := exec.Command("bash", "-c", cmd).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

// id quotes a state name for dot.
func id(name string) string {
	return `"` + strings.Replace(name, `"`, `\"`, -1) + `"`
}

func escapeAll(ss []string) []string {
	acc := make([]string, len(ss))
	for i, s := range ss {
		acc[i] = escapeHTML(s)
	}
	return acc
}

func escapeHTML(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}
