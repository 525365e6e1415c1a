package tools

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/sio"

	md "github.com/russross/blackfriday/v2"
)

// RenderMorphHTML writes an HTML fragment documenting a morph: its
// Markdown doc, states, signals, and transitions.
func RenderMorphHTML(m *core.Morph, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="morphDoc doc">%s</div>`, md.Run([]byte(m.Doc)))

	{ // States
		f(`<div class="states"><table>`)
		for _, s := range m.States {
			f(`<tr class="state"><td><span id="state-%s" class="stateName">%s</span></td><td>`,
				html.EscapeString(s.Name), html.EscapeString(s.Name))
			if s.Private() {
				f(`<div class="access">private</div>`)
			}
			if 0 < len(s.Pattern) {
				js, err := json.MarshalIndent(s.Pattern, "", "  ")
				if err != nil {
					return err
				}
				f(`<div class="code"><pre>%s</pre></div>`, html.EscapeString(string(js)))
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	if 0 < len(m.Signals) { // Signals
		f(`<div class="signals"><table>`)
		for _, s := range m.Signals {
			what := s.Source
			if s.Expression != "" {
				what = "expression"
			}
			f(`<tr class="signal"><td><span class="signalName">%s</span></td><td>%s</td>`,
				html.EscapeString(s.Name), html.EscapeString(what))
			switch {
			case s.Expression != "":
				f(`<td><code>%s</code></td></tr>`, html.EscapeString(s.Expression))
			case s.Target != "":
				f(`<td><code>%s</code></td></tr>`, html.EscapeString(s.Target))
			default:
				f(`<td><code>%s</code></td></tr>`, html.EscapeString(sio.JS(s.Value)))
			}
		}
		f(`</table></div>`)
	}

	{ // Transitions
		f(`<div class="transitions"><table>`)
		for _, t := range m.Transitions {
			f(`<tr class="transition"><td><span class="transitionName">%s</span></td><td>`, html.EscapeString(t.Name))
			f(`<table>`)
			if len(t.States) == 2 {
				arrow := "&rarr;"
				if t.Bidirectional {
					arrow = "&harr;"
				}
				f(`<tr><td>states</td><td><a href="#state-%s">%s</a> %s <a href="#state-%s">%s</a></td></tr>`,
					html.EscapeString(t.States[0]), html.EscapeString(t.States[0]), arrow,
					html.EscapeString(t.States[1]), html.EscapeString(t.States[1]))
			}
			if 0 < len(t.Triggers) {
				f(`<tr><td>triggers</td><td><code>%s</code></td></tr>`, html.EscapeString(strings.Join(t.Triggers, ", ")))
			}
			if t.Timing != nil {
				f(`<tr><td>timing</td><td><code>%s</code></td></tr>`, html.EscapeString(sio.JS(t.Timing)))
			}
			if t.Interrupt != nil {
				f(`<tr><td>interrupt</td><td><code>%s</code></td></tr>`, html.EscapeString(sio.JS(t.Interrupt)))
			}
			if t.Priority != 0 {
				f(`<tr><td>priority</td><td>%d</td></tr>`, t.Priority)
			}
			if 0 < len(t.Staging) {
				f(`<tr><td>staging</td><td><code>%s</code></td></tr>`, html.EscapeString(sio.JS(t.Staging)))
			}
			f(`</table>`)
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	return nil
}

// RenderMorphPage writes a complete HTML page for a morph.  With a
// graph, the page includes the morph's Mermaid diagram.
func RenderMorphPage(m *core.Morph, out io.Writer, cssFiles []string, includeGraph bool) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/morph-html.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(m.Name))

	if includeGraph {
		fmt.Fprintf(out, `  <script src="https://cdn.jsdelivr.net/npm/mermaid/dist/mermaid.min.js"></script>
  <script>mermaid.initialize({startOnLoad:true});</script>
`)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(m.Name))

	if includeGraph {
		var g strings.Builder
		if err := Mermaid(m, nopCloser{&g}, nil); err != nil {
			return err
		}
		fmt.Fprintf(out, "<div class=\"mermaid\">\n%s</div>\n", g.String())
	}

	if err := RenderMorphHTML(m, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderMorphPage renders the first morph in a file.
func ReadAndRenderMorphPage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	ms, err := ReadMorphs(filename)
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		return fmt.Errorf("no morphs in %s", filename)
	}
	return RenderMorphPage(ms[0], out, cssFiles, includeGraph)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
