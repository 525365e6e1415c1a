package tools

import (
	"strings"
	"testing"

	"github.com/Comcast/morphs/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingBuilder struct {
	strings.Builder
	closed bool
}

func (b *closingBuilder) Close() error {
	b.closed = true
	return nil
}

func TestMermaid(t *testing.T) {
	m, err := core.ChoroplethMorph()
	require.NoError(t, err)

	out := &closingBuilder{}
	require.NoError(t, Mermaid(m, out, nil))
	assert.True(t, out.closed)

	g := out.String()
	assert.True(t, strings.HasPrefix(g, "graph LR\n"))
	assert.Contains(t, g, `n1("choropleth")`)
	assert.Contains(t, g, `n1 <-->|"extrude: grab"| n2`)
}

func TestMermaidPatterns(t *testing.T) {
	out := &closingBuilder{}
	opts := &MermaidOpts{ShowPatterns: true, PrivateFill: "#eeeeee"}
	require.NoError(t, Mermaid(parseMorph(t, lonelyMorph), out, opts))

	g := out.String()
	assert.Contains(t, g, `<pre>{'mark':'bar'}</pre>`)
	assert.Contains(t, g, "style n3 fill:#eeeeee")
	assert.Contains(t, g, `n1 -->|"a-b"| n2`)
}
