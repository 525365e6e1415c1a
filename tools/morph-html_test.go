package tools

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/Comcast/morphs/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMorphHTML(t *testing.T) {
	m, err := core.ChoroplethMorph()
	require.NoError(t, err)
	m.Doc = "Extrude *everything*."

	out := &bytes.Buffer{}
	require.NoError(t, RenderMorphHTML(m, out))
	h := out.String()
	assert.Contains(t, h, "<em>everything</em>")
	assert.Contains(t, h, `id="state-prism"`)
	assert.Contains(t, h, "&harr;")
	assert.Contains(t, h, `<span class="signalName">grab</span>`)
}

func TestRenderMorphPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "doc.md"), []byte("Axes *swap*."), 0644))
	filename := filepath.Join(dir, "axes.yaml")
	src := "doc: '%inline(\"doc.md\")'\n" + axesMorph
	require.NoError(t, ioutil.WriteFile(filename, []byte(src), 0644))

	t.Run("withoutGraph", func(t *testing.T) {
		out := bytes.NewBuffer(make([]byte, 0, 1024*128))
		require.NoError(t, ReadAndRenderMorphPage(filename, []string{"morph.css"}, out, false))
		assert.Contains(t, out.String(), "<title>axes</title>")
		assert.Contains(t, out.String(), "<em>swap</em>")
		assert.NotContains(t, out.String(), "mermaid")
	})

	t.Run("withGraph", func(t *testing.T) {
		out := bytes.NewBuffer(make([]byte, 0, 1024*128))
		require.NoError(t, ReadAndRenderMorphPage(filename, []string{"morph.css"}, out, true))
		assert.Contains(t, out.String(), `<div class="mermaid">`)
	})
}
