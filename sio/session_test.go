package sio

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/crew"
	"github.com/Comcast/morphs/engine"
	"github.com/Comcast/morphs/util/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var liveMap = `{
  "mark": "geoshape",
  "data": {"url": "states.json"},
  "encoding": {
    "x": {"field": "Longitude", "type": "quantitative"},
    "color": {"field": "Population", "type": "quantitative"}
  }
}`

var axesMorph = `
name: axes
states:
  - name: lon
    encoding:
      x: {field: Longitude}
  - name: lat
    encoding:
      x: {field: Latitude}
signals:
  - name: flip
    source: input
    value: false
transitions:
  - name: to-lat
    states: [lon, lat]
    triggers: [flip]
`

func newSession(t *testing.T, conf *SessionConf) *Session {
	m, err := core.ChoroplethMorph()
	require.NoError(t, err)
	s, err := NewSession(context.Background(), conf, engine.NewEngine(nil), nil)
	require.NoError(t, err)
	require.Empty(t, s.Load([]*core.Morph{m}))
	return s
}

// events processes the ops in order and returns all of the events.
func events(t *testing.T, s *Session, ops ...string) []*Event {
	var acc []*Event
	for _, op := range ops {
		r, err := s.ProcessOp(context.Background(), testutil.Dwimjs(op))
		require.NoError(t, err)
		acc = append(acc, r.Events...)
	}
	return acc
}

func find(es []*Event, kind string) []*Event {
	var acc []*Event
	for _, e := range es {
		if e.Event == kind {
			acc = append(acc, e)
		}
	}
	return acc
}

func specOp(id string) string {
	return `{"op":"spec","instance":"` + id + `","spec":` + liveMap + `}`
}

func TestSessionScenario(t *testing.T) {
	s := newSession(t, &SessionConf{Progress: true})

	es := events(t, s, specOp("v1"))
	require.Len(t, find(es, "opened"), 1)
	assert.Equal(t, "v1", es[0].Instance)

	es = events(t, s,
		`{"op":"signal","signal":"grab","value":true}`,
		`{"op":"tick","dt":250}`)
	applied := find(es, "apply")
	require.Len(t, applied, 1)
	a := applied[0]
	assert.Equal(t, "extrude", a.Transition)
	assert.Equal(t, "choropleth-prism", a.Morph)
	assert.Equal(t, "choropleth", a.From)
	assert.Equal(t, "prism", a.To)
	assert.False(t, a.Reversed)
	z, _ := a.Final.Get("encoding.z.field")
	assert.Equal(t, "Population", z)

	v, have := s.Crew.Get("v1")
	require.True(t, have)
	assert.Equal(t, []string{"extrude"}, v.Active)
	assert.Equal(t, "choropleth", v.Candidates["choropleth-prism"])

	es = events(t, s,
		`{"op":"tick","dt":250}`,
		`{"op":"signal","signal":"grab","value":false}`,
		`{"op":"tick","dt":250}`)
	stops := find(es, "stop")
	require.Len(t, stops, 1)
	assert.True(t, stops[0].GoToEnd)
	assert.True(t, stops[0].Commit)
	z, _ = stops[0].Spec.Get("encoding.z.field")
	assert.Equal(t, "Population", z)

	rv, have := s.Vis("v1")
	require.True(t, have)
	z, _ = rv.CurrentSpec().Get("encoding.z.field")
	assert.Equal(t, "Population", z)

	es = events(t, s, `{"op":"describe","instance":"v1"}`)
	vs := find(es, "vis")
	require.Len(t, vs, 1)
	assert.Equal(t, "prism", vs[0].Vis.Candidates["choropleth-prism"])
	assert.Empty(t, vs[0].Vis.Active)
}

func TestSessionProgressEvents(t *testing.T) {
	s := newSession(t, &SessionConf{Progress: true})
	events(t, s, specOp("v1"))
	es := events(t, s,
		`{"op":"signal","signal":"grab","value":true}`,
		`{"op":"tick","dt":250,"ticks":3}`)
	ps := find(es, "progress")
	require.NotEmpty(t, ps)
	last := ps[len(ps)-1]
	require.NotNil(t, last.Progress)
	require.NotNil(t, last.Eased)
	assert.InDelta(t, 0.5, *last.Progress, 1e-9)
	// inOutQuad is symmetric.
	assert.InDelta(t, 0.5, *last.Eased, 1e-9)
}

func TestSessionStartStop(t *testing.T) {
	s := newSession(t, nil)
	events(t, s, specOp("v1"), `{"op":"tick"}`)

	es := events(t, s, `{"op":"start","instance":"v1","transition":"extrude"}`, `{"op":"tick"}`)
	require.Len(t, find(es, "apply"), 1)

	es = events(t, s, `{"op":"stop","instance":"v1","transition":"extrude","goToEnd":true}`, `{"op":"tick"}`)
	stops := find(es, "stop")
	require.Len(t, stops, 1)
	assert.True(t, stops[0].GoToEnd)

	es = events(t, s, `{"op":"start","instance":"v1","transition":"nope"}`)
	assert.Len(t, find(es, "error"), 1)
}

func TestSessionErrors(t *testing.T) {
	s := newSession(t, nil)

	es := events(t, s, `{"op":"reset","instance":"missing"}`)
	errs := find(es, "error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error, "missing")

	es = events(t, s, `{"op":"nope"}`)
	require.Len(t, find(es, "error"), 1)

	_, err := s.ProcessOp(context.Background(), map[string]interface{}{"instance": "v1"})
	assert.Error(t, err)

	es = events(t, s, `{"op":"signal"}`)
	require.Len(t, find(es, "error"), 1)
}

func TestSessionFuncMessage(t *testing.T) {
	s := newSession(t, nil)
	called := false
	r, err := s.ProcessOp(context.Background(), func(s *Session) error {
		called = true
		return errors.New("oops")
	})
	require.NoError(t, err)
	assert.True(t, called)
	errs := find(r.Events, "error")
	require.Len(t, errs, 1)
	assert.Equal(t, "oops", errs[0].Error)
}

func TestSessionLoad(t *testing.T) {
	s := newSession(t, nil)
	events(t, s, specOp("v1"))

	es := events(t, s, `{"op":"load","morphs":{"source":`+testutil.JS(axesMorph)+`}}`)
	assert.Empty(t, find(es, "error"))
	require.Len(t, s.Engine.Morphs(), 1)
	assert.Equal(t, "axes", s.Engine.Morphs()[0].Name)

	v, have := s.Crew.Get("v1")
	require.True(t, have)
	assert.Equal(t, "lon", v.Candidates["axes"])

	es = events(t, s, `{"op":"load","morphs":{"source":"name: [broken"}}`)
	assert.Len(t, find(es, "error"), 1)

	es = events(t, s, `{"op":"load"}`)
	assert.Len(t, find(es, "error"), 1)
}

func TestSessionLoadDuplicate(t *testing.T) {
	s := newSession(t, nil)
	m1, err := core.ParseMorphs([]byte(axesMorph))
	require.NoError(t, err)
	m2, err := core.ParseMorphs([]byte(axesMorph))
	require.NoError(t, err)
	m2[0].Name = "axes2"
	errs := s.Load(append(m1, m2...))
	require.NotEmpty(t, errs)
	r := s.Tick(time.Millisecond)
	assert.NotEmpty(t, find(r.Events, "error"))
}

func TestSessionClose(t *testing.T) {
	s := newSession(t, nil)
	events(t, s, specOp("v1"), specOp("v2"))
	assert.Equal(t, []string{"v1", "v2"}, s.Crew.Ids())

	events(t, s, `{"op":"close","instance":"v1"}`)
	assert.Equal(t, []string{"v2"}, s.Crew.Ids())
	_, have := s.Vis("v1")
	assert.False(t, have)

	es := events(t, s, `{"op":"describe"}`)
	vs := find(es, "vis")
	require.Len(t, vs, 1)
	assert.Equal(t, "v2", vs[0].Instance)
}

type chans struct {
	in   chan interface{}
	out  chan *Result
	done chan bool
}

func (c *chans) Start(ctx context.Context) error { return nil }
func (c *chans) Stop(ctx context.Context) error  { return nil }
func (c *chans) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	return c.in, c.out, c.done, nil
}

func TestSessionLoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := &chans{
		in:   make(chan interface{}),
		out:  make(chan *Result),
		done: make(chan bool),
	}
	m, err := core.ChoroplethMorph()
	require.NoError(t, err)
	s, err := NewSession(ctx, &SessionConf{HaltOnInputEOF: true}, engine.NewEngine(nil), c)
	require.NoError(t, err)
	require.Empty(t, s.Load([]*core.Morph{m}))
	s.Tick(0)

	stopped := make(chan error)
	go func() {
		stopped <- s.Loop(ctx)
	}()

	c.in <- testutil.Dwimjs(specOp("v1"))
	select {
	case r := <-c.out:
		require.NotEmpty(t, r.Events)
		assert.Equal(t, "opened", r.Events[0].Event)
	case <-ctx.Done():
		t.Fatal("timeout")
	}

	close(c.done)
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("timeout")
	}
}

func TestAsOp(t *testing.T) {
	op, err := AsOp(testutil.Dwimjs(`{"op":"signal","signal":"grab","value":1}`))
	require.NoError(t, err)
	assert.Equal(t, "signal", op.Op)
	assert.Equal(t, 1.0, op.Value)

	same := &Op{Op: "tick"}
	op, err = AsOp(same)
	require.NoError(t, err)
	assert.True(t, op == same)

	_, err = AsOp(testutil.Dwimjs(`{"op":[1]}`))
	assert.Error(t, err)
}

func TestResolveMorphSource(t *testing.T) {
	ctx := context.Background()

	ms, err := ResolveMorphSource(ctx, &crew.MorphSource{Source: axesMorph})
	require.NoError(t, err)
	require.Len(t, ms, 1)

	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "axes.yaml"), []byte(axesMorph), 0644))
	ms, err = ResolveMorphSource(ctx, &crew.MorphSource{URL: "file://" + dir})
	require.NoError(t, err)
	require.Len(t, ms, 1)

	ms, err = ResolveMorphSource(ctx, &crew.MorphSource{URL: "file://" + filepath.Join(dir, "axes.yaml")})
	require.NoError(t, err)
	require.Len(t, ms, 1)

	_, err = ResolveMorphSource(ctx, &crew.MorphSource{})
	assert.Error(t, err)
}
