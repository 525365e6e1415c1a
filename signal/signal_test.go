package signal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/morphs/core"
)

func TestReplay(t *testing.T) {
	s := New("grab", nil)
	s.Emit(core.BoolValue(true))

	var got []core.Value
	sub := s.Subscribe(func(v core.Value) {
		got = append(got, v)
	})
	if len(got) != 1 || !got[0].B {
		t.Fatal(got)
	}
	s.Emit(core.BoolValue(false))
	if len(got) != 2 || got[1].B {
		t.Fatal(got)
	}
	sub.Dispose()
	s.Emit(core.BoolValue(true))
	if len(got) != 2 {
		t.Fatal("disposed subscription still called")
	}
}

func TestRefCount(t *testing.T) {
	var started, stopped int
	s := New("count", func(emit func(core.Value)) func() {
		started++
		emit(core.NumberValue(1))
		return func() {
			stopped++
		}
	})
	if started != 1 {
		t.Fatal("not hot")
	}
	if s.Refs() != 1 {
		t.Fatal(s.Refs())
	}
	var n int
	sub := s.Subscribe(func(core.Value) { n++ })
	if n != 1 {
		t.Fatal("no replay")
	}
	if s.Refs() != 2 || started != 1 {
		t.Fatal(s.Refs(), started)
	}
	sub.Dispose()
	sub.Dispose()
	if s.Refs() != 1 || stopped != 0 {
		t.Fatal(s.Refs(), stopped)
	}
	s.Close()
	if stopped != 1 || s.Refs() != 0 || s.Running() {
		t.Fatal(stopped, s.Refs())
	}
	if s.Subscribe(func(core.Value) {}).Disposed() == false {
		t.Fatal("subscribed to a closed signal")
	}
}

func TestGroup(t *testing.T) {
	a := New("a", nil)
	b := New("b", nil)
	g := NewGroup()
	g.Subscribe(a, func(core.Value) {})
	child := g.Group()
	child.Subscribe(b, func(core.Value) {})
	child.Subscribe(a, func(core.Value) {})
	disposed := false
	child.Add(DisposeFunc(func() { disposed = true }))

	if g.Len() != 3 {
		t.Fatal(g.Len())
	}
	child.Dispose()
	if !disposed || g.Len() != 1 {
		t.Fatal(disposed, g.Len())
	}
	g.Dispose()
	if g.Len() != 0 || a.Refs() != 1 || b.Refs() != 1 {
		t.Fatal(g.Len(), a.Refs(), b.Refs())
	}
	// Adding to a disposed group disposes.
	sub := a.Subscribe(func(core.Value) {})
	g.Add(sub)
	if !sub.Disposed() {
		t.Fatal("not disposed")
	}
}

func TestSchedulerPhases(t *testing.T) {
	s := NewScheduler()
	var trace []string
	s.Post(func() { trace = append(trace, "posted") })
	tk := s.AddTicker(func(time.Duration) {
		trace = append(trace, "tick")
		s.AtResolution(func() { trace = append(trace, "resolve") })
		s.AtEndOfFrame(func() { trace = append(trace, "eof") })
	})
	s.Tick(time.Second / 60)
	want := "posted tick eof resolve"
	if got := strings.Join(trace, " "); got != want {
		t.Fatalf("%s != %s", got, want)
	}
	tk.Dispose()
	s.Tick(time.Second / 60)
	if len(trace) != 4 || s.Frame() != 2 || s.Tickers() != 0 {
		t.Fatal(trace)
	}
}

func TestTimer(t *testing.T) {
	sched := NewScheduler()
	done := 0
	tm := Timer("t", sched, time.Second, false, func() { done++ })
	var last float64
	tm.Subscribe(func(v core.Value) { last = v.N })
	if last != 0 {
		t.Fatal(last)
	}
	for i := 0; i < 3; i++ {
		sched.Tick(250 * time.Millisecond)
	}
	if last != 0.75 || done != 0 {
		t.Fatal(last, done)
	}
	sched.Tick(250 * time.Millisecond)
	if last != 1 || done != 1 {
		t.Fatal(last, done)
	}
	sched.Tick(250 * time.Millisecond)
	if done != 1 || sched.Tickers() != 0 {
		t.Fatal("timer kept running")
	}
}

func TestTimerReversedCancel(t *testing.T) {
	sched := NewScheduler()
	done := 0
	tm := Timer("t", sched, time.Second, true, func() { done++ })
	v, _ := tm.Last()
	if v.N != 1 {
		t.Fatal(v.N)
	}
	sched.Tick(500 * time.Millisecond)
	if v, _ = tm.Last(); v.N != 0.5 {
		t.Fatal(v.N)
	}
	tm.Close()
	sched.Tick(time.Second)
	if done != 0 || sched.Tickers() != 0 {
		t.Fatal("cancelled timer finished")
	}
}

func TestEasing(t *testing.T) {
	fn, ok := Easing("in-out-quad")
	if !ok || fn == nil {
		t.Fatal("no easing")
	}
	if fn(0) != 0 || fn(1) != 1 {
		t.Fatal(fn(0), fn(1))
	}
	if fn(0.25) >= 0.25 {
		t.Fatal("not eased", fn(0.25))
	}
	if _, ok := Easing("wobbly"); ok {
		t.Fatal("unknown easing")
	}
	if fn, ok := Easing(""); !ok || fn != nil {
		t.Fatal("empty easing")
	}
}

// sum is a tiny evaluator that adds up its variables and fails
// like a real one when a variable it needs is missing.
func sum(needs ...string) core.Evaluator {
	return core.EvaluatorFunc(func(ctx context.Context, expr string, vars map[string]interface{}) (interface{}, error) {
		acc := 0.0
		for _, name := range needs {
			x, have := vars[name]
			if !have {
				return nil, &core.UnresolvedVariable{Expr: expr, Name: name}
			}
			acc += x.(float64)
		}
		return acc, nil
	})
}

func TestExpression(t *testing.T) {
	a := New("a", nil)
	ab := New("ab", nil)
	signals := map[string]*Signal{"a": a, "ab": ab}
	lookup := func(name string) (*Signal, bool) {
		s, have := signals[name]
		return s, have
	}
	spec := &core.SignalSpec{Name: "s", Expression: "a + ab"}
	s, err := Expression(context.Background(), spec, sum("a", "ab"), lookup)
	if err != nil {
		t.Fatal(err)
	}
	if _, has := s.Last(); has {
		t.Fatal("emitted without inputs")
	}
	a.Emit(core.NumberValue(1))
	if _, has := s.Last(); has {
		t.Fatal("emitted with an unresolved variable")
	}
	ab.Emit(core.NumberValue(2))
	if v, has := s.Last(); !has || v.N != 3 {
		t.Fatal(v, has)
	}
	s.Close()
	if a.Refs() != 1 || ab.Refs() != 1 {
		t.Fatal("upstream subscriptions leaked", a.Refs(), ab.Refs())
	}
}

func TestManager(t *testing.T) {
	sched := NewScheduler()
	m := NewManager(sched, nil)
	morph := &core.Morph{
		Name: "m",
		Signals: []*core.SignalSpec{
			{Name: "grab", Source: "input", Value: false},
			{Name: "k", Source: "constant", Value: 3.0},
			{Name: "local", Expression: "k * 2"},
		},
	}
	if err := m.Declare(morph); err != nil {
		t.Fatal(err)
	}
	if _, have := m.Global("local"); have {
		t.Fatal("local signal in the global table")
	}
	k, _ := m.Global("k")
	if v, _ := k.Last(); v.N != 3 {
		t.Fatal(v)
	}
	if err := m.Post("grab", true); err != nil {
		t.Fatal(err)
	}
	grab, _ := m.Global("grab")
	if v, _ := grab.Last(); v.B {
		t.Fatal("posted value arrived early")
	}
	sched.Tick(time.Millisecond)
	if v, _ := grab.Last(); !v.B {
		t.Fatal("posted value didn't arrive")
	}

	bad := &core.Morph{
		Name: "bad",
		Signals: []*core.SignalSpec{
			{Name: "fine", Source: "input"},
			{Name: "hand", Source: "leap-motion"},
		},
	}
	err := m.Declare(bad)
	var u *core.UnknownSource
	if !errors.As(err, &u) {
		t.Fatal(err)
	}
	if _, have := m.Global("fine"); have {
		t.Fatal("partial declaration")
	}

	m.Reset()
	if _, have := m.Global("grab"); have || !grab.Closed() {
		t.Fatal("reset didn't clear")
	}
}

type cube struct {
	y float64
}

func (c *cube) ObjectName() string { return "cube" }

func (c *cube) Property(name string) (core.Value, error) {
	if name != "y" {
		return core.Value{}, errors.New("no " + name)
	}
	return core.NumberValue(c.y), nil
}

func TestObjectAndVisProviders(t *testing.T) {
	sched := NewScheduler()
	m := NewManager(sched, nil)
	c := &cube{y: 1}
	m.AddObject(c)

	env := m.Env()
	s, err := m.Build(env, &core.SignalSpec{Name: "height", Source: "object", Target: "cube", Params: map[string]interface{}{"property": "y"}})
	if err != nil {
		t.Fatal(err)
	}
	var emitted int
	s.Subscribe(func(core.Value) { emitted++ })
	sched.Tick(time.Millisecond)
	sched.Tick(time.Millisecond)
	if emitted != 1 {
		t.Fatal("polling should only emit changes", emitted)
	}
	c.y = 2
	sched.Tick(time.Millisecond)
	if v, _ := s.Last(); v.N != 2 || emitted != 2 {
		t.Fatal(v, emitted)
	}

	spec := core.VisSpec{"width": 100.0}
	env.Spec = func() core.VisSpec { return spec }
	w, err := m.Build(env, &core.SignalSpec{Name: "w", Source: "vis", Target: "width"})
	if err != nil {
		t.Fatal(err)
	}
	spec = core.VisSpec{"width": 200.0}
	sched.Tick(time.Millisecond)
	if v, _ := w.Last(); v.N != 200 {
		t.Fatal(v)
	}
}
