/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package sio couples a morph engine to the outside world.
//
// A Session owns an engine.Engine and runs its frame loop.  Ops (spec
// updates, signal values, resets, ...) arrive as messages from a
// Couplings, and what the engine does to each visualization goes
// back out as Events.
package sio

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/crew"
	"github.com/Comcast/morphs/engine"
	"github.com/Comcast/morphs/keyframe"
)

// DefaultFrameInterval is used by "tick" ops that don't say.
var DefaultFrameInterval = 16 * time.Millisecond

// SessionConf provides some basic Session parameters.
type SessionConf struct {
	Id string `json:"id,omitempty"`

	// FrameInterval is the time between frames in Loop.  With
	// zero, frames only happen on "tick" ops.
	FrameInterval time.Duration `json:"frameInterval,omitempty"`

	// Progress turns on "progress" events, one per frame for each
	// active transition.
	Progress bool `json:"progress,omitempty"`

	// HaltOnInputEOF stops Loop when the Couplings run out of
	// input.
	HaltOnInputEOF bool `json:"haltOnInputEOF,omitempty"`
}

// Op is an in-bound request.
//
// Op is one of "spec", "signal", "start", "stop", "reset", "close",
// "load", "tick", and "describe".
type Op struct {
	Op       string `json:"op"`
	Instance string `json:"instance,omitempty"`

	// Spec is the visualization's new spec for "spec".
	Spec core.VisSpec `json:"spec,omitempty"`

	// Signal and Value are for "signal".
	Signal string      `json:"signal,omitempty"`
	Value  interface{} `json:"value,omitempty"`

	// Transition and GoToEnd are for "start" and "stop".
	Transition string `json:"transition,omitempty"`
	GoToEnd    bool   `json:"goToEnd,omitempty"`

	// Morphs is for "load".
	Morphs *crew.MorphSource `json:"morphs,omitempty"`

	// Dt is a frame duration in milliseconds, and Ticks is the
	// number of frames, for "tick".
	Dt    float64 `json:"dt,omitempty"`
	Ticks int     `json:"ticks,omitempty"`
}

// AsOp converts a message (usually parsed JSON) to an Op.
func AsOp(msg interface{}) (*Op, error) {
	if op, is := msg.(*Op); is {
		return op, nil
	}
	// Sorry.
	js, err := json.Marshal(&msg)
	if err != nil {
		return nil, err
	}
	var op Op
	if err = json.Unmarshal(js, &op); err != nil {
		return nil, fmt.Errorf("bad op: %s", err)
	}
	if op.Op == "" {
		return nil, fmt.Errorf("bad op: no op in %s", JShort(msg))
	}
	return &op, nil
}

// Event is an out-bound report.
//
// Event is one of "opened", "apply", "progress", "stop", "conflict",
// "error", and "vis".
type Event struct {
	Event      string `json:"event"`
	Instance   string `json:"instance,omitempty"`
	Transition string `json:"transition,omitempty"`

	// For "apply".
	Morph       string               `json:"morph,omitempty"`
	From        string               `json:"from,omitempty"`
	To          string               `json:"to,omitempty"`
	Reversed    bool                 `json:"reversed,omitempty"`
	Changes     []keyframe.Change    `json:"changes,omitempty"`
	Initial     core.VisSpec         `json:"initial,omitempty"`
	Final       core.VisSpec         `json:"final,omitempty"`
	Staging     map[string][]float64 `json:"staging,omitempty"`
	DisableGrab bool                 `json:"disableGrab,omitempty"`

	// For "progress".
	Progress *float64 `json:"progress,omitempty"`
	Eased    *float64 `json:"eased,omitempty"`

	// For "stop".  Spec is the committed spec.
	GoToEnd bool         `json:"goToEnd,omitempty"`
	Commit  bool         `json:"commit,omitempty"`
	Spec    core.VisSpec `json:"spec,omitempty"`

	// For "vis".
	Vis *crew.Vis `json:"vis,omitempty"`

	Error string `json:"error,omitempty"`
}

// Result represents all visible output from processing an op or a
// frame.
type Result struct {
	Events []*Event `json:"events,omitempty"`
}

// Session is an Engine and its visualizations, with I/O coupled via
// two channels (in and out).
type Session struct {
	Conf   *SessionConf
	Engine *engine.Engine

	// Crew has a snapshot of every visualization, updated after
	// each op and frame.
	Crew *crew.Crew

	// Metrics, if not nil, gets frame timings.
	Metrics *Metrics

	// Verbose turns on logging.
	Verbose bool

	vis    map[string]*RemoteVis
	events []*Event
	last   time.Time

	in   chan interface{}
	out  chan *Result
	done chan bool

	sync.Mutex
}

// NewSession makes a session with the given configuration, engine,
// and couplings.
//
// The coupling's IO() method is called to obtain the session's
// in/out channels.  The couplings can be nil for a caller that uses
// ProcessOp and Tick directly.
func NewSession(ctx context.Context, conf *SessionConf, e *engine.Engine, couplings Couplings) (*Session, error) {
	if conf == nil {
		conf = &SessionConf{
			FrameInterval: DefaultFrameInterval,
		}
	}
	s := &Session{
		Conf:   conf,
		Engine: e,
		Crew:   crew.NewCrew(conf.Id),
		vis:    make(map[string]*RemoteVis),
	}
	if couplings != nil {
		in, out, done, err := couplings.IO(ctx)
		if err != nil {
			return nil, err
		}
		s.in, s.out, s.done = in, out, done
	}

	next := e.Hooks
	e.Hooks.OnConflict = func(inst *engine.Instance, err *core.TransitionConflict) {
		s.emit(&Event{
			Event:      "conflict",
			Instance:   inst.Id,
			Transition: err.Transition,
			Error:      err.Error(),
		})
		if next.OnConflict != nil {
			next.OnConflict(inst, err)
		}
	}
	e.Hooks.OnError = func(inst *engine.Instance, err error) {
		s.emit(&Event{
			Event:    "error",
			Instance: inst.Id,
			Error:    err.Error(),
		})
		if next.OnError != nil {
			next.OnError(inst, err)
		}
	}

	return s, nil
}

// Logf logs if s.Verbose.
func (s *Session) Logf(format string, args ...interface{}) {
	if !s.Verbose {
		return
	}
	log.Printf(format, args...)
}

// Errorf queues an error event and writes a log line with "ERROR"
// prepended.
func (s *Session) Errorf(instance string, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Println("ERROR " + msg)
	s.emit(&Event{
		Event:    "error",
		Instance: instance,
		Error:    msg,
	})
}

func (s *Session) emit(e *Event) {
	s.events = append(s.events, e)
}

func (s *Session) flush() *Result {
	r := &Result{
		Events: s.events,
	}
	s.events = nil
	return r
}

// Open makes a new visualization instance.  With an empty id, a
// random one is generated.
func (s *Session) Open(id string, spec core.VisSpec) *RemoteVis {
	s.Lock()
	defer s.Unlock()
	return s.open(id, spec)
}

func (s *Session) open(id string, spec core.VisSpec) *RemoteVis {
	if _, have := s.vis[id]; have {
		s.close(id)
	}
	v := &RemoteVis{
		session: s,
		spec:    spec.Copy(),
		applied: make(map[string]*engine.ActiveTransition),
	}
	v.inst = s.Engine.NewInstance(id, v)
	v.Id = v.inst.Id
	s.vis[v.Id] = v
	s.emit(&Event{
		Event:    "opened",
		Instance: v.Id,
	})
	v.inst.CheckForMorphs()
	return v
}

func (s *Session) close(id string) {
	if v, have := s.vis[id]; have {
		v.inst.Close()
		delete(s.vis, id)
	}
	s.Crew.Delete(id)
}

// Vis finds a visualization.
func (s *Session) Vis(id string) (*RemoteVis, bool) {
	v, have := s.vis[id]
	return v, have
}

func (s *Session) instance(id string) (*engine.Instance, error) {
	v, have := s.vis[id]
	if !have {
		return nil, fmt.Errorf("unknown instance %q", id)
	}
	return v.inst, nil
}

// Load replaces the engine's morphs and reports errors as events.
func (s *Session) Load(morphs []*core.Morph) []error {
	s.Lock()
	defer s.Unlock()
	return s.load(morphs)
}

func (s *Session) load(morphs []*core.Morph) []error {
	errs := s.Engine.Load(morphs)
	for _, err := range errs {
		s.emit(&Event{
			Event: "error",
			Error: err.Error(),
		})
	}
	s.Logf("Session loaded %d morphs", len(s.Engine.Morphs()))
	s.sync()
	return errs
}

// ProcessOp processes the given op and returns the results, which
// can then be processed by the session's Result coupling.
//
// A message that's a func(*Session) error is just called.
func (s *Session) ProcessOp(ctx context.Context, msg interface{}) (*Result, error) {
	s.Logf("ProcessOp %s", JShort(msg))

	s.Lock()
	defer s.Unlock()

	if f, is := msg.(func(*Session) error); is {
		if err := f(s); err != nil {
			s.Errorf("", "%s", err)
		}
		s.sync()
		return s.flush(), nil
	}

	op, err := AsOp(msg)
	if err != nil {
		return nil, err
	}
	if err := s.do(ctx, op); err != nil {
		s.Errorf(op.Instance, "%s %s", op.Op, err)
	}
	s.sync()
	return s.flush(), nil
}

func (s *Session) do(ctx context.Context, op *Op) error {
	switch op.Op {
	case "spec":
		if v, have := s.vis[op.Instance]; have {
			v.SetSpec(op.Spec)
			return nil
		}
		s.open(op.Instance, op.Spec)
		return nil

	case "signal":
		if op.Signal == "" {
			return fmt.Errorf("no signal")
		}
		v, err := core.Of(op.Value)
		if err != nil {
			return err
		}
		s.Engine.Signals.Emit(op.Signal, v)
		return nil

	case "start", "stop":
		inst, err := s.instance(op.Instance)
		if err != nil {
			return err
		}
		if op.Op == "start" {
			return inst.Start(op.Transition)
		}
		return inst.Stop(op.Transition, op.GoToEnd)

	case "reset":
		inst, err := s.instance(op.Instance)
		if err != nil {
			return err
		}
		inst.Reset()
		return nil

	case "close":
		if _, err := s.instance(op.Instance); err != nil {
			return err
		}
		s.close(op.Instance)
		return nil

	case "load":
		if op.Morphs == nil {
			return fmt.Errorf("no morphs")
		}
		morphs, err := ResolveMorphSource(ctx, op.Morphs)
		if err != nil {
			return err
		}
		s.load(morphs)
		return nil

	case "tick":
		dt := DefaultFrameInterval
		if 0 < op.Dt {
			dt = time.Duration(op.Dt * float64(time.Millisecond))
		}
		n := op.Ticks
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			s.tick(dt)
		}
		return nil

	case "describe":
		ids := []string{op.Instance}
		if op.Instance == "" {
			ids = s.Crew.Ids()
		}
		for _, id := range ids {
			inst, err := s.instance(id)
			if err != nil {
				return err
			}
			s.emit(&Event{
				Event:    "vis",
				Instance: id,
				Vis:      snapshot(inst),
			})
		}
		return nil
	}

	return fmt.Errorf("unknown op %q", op.Op)
}

// Tick runs one frame and returns what happened.
func (s *Session) Tick(dt time.Duration) *Result {
	s.Lock()
	defer s.Unlock()
	s.tick(dt)
	s.sync()
	return s.flush()
}

func (s *Session) tick(dt time.Duration) {
	then := time.Now()
	s.Engine.Tick(dt)
	if s.Metrics != nil {
		s.Metrics.Frame(time.Since(then), len(s.vis))
	}
}

// sync updates the Crew.
func (s *Session) sync() {
	for _, v := range s.vis {
		s.Crew.Set(snapshot(v.inst))
	}
}

func snapshot(inst *engine.Instance) *crew.Vis {
	v := &crew.Vis{
		Id:            inst.Id,
		Spec:          inst.Vis.CurrentSpec(),
		Candidates:    make(map[string]string),
		Subscriptions: inst.Subscriptions(),
	}
	for _, c := range inst.Candidates() {
		v.Candidates[c.Morph.Name] = c.State.Name
	}
	for _, at := range inst.Active() {
		v.Active = append(v.Active, at.Name)
	}
	return v
}

// Loop starts the input processing and frame loop in the current
// goroutine.
//
// This loop calls ProcessOp on each message that arrives via the
// input coupling and Tick every Conf.FrameInterval.  The loop halts
// when ctx.Done().
func (s *Session) Loop(ctx context.Context) error {
	s.Logf("Session.Loop starting")

	var frames <-chan time.Time
	if 0 < s.Conf.FrameInterval {
		t := time.NewTicker(s.Conf.FrameInterval)
		defer t.Stop()
		frames = t.C
	}
	s.last = time.Now()
	done := s.done

LOOP:
	for {
		select {
		case <-done:
			if s.Conf.HaltOnInputEOF {
				s.Logf("Session.Loop shutting down (done)")
				break LOOP
			}
			done = nil
		case <-ctx.Done():
			s.Logf("Session.Loop shutting down (ctx.Done)")
			break LOOP
		case msg := <-s.in:
			if msg == nil {
				break LOOP
			}
			r, err := s.ProcessOp(ctx, msg)
			if err != nil {
				s.Lock()
				s.Errorf("", "Session.Loop ProcessOp %s", err)
				r = s.flush()
				s.Unlock()
			}
			s.send(ctx, r)
		case now := <-frames:
			dt := now.Sub(s.last)
			s.last = now
			if r := s.Tick(dt); 0 < len(r.Events) {
				s.send(ctx, r)
			}
		}
	}

	s.Logf("Session.Loop done")
	return nil
}

func (s *Session) send(ctx context.Context, r *Result) {
	if s.out == nil || r == nil {
		return
	}
	select {
	case <-ctx.Done():
	case s.out <- r:
	}
}

// WatchMorphs reloads the morphs in dir whenever a morph file there
// changes.  The reload happens at the start of the next frame.
func (s *Session) WatchMorphs(ctx context.Context, dir string) (*Watcher, error) {
	w, err := NewWatcher(dir, func(morphs []*core.Morph, errs []error) {
		s.Engine.Scheduler.Post(func() {
			for _, err := range errs {
				s.Errorf("", "reading morphs: %s", err)
			}
			s.load(morphs)
		})
	})
	if err != nil {
		return nil, err
	}
	w.Verbose = s.Verbose
	return w, w.Start(ctx)
}

// ResolveMorphSource attempts to find morphs based on a
// crew.MorphSource.
//
// Attempts to obtain morphs by examining .Inline, .URL, and .Source
// in that order.  The URL can be a 'file://' (with support for
// relative paths) that names a file or a directory.  The Source can
// be JSON or YAML.
//
// The morphs are not compiled.  Engine.Load does that.
func ResolveMorphSource(ctx context.Context, src *crew.MorphSource) ([]*core.Morph, error) {
	if src.Inline != nil {
		return src.Inline, nil
	}

	var (
		body []byte
		err  error
	)

	if src.URL != "" {
		if strings.HasPrefix(src.URL, "file://") {
			filename := src.URL[7:]
			if fi, err := os.Stat(filename); err == nil && fi.IsDir() {
				morphs, errs := core.ReadMorphDir(filename)
				if 0 < len(errs) {
					return nil, errs[0]
				}
				return morphs, nil
			}
			if body, err = ioutil.ReadFile(filename); err != nil {
				return nil, err
			}
		} else {
			req, err := http.NewRequestWithContext(ctx, "GET", src.URL, nil)
			if err != nil {
				return nil, err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			body, err = ioutil.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
		}
	}

	if src.Source != "" {
		body = []byte(src.Source)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("morph source is empty")
	}

	return core.ParseMorphs(body)
}
