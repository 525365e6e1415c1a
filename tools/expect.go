package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"strings"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/engine"
	"github.com/Comcast/morphs/interpreters"
	"github.com/Comcast/morphs/match"
	"github.com/Comcast/morphs/sio"

	"github.com/jsccast/yaml"
)

// Output is a specification for an event that's expected.
type Output struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Pattern must be matched by an event.  Patterns use the
	// same rules as morph states: "*" requires presence and null
	// requires absence.
	Pattern map[string]interface{} `json:"pattern" yaml:"pattern"`

	// Inverted means that a matching event isn't desired!
	Inverted bool `json:"inverted,omitempty" yaml:"inverted,omitempty"`

	// Bindings, which is the result of a match, is written
	// during processing.  Just for diagnostics.
	Bindings match.Bindings `json:"bs,omitempty" yaml:"bs,omitempty"`
}

// IO is a package of input ops and required output event
// specifications.
type IO struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Inputs are the ops to process (see sio.Op).
	Inputs []interface{} `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Ticks is the number of frames to run after the inputs.
	Ticks int `json:"ticks,omitempty" yaml:"ticks,omitempty"`

	// Dt is the frame duration in milliseconds.
	Dt float64 `json:"dt,omitempty" yaml:"dt,omitempty"`

	// OutputSet is the set (not a list) of outputs to verify
	// against the events from the inputs and frames.
	OutputSet []*Output `json:"outputSet,omitempty" yaml:"outputSet,omitempty"`
}

// Expectation is a scenario: some morphs and a sequence of IOs.
type Expectation struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Morphs are files to load.  Relative to the directory given
	// to Run.
	Morphs []string `json:"morphs,omitempty" yaml:"morphs,omitempty"`

	// Evaluator names the expression evaluator ("goja" by
	// default).
	Evaluator string `json:"evaluator,omitempty" yaml:"evaluator,omitempty"`

	// Progress turns on "progress" events.
	Progress bool `json:"progress,omitempty" yaml:"progress,omitempty"`

	// IOs is sequence of IOs that this expectation will run.
	IOs []*IO `json:"ios" yaml:"ios"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Failure reports an IO that didn't go as expected.
type Failure struct {
	IO       int
	Doc      string
	Missing  []*Output
	Unwanted []*Output
}

func (f *Failure) Error() string {
	var acc []string
	for _, o := range f.Missing {
		acc = append(acc, "missing "+describe(o))
	}
	for _, o := range f.Unwanted {
		acc = append(acc, "unwanted "+describe(o))
	}
	return fmt.Sprintf("IO %d (%s): %s", f.IO, f.Doc, strings.Join(acc, "; "))
}

func describe(o *Output) string {
	if o.Doc != "" {
		return o.Doc
	}
	js, _ := json.Marshal(o.Pattern)
	return string(js)
}

// EventMatcher doesn't ignore anything.
var EventMatcher = &match.Matcher{}

// ReadExpectation parses a YAML (or JSON) file.
func ReadExpectation(filename string) (*Expectation, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var x Expectation
	if err = yaml.Unmarshal(bs, &x); err != nil {
		return nil, err
	}
	return &x, nil
}

// Run loads the morphs and processes all the IOs.  The first IO whose
// outputs aren't satisfied results in a *Failure.
func (x *Expectation) Run(ctx context.Context, dir string) error {
	eval, have := interpreters.Find(x.Evaluator)
	if !have {
		return fmt.Errorf("unknown evaluator %q", x.Evaluator)
	}

	var morphs []*core.Morph
	for _, filename := range x.Morphs {
		if dir != "" && !strings.HasPrefix(filename, "/") {
			filename = dir + "/" + filename
		}
		ms, errs := core.ReadMorphFiles(filename)
		if 0 < len(errs) {
			return errs[0]
		}
		morphs = append(morphs, ms...)
	}

	e := engine.NewEngine(eval)
	s, err := sio.NewSession(ctx, &sio.SessionConf{Progress: x.Progress}, e, nil)
	if err != nil {
		return err
	}
	s.Verbose = x.Verbose
	if errs := s.Load(morphs); 0 < len(errs) {
		return errs[0]
	}

	for i, iop := range x.IOs {
		events, err := x.run(ctx, s, iop)
		if err != nil {
			return err
		}
		if f := check(iop, events); f != nil {
			f.IO = i
			return f
		}
	}
	return nil
}

func (x *Expectation) run(ctx context.Context, s *sio.Session, iop *IO) ([]map[string]interface{}, error) {
	var acc []*sio.Event
	for _, input := range iop.Inputs {
		if js, is := input.(string); is {
			// An input can be a JSON string.
			var x interface{}
			if err := json.Unmarshal([]byte(js), &x); err != nil {
				return nil, fmt.Errorf("bad input %s: %s", js, err)
			}
			input = x
		}
		r, err := s.ProcessOp(ctx, input)
		if err != nil {
			return nil, err
		}
		acc = append(acc, r.Events...)
	}
	if 0 < iop.Ticks {
		r, err := s.ProcessOp(ctx, &sio.Op{
			Op:    "tick",
			Dt:    iop.Dt,
			Ticks: iop.Ticks,
		})
		if err != nil {
			return nil, err
		}
		acc = append(acc, r.Events...)
	}

	events := make([]map[string]interface{}, 0, len(acc))
	for _, e := range acc {
		if x.Verbose {
			log.Printf("event %s", sio.JShort(e))
		}
		js, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		var m map[string]interface{}
		if err = json.Unmarshal(js, &m); err != nil {
			return nil, err
		}
		events = append(events, m)
	}
	return events, nil
}

func check(iop *IO, events []map[string]interface{}) *Failure {
	f := &Failure{
		Doc: iop.Doc,
	}
	for _, o := range iop.OutputSet {
		o.Bindings = nil
		found := false
		for _, e := range events {
			if bs, ok := EventMatcher.Match(e, o.Pattern, nil); ok {
				o.Bindings = bs
				found = true
				break
			}
		}
		switch {
		case found && o.Inverted:
			f.Unwanted = append(f.Unwanted, o)
		case !found && !o.Inverted:
			f.Missing = append(f.Missing, o)
		}
	}
	if len(f.Missing) == 0 && len(f.Unwanted) == 0 {
		return nil
	}
	return f
}
