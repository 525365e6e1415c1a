package goja

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Comcast/morphs/core"

	"github.com/dop251/goja"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Evaluate if the evaluation is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// DefaultTimeout bounds each evaluation when the context has
	// no deadline.
	DefaultTimeout = 100 * time.Millisecond
)

func init() {
	core.Evaluators["goja"] = NewInterpreter()
}

// Library is ECMAScript that's run before every expression.
//
// Vectors are arrays that also have "x", "y", "z" (and "w")
// properties, so "hand.y" and "hand[1]" are the same thing.
var Library = `
function vec(xs) {
  var names = ["x", "y", "z", "w"];
  for (var i = 0; i < xs.length && i < names.length; i++) {
    xs[names[i]] = xs[i];
  }
  return xs;
}
function vec3(x, y, z) { return vec([x, y, z]); }
function quat(x, y, z, w) { return vec([x, y, z, w]); }
function clamp(x, lo, hi) { return Math.min(Math.max(x, lo), hi); }
function lerp(a, b, t) {
  if (typeof a === "number") {
    return a + (b - a) * t;
  }
  var acc = [];
  for (var i = 0; i < a.length; i++) {
    acc.push(a[i] + (b[i] - a[i]) * t);
  }
  return vec(acc);
}
function length(v) {
  var acc = 0;
  for (var i = 0; i < v.length; i++) {
    acc += v[i] * v[i];
  }
  return Math.sqrt(acc);
}
function normalize(v) {
  var n = length(v);
  if (n === 0) {
    return v;
  }
  var acc = [];
  for (var i = 0; i < v.length; i++) {
    acc.push(v[i] / n);
  }
  return vec(acc);
}
var normalise = normalize;
`

// Interpreter implements core.Evaluator using Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {
	// Timeout overrides DefaultTimeout.
	Timeout time.Duration

	sync.Mutex
	library  *goja.Program
	programs map[string]*goja.Program
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		programs: make(map[string]*goja.Program),
	}
}

// Compile compiles (and caches) an expression.
func (i *Interpreter) Compile(expr string) (*goja.Program, error) {
	i.Lock()
	defer i.Unlock()

	if i.library == nil {
		p, err := goja.Compile("library", Library, true)
		if err != nil {
			return nil, err
		}
		i.library = p
	}

	if p, have := i.programs[expr]; have {
		return p, nil
	}
	p, err := goja.Compile("", expr, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + expr)
	}
	i.programs[expr] = p
	return p, nil
}

var notDefined = regexp.MustCompile(`ReferenceError: ([$_a-zA-Z][$_a-zA-Z0-9]*) is not defined`)

// Evaluate implements core.Evaluator.
//
// Each call gets a fresh runtime with the library and the given
// variables.  Arrays of three or four numbers are given vector
// accessors.  A reference to an unbound variable results in a
// core.UnresolvedVariable.
func (i *Interpreter) Evaluate(ctx context.Context, expr string, vars map[string]interface{}) (interface{}, error) {
	p, err := i.Compile(expr)
	if err != nil {
		return nil, err
	}

	o := goja.New()
	if _, err = o.RunProgram(i.library); err != nil {
		return nil, err
	}

	vec, _ := goja.AssertFunction(o.Get("vec"))
	for name, x := range vars {
		v := o.ToValue(x)
		if xs, is := x.([]interface{}); is && (len(xs) == 3 || len(xs) == 4) {
			if v, err = vec(goja.Undefined(), o.NewArray(xs...)); err != nil {
				return nil, err
			}
		}
		if err = o.Set(name, v); err != nil {
			return nil, err
		}
	}

	timeout := i.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If Evaluate calls cancel() after RunProgram returns,
		// then the interrupt is harmless.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		if m := notDefined.FindStringSubmatch(err.Error()); m != nil {
			return nil, &core.UnresolvedVariable{
				Expr: expr,
				Name: m[1],
			}
		}
		return nil, err
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}

	x, err := core.Canonicalize(v.Export())
	if err != nil {
		return nil, fmt.Errorf("result of %q: %w", expr, err)
	}
	return x, nil
}
