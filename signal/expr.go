package signal

import (
	"context"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/util"
)

// Expression makes a signal derived from other signals.
//
// The lookup function finds upstream signals by name.  Identifiers
// in the expression that lookup can't find are assumed to be
// something else (library functions, for example).  Each upstream
// emission rebinds that signal's variable and re-evaluates the
// expression.  An UnresolvedVariable error (an upstream signal that
// hasn't emitted yet) suppresses that one emission.  Other errors are
// logged and also suppress the emission.
func Expression(ctx context.Context, spec *core.SignalSpec, eval core.Evaluator, lookup func(string) (*Signal, bool)) (*Signal, error) {
	if eval == nil {
		return nil, core.NoEvaluator
	}

	type dep struct {
		name string
		s    *Signal
	}
	var deps []dep
	for _, id := range core.Identifiers(spec.Expression) {
		if id == spec.Name {
			continue
		}
		if s, have := lookup(id); have {
			deps = append(deps, dep{id, s})
		}
	}

	return New(spec.Name, func(emit func(core.Value)) func() {
		var (
			vars = make(map[string]interface{}, len(deps))
			subs = NewGroup()
		)
		update := func() {
			x, err := eval.Evaluate(ctx, spec.Expression, vars)
			if err != nil {
				if !core.IsUnresolved(err) {
					util.Logf("signal %s: %s", spec.Name, err)
				}
				return
			}
			v, err := core.Of(x)
			if err != nil {
				util.Logf("signal %s: %s", spec.Name, err)
				return
			}
			emit(v)
		}
		for _, d := range deps {
			d := d
			subs.Subscribe(d.s, func(v core.Value) {
				vars[d.name] = v.Native()
				update()
			})
		}
		if len(deps) == 0 {
			update()
		}
		return subs.Dispose
	}), nil
}
