package interpreters

import (
	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/interpreters/goja"
	"github.com/Comcast/morphs/interpreters/noop"
)

// Standard returns the standard set of named evaluators.
func Standard() map[string]core.Evaluator {
	es := goja.NewInterpreter()
	return map[string]core.Evaluator{
		"goja":       es,
		"ecmascript": es,
		"noop":       noop.NewInterpreter(),
	}
}

// Find returns the named evaluator from Standard, or goja's when the
// name is empty.
func Find(name string) (core.Evaluator, bool) {
	if name == "" {
		name = "goja"
	}
	e, have := Standard()[name]
	return e, have
}
