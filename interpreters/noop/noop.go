package noop

import (
	"context"
	"log"

	"github.com/Comcast/morphs/core"
)

func init() {
	core.Evaluators["noop"] = NewInterpreter()
}

// Interpreter is a core.Evaluator which evaluates nothing.
//
// Keyframe leaves that look like expressions stay literal, and
// expression signals never emit.
type Interpreter struct {
	// Silent, if false, will suppress warning log messages.
	Silent bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Evaluate(ctx context.Context, expr string, vars map[string]interface{}) (interface{}, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter for %q", expr)
	}
	return nil, core.NoEvaluator
}
