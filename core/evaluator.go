package core

import "context"

// Evaluator evaluates small expressions over bound variables.
//
// An Evaluator should return an UnresolvedVariable error when the
// expression refers to a variable that isn't in vars.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, vars map[string]interface{}) (interface{}, error)
}

// Evaluators is a registry of named evaluators.  Packages in
// interpreters/ add themselves here in init().
var Evaluators = map[string]Evaluator{}

// EvaluatorFunc adapts a function to an Evaluator.
type EvaluatorFunc func(ctx context.Context, expr string, vars map[string]interface{}) (interface{}, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, expr string, vars map[string]interface{}) (interface{}, error) {
	return f(ctx, expr, vars)
}
