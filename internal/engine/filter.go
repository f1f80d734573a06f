package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CompileFilter compiles a webhook filter expression. Filters see the
// decoded event as `event`, e.g. `event.action == "opened"`.
func CompileFilter(expression string) (*vm.Program, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return prog, nil
}

// EvaluateFilter runs a compiled filter against event. A nil program always
// passes.
func EvaluateFilter(prog *vm.Program, event Value) (bool, error) {
	if prog == nil {
		return true, nil
	}
	env := map[string]any{"event": event.Interface()}
	result, err := expr.Run(prog, env)
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	pass, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter did not return bool")
	}
	return pass, nil
}
