package engine

import (
	"errors"
	"fmt"
	"strings"

	"webhook-bot/internal/model"
)

// ErrUnknownOperator marks a stored condition whose operator is outside the
// supported set. The condition is treated as non-matching.
var ErrUnknownOperator = errors.New("unknown operator")

// Evaluate applies op to a resolved value and a literal. found is false when
// path resolution came back empty: absence only satisfies "!=".
func Evaluate(resolved Value, found bool, op model.Operator, literal string) (bool, error) {
	if !op.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, string(op))
	}
	if !found {
		return op == model.OpNotEqual, nil
	}

	want := Coerce(literal)
	if op == model.OpContains {
		return contains(resolved, want), nil
	}

	c := Compare(CoerceValue(resolved), want)
	switch op {
	case model.OpEqual:
		return c == 0, nil
	case model.OpNotEqual:
		return c != 0, nil
	case model.OpGreater:
		return c > 0, nil
	case model.OpGreaterEqual:
		return c >= 0, nil
	case model.OpLess:
		return c < 0, nil
	default: // model.OpLessEqual
		return c <= 0, nil
	}
}

func contains(resolved Value, want Operand) bool {
	switch resolved.Kind() {
	case KindSequence:
		for _, item := range resolved.Items() {
			if Compare(CoerceValue(item), want) == 0 {
				return true
			}
		}
		return false
	case KindMapping:
		_, ok := resolved.Key(want.Text)
		return ok
	default:
		return strings.Contains(strings.TrimSpace(resolved.Text()), want.Text)
	}
}

// CompiledCondition is a stored Condition with its field path parsed once.
type CompiledCondition struct {
	model.Condition
	path    Path
	pathErr error
}

// CompileCondition parses the field path. A bad path is kept on the compiled
// condition and reported when it is evaluated.
func CompileCondition(c model.Condition) CompiledCondition {
	p, err := ParsePath(c.Field)
	return CompiledCondition{Condition: c, path: p, pathErr: err}
}

// CompileConditions compiles a list, preserving order.
func CompileConditions(conds []model.Condition) []CompiledCondition {
	out := make([]CompiledCondition, len(conds))
	for i, c := range conds {
		out[i] = CompileCondition(c)
	}
	return out
}

// Eval resolves the condition's field against event and applies its operator.
func (c CompiledCondition) Eval(event Value) (bool, error) {
	if c.pathErr != nil {
		return false, c.pathErr
	}
	resolved, found := c.path.Resolve(event)
	return Evaluate(resolved, found, c.Operator, c.Value)
}

// Matches reports whether every condition holds for event. An empty list
// always matches. Evaluation stops at the first false condition; a
// configuration error is returned alongside false.
func Matches(event Value, conditions []CompiledCondition) (bool, error) {
	for _, c := range conditions {
		ok, err := c.Eval(event)
		if err != nil {
			return false, fmt.Errorf("condition %d (%s %s %s): %w", c.ID, c.Field, c.Operator, c.Value, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
