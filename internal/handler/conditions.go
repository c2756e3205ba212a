package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

// Built-in condition ids.
const (
	ConditionEquals      = "equals"
	ConditionNotEquals   = "notEquals"
	ConditionGreaterThan = "greaterThan"
	ConditionLessThan    = "lessThan"
	ConditionContains    = "contains"
	ConditionMatches     = "matches"
	ConditionExists      = "exists"
	ConditionIsEmpty     = "isEmpty"
	ConditionExpression  = "expression"
)

// binary reads the "left" and "right" parameters.
func binary(ec *tree.ExecutionContext, params map[string]interface{}) (interface{}, interface{}, error) {
	left, err := required(ec, params, "left")
	if err != nil {
		return nil, nil, err
	}
	right, err := required(ec, params, "right")
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func equalsCondition(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	left, right, err := binary(ec, params)
	if err != nil {
		return false, err
	}
	return equal(left, right), nil
}

func notEqualsCondition(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	ok, err := equalsCondition(ctx, ec, params)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func greaterThanCondition(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	left, right, err := binary(ec, params)
	if err != nil {
		return false, err
	}
	c, err := numericCompare(left, right)
	if err != nil {
		return false, fmt.Errorf("greaterThan: %w", err)
	}
	return c > 0, nil
}

func lessThanCondition(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	left, right, err := binary(ec, params)
	if err != nil {
		return false, err
	}
	c, err := numericCompare(left, right)
	if err != nil {
		return false, fmt.Errorf("lessThan: %w", err)
	}
	return c < 0, nil
}

// contains: "value" holds "search".
func containsCondition(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	value, err := required(ec, params, "value")
	if err != nil {
		return false, err
	}
	search, err := required(ec, params, "search")
	if err != nil {
		return false, err
	}
	return containsValue(value, search)
}

// matches: "value" matches the regular expression "pattern".
func matchesCondition(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	value, err := required(ec, params, "value")
	if err != nil {
		return false, err
	}
	pattern, err := required(ec, params, "pattern")
	if err != nil {
		return false, err
	}
	return matches(value, pattern)
}

// exists: "path" names a variable or a dot-path into the input data.
// A leading "$" is accepted and ignored.
func existsCondition(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	path, err := requiredString(params, "path")
	if err != nil {
		return false, err
	}
	_, ok := ec.Lookup(strings.TrimPrefix(path, "$"))
	return ok, nil
}

// isEmpty: "value" is absent, nil, "" or an empty collection.
func isEmptyCondition(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	v, _ := resolved(ec, params, "value")
	return isEmpty(v), nil
}

// exprEnv is what an expression sees: the input data and the variables.
type exprEnv struct {
	Data map[string]interface{} `expr:"data"`
	Vars map[string]interface{} `expr:"vars"`
}

// ExpressionCondition evaluates the boolean expr-lang program in the
// "expression" parameter, e.g. `data.metrics.cpu > 90 && vars.attempt < 3`.
// Compiled programs are cached by source text.
type ExpressionCondition struct {
	cache sync.Map // string → *vm.Program
}

func (c *ExpressionCondition) Evaluate(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	src, err := requiredString(params, "expression")
	if err != nil {
		return false, err
	}
	program, err := c.compile(src)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, exprEnv{Data: ec.Data, Vars: ec.Variables()})
	if err != nil {
		return false, fmt.Errorf("expression %q: %w", src, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", src, out)
	}
	return b, nil
}

func (c *ExpressionCondition) compile(src string) (*vm.Program, error) {
	if p, ok := c.cache.Load(src); ok {
		return p.(*vm.Program), nil
	}
	program, err := expr.Compile(src,
		expr.Env(exprEnv{}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", src, err)
	}
	c.cache.Store(src, program)
	return program, nil
}
