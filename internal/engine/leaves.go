package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/alerttree/internal/handler"
	"github.com/gyaneshwarpardhi/alerttree/internal/metrics"
	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

func (e *Evaluator) action(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	start := time.Now()
	h, err := e.handlers.Action(n.ActionID)
	if err != nil {
		metrics.HandlerFailures.WithLabelValues("action", n.ActionID, "not_found").Inc()
		return tree.Failure(fmt.Sprintf("Action handler not found: %s", n.ActionID))
	}
	res, err := callAction(ctx, h, ec, n.Parameters)
	if err != nil {
		metrics.HandlerFailures.WithLabelValues("action", n.ActionID, "error").Inc()
		res = tree.Failure(fmt.Sprintf("Action %s failed: %s", n.ActionID, err))
	}
	if res == nil {
		res = tree.Success(nil)
	}
	// The handler may share or cache its result; stamp a copy.
	out := *res
	if out.Status == "" {
		out.Status = tree.StatusSuccess
	}
	out.ExecutionTimeMs = time.Since(start).Milliseconds()
	return &out
}

func (e *Evaluator) condition(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	h, err := e.handlers.Condition(n.ConditionID)
	if err != nil {
		metrics.HandlerFailures.WithLabelValues("condition", n.ConditionID, "not_found").Inc()
		return tree.Failure(fmt.Sprintf("Condition handler not found: %s", n.ConditionID))
	}
	ok, err := callCondition(ctx, h, ec, n.Parameters)
	if err != nil {
		metrics.HandlerFailures.WithLabelValues("condition", n.ConditionID, "error").Inc()
		return tree.Failure(fmt.Sprintf("Condition %s failed: %s", n.ConditionID, err))
	}
	data := map[string]interface{}{"conditionResult": ok}
	if ok {
		return tree.Success(data)
	}
	return &tree.Result{Status: tree.StatusFailure, Data: data}
}

// errHandlerPanic wraps a value recovered from a handler.
var errHandlerPanic = errors.New("handler panicked")

func callAction(ctx context.Context, h handler.ActionHandler, ec *tree.ExecutionContext, params map[string]interface{}) (res *tree.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()
	return h.Execute(ctx, ec, params)
}

func callCondition(ctx context.Context, h handler.ConditionHandler, ec *tree.ExecutionContext, params map[string]interface{}) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()
	return h.Evaluate(ctx, ec, params)
}
