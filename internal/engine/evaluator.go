package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gyaneshwarpardhi/alerttree/internal/handler"
	"github.com/gyaneshwarpardhi/alerttree/internal/metrics"
	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

var tracer = otel.Tracer("github.com/gyaneshwarpardhi/alerttree/internal/engine")

// Decorator and composite defaults applied when a node leaves the field zero.
const (
	DefaultRepeatCount      = 1
	DefaultMaxRetries       = 3
	DefaultTimeoutMs        = 5000
	DefaultFailureThreshold = 1

	retryBaseDelay = 100 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// Evaluator walks a tree, dispatching on node type. It holds no per-walk
// state; everything mutable lives in the ExecutionContext.
type Evaluator struct {
	handlers *handler.Registry
	logger   *slog.Logger
	sleep    func(time.Duration) // retry backoff; swapped in tests
}

// NewEvaluator returns an Evaluator that resolves leaves against handlers.
func NewEvaluator(handlers *handler.Registry, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{handlers: handlers, logger: logger, sleep: time.Sleep}
}

// ExecuteNode runs n and records its status in ec before returning.
// A panic anywhere below n is converted into a Failure for n.
func (e *Evaluator) ExecuteNode(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) (res *tree.Result) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "node."+string(n.Type), trace.WithAttributes(
		attribute.String("bt.node.id", n.ID),
		attribute.String("bt.node.name", n.Name),
	))
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("node panicked", "tree_id", ec.TreeID, "node_id", n.ID, "panic", r)
			res = tree.Failure(fmt.Sprintf("node %s panicked: %v", n.ID, r))
		}
		if res == nil {
			res = tree.Failure(fmt.Sprintf("node %s produced no result", n.ID))
		}
		if res.ExecutionTimeMs == 0 {
			cp := *res
			cp.ExecutionTimeMs = time.Since(start).Milliseconds()
			res = &cp
		}
		ec.RecordResult(n.ID, res.Status)
		metrics.NodeExecutions.WithLabelValues(string(n.Type), string(res.Status)).Inc()
		span.SetAttributes(attribute.String("bt.status", string(res.Status)))
		if res.Status == tree.StatusFailure {
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()
	}()

	switch n.Type {
	case tree.NodeTypeSequence:
		return e.sequence(ctx, n, ec)
	case tree.NodeTypeSelector:
		return e.selector(ctx, n, ec)
	case tree.NodeTypeParallel:
		return e.parallel(ctx, n, ec)
	case tree.NodeTypeInverter:
		return e.inverter(ctx, n, ec)
	case tree.NodeTypeRepeater:
		return e.repeater(ctx, n, ec)
	case tree.NodeTypeRetry:
		return e.retry(ctx, n, ec)
	case tree.NodeTypeTimeout:
		return e.timeout(ctx, n, ec)
	case tree.NodeTypeSucceeder:
		return e.succeeder(ctx, n, ec)
	case tree.NodeTypeFailer:
		return e.failer(ctx, n, ec)
	case tree.NodeTypeAction:
		return e.action(ctx, n, ec)
	case tree.NodeTypeCondition:
		return e.condition(ctx, n, ec)
	default:
		return tree.Failure(fmt.Sprintf("unknown node type %q", n.Type))
	}
}

// onlyChild returns the single child of a decorator.
func onlyChild(n *tree.Node) (*tree.Node, error) {
	if len(n.Children) != 1 {
		return nil, fmt.Errorf("%s node %s must have exactly one child, has %d", n.Type, n.ID, len(n.Children))
	}
	return n.Children[0], nil
}

// intParam reads a whole-number parameter, falling back to def when absent
// or not numeric.
func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
