package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

// sequence succeeds when every child succeeds, stopping at the first child
// that fails or is still running.
func (e *Evaluator) sequence(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	for _, child := range n.Children {
		res := e.ExecuteNode(ctx, child, ec)
		switch res.Status {
		case tree.StatusFailure:
			return &tree.Result{
				Status: tree.StatusFailure,
				Data:   res.Data,
				Error:  fmt.Sprintf("sequence failed at child %q: %s", child.Name, res.Error),
			}
		case tree.StatusRunning:
			return tree.Running()
		}
	}
	return tree.Success(nil)
}

// selector succeeds with the data of the first succeeding child.
func (e *Evaluator) selector(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	for _, child := range n.Children {
		res := e.ExecuteNode(ctx, child, ec)
		switch res.Status {
		case tree.StatusSuccess:
			return tree.Success(res.Data)
		case tree.StatusRunning:
			return tree.Running()
		}
	}
	return tree.Failure("all selector children failed")
}

// parallel runs every child concurrently to completion, then applies the
// thresholds. The failure threshold is checked first, so it wins when both
// are met.
func (e *Evaluator) parallel(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	if len(n.Children) == 0 {
		return tree.Success(nil)
	}
	// Thresholds below 1 fall back to the defaults, like decorator fields.
	successThreshold := orDefault(intParam(n.Parameters, "successThreshold", 0), len(n.Children))
	failureThreshold := orDefault(intParam(n.Parameters, "failureThreshold", 0), DefaultFailureThreshold)

	results := make([]*tree.Result, len(n.Children))
	var g errgroup.Group
	for i, child := range n.Children {
		g.Go(func() error {
			results[i] = e.ExecuteNode(ctx, child, ec)
			return nil
		})
	}
	_ = g.Wait()

	var successCount, failureCount, runningCount int
	for _, res := range results {
		switch res.Status {
		case tree.StatusSuccess:
			successCount++
		case tree.StatusFailure:
			failureCount++
		case tree.StatusRunning:
			runningCount++
		}
	}
	counts := map[string]interface{}{
		"successCount": successCount,
		"failureCount": failureCount,
		"runningCount": runningCount,
	}

	switch {
	case failureCount >= failureThreshold:
		return &tree.Result{
			Status: tree.StatusFailure,
			Data:   counts,
			Error:  fmt.Sprintf("parallel failure threshold reached (%d/%d failed)", failureCount, failureThreshold),
		}
	case successCount >= successThreshold:
		return tree.Success(counts)
	case runningCount > 0:
		return &tree.Result{Status: tree.StatusRunning, Data: counts}
	default:
		return &tree.Result{
			Status: tree.StatusFailure,
			Data:   counts,
			Error:  fmt.Sprintf("parallel did not meet success threshold (%d/%d succeeded)", successCount, successThreshold),
		}
	}
}
