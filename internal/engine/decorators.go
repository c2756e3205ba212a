package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

// inverter flips Success and Failure; Running passes through.
func (e *Evaluator) inverter(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	child, err := onlyChild(n)
	if err != nil {
		return tree.Failure(err.Error())
	}
	res := e.ExecuteNode(ctx, child, ec)
	switch res.Status {
	case tree.StatusSuccess:
		return &tree.Result{Status: tree.StatusFailure, Data: res.Data, Error: fmt.Sprintf("inverted success of %q", child.Name)}
	case tree.StatusFailure:
		return &tree.Result{Status: tree.StatusSuccess, Data: res.Data}
	}
	return res
}

// repeater runs its child repeatCount times in sequence.
func (e *Evaluator) repeater(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	child, err := onlyChild(n)
	if err != nil {
		return tree.Failure(err.Error())
	}
	count := orDefault(n.RepeatCount, DefaultRepeatCount)
	for i := 0; i < count; i++ {
		res := e.ExecuteNode(ctx, child, ec)
		switch res.Status {
		case tree.StatusFailure:
			return &tree.Result{
				Status: tree.StatusFailure,
				Data:   map[string]interface{}{"iterations": i + 1},
				Error:  fmt.Sprintf("repeater failed at iteration %d: %s", i+1, res.Error),
			}
		case tree.StatusRunning:
			return &tree.Result{Status: tree.StatusRunning, Data: map[string]interface{}{"iterations": i + 1}}
		}
	}
	return tree.Success(map[string]interface{}{"iterations": count})
}

// retry makes up to maxRetries+1 attempts, backing off between failures.
func (e *Evaluator) retry(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	child, err := onlyChild(n)
	if err != nil {
		return tree.Failure(err.Error())
	}
	maxRetries := orDefault(n.MaxRetries, DefaultMaxRetries)

	var last *tree.Result
	for attempt := 0; attempt <= maxRetries; attempt++ {
		res := e.ExecuteNode(ctx, child, ec)
		switch res.Status {
		case tree.StatusSuccess:
			data := make(map[string]interface{}, len(res.Data)+1)
			for k, v := range res.Data {
				data[k] = v
			}
			data["attempts"] = attempt + 1
			return tree.Success(data)
		case tree.StatusRunning:
			return res
		}
		last = res
		if attempt < maxRetries {
			e.sleep(retryBackoff(attempt))
		}
	}
	return tree.Failure(fmt.Sprintf("failed after %d attempts: %s", maxRetries+1, last.Error))
}

// retryBackoff is min(100ms * 2^attempt, 5s).
func retryBackoff(attempt int) time.Duration {
	if attempt >= 6 {
		return retryMaxDelay
	}
	d := retryBaseDelay << attempt
	if d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}

// timeout races the child against a timer. The child is not cancelled when
// the timer wins: it finishes in the background and its result is discarded.
func (e *Evaluator) timeout(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	child, err := onlyChild(n)
	if err != nil {
		return tree.Failure(err.Error())
	}
	timeoutMs := n.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}

	done := make(chan *tree.Result, 1)
	go func() {
		done <- e.ExecuteNode(ctx, child, ec)
	}()

	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case res := <-done:
		return res
	case <-timer.C:
		return &tree.Result{
			Status:          tree.StatusFailure,
			Error:           fmt.Sprintf("Timeout after %dms", timeoutMs),
			ExecutionTimeMs: timeoutMs,
		}
	}
}

// succeeder runs its optional child for side effects and always succeeds.
func (e *Evaluator) succeeder(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	if len(n.Children) > 0 {
		e.ExecuteNode(ctx, n.Children[0], ec)
	}
	return tree.Success(nil)
}

// failer runs its optional child for side effects and always fails.
func (e *Evaluator) failer(ctx context.Context, n *tree.Node, ec *tree.ExecutionContext) *tree.Result {
	if len(n.Children) > 0 {
		e.ExecuteNode(ctx, n.Children[0], ec)
	}
	return tree.Failure("Failer node")
}
