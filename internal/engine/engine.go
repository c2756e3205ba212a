package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gyaneshwarpardhi/alerttree/internal/config"
	"github.com/gyaneshwarpardhi/alerttree/internal/event"
	"github.com/gyaneshwarpardhi/alerttree/internal/handler"
	"github.com/gyaneshwarpardhi/alerttree/internal/metrics"
	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

var (
	// ErrTreeNotFound matches every TreeNotFoundError via errors.Is.
	ErrTreeNotFound = errors.New("tree not found")
	// ErrQueueFull is returned by ExecuteAsync when the queue has no room.
	ErrQueueFull = errors.New("execution queue full")
	// ErrTreeExists is returned when cloning onto an id already in use.
	ErrTreeExists = errors.New("tree already exists")
)

// TreeNotFoundError reports an operation on an unregistered tree id.
type TreeNotFoundError struct {
	ID string
}

func (e *TreeNotFoundError) Error() string { return fmt.Sprintf("tree %q not found", e.ID) }

func (e *TreeNotFoundError) Is(target error) bool { return target == ErrTreeNotFound }

// Engine owns the registered trees and their execution stats.
type Engine struct {
	mu    sync.RWMutex
	trees map[string]*tree.Tree
	stats map[string]*statsEntry

	handlers *handler.Registry
	eval     *Evaluator
	sink     event.Publisher
	logger   *slog.Logger

	execPool   *workerPool[*execWork]
	notifyPool *workerPool[*event.Event]
}

type execWork struct {
	treeID   string
	data     map[string]interface{}
	metadata map[string]interface{}
}

// New creates an Engine and starts its worker pools. sink receives one
// event per execution plus anything emit actions publish; nil discards.
func New(ctx context.Context, handlers *handler.Registry, sink event.Publisher, conf config.EngineConf, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = event.PublisherFunc(func(*event.Event) {})
	}
	conf.ApplyDefaults()
	e := &Engine{
		trees:    make(map[string]*tree.Tree),
		stats:    make(map[string]*statsEntry),
		handlers: handlers,
		eval:     NewEvaluator(handlers, logger),
		sink:     sink,
		logger:   logger,
	}

	// Start the notify pool first so executions can publish into it.
	e.notifyPool = newWorkerPool[*event.Event](ctx, conf.NotifyWorkers, conf.NotifyQueueDepth,
		func(_ context.Context, ev *event.Event) {
			e.sink.Publish(ev)
			metrics.NotificationsPublished.Inc()
		},
	)
	e.execPool = newWorkerPool[*execWork](ctx, conf.ExecuteWorkers, conf.QueueDepth,
		func(ctx context.Context, w *execWork) {
			if _, err := e.Execute(ctx, w.treeID, w.data, w.metadata); err != nil {
				e.logger.Warn("async execution failed", "tree_id", w.treeID, "err", err)
			}
		},
	)
	return e
}

// Handlers returns the handler registry leaves resolve against.
func (e *Engine) Handlers() *handler.Registry {
	return e.handlers
}

// RegisterAction adds or replaces an action handler.
func (e *Engine) RegisterAction(id string, h handler.ActionHandler) {
	e.handlers.RegisterAction(id, h)
}

// RegisterCondition adds or replaces a condition handler.
func (e *Engine) RegisterCondition(id string, h handler.ConditionHandler) {
	e.handlers.RegisterCondition(id, h)
}

// RegisterTree validates t and makes it executable with zeroed stats.
// Registering an id again replaces the tree and resets its stats.
func (e *Engine) RegisterTree(t *tree.Tree) error {
	warnings, err := tree.Validate(t)
	for _, w := range warnings {
		e.logger.Warn("tree validation warning", "tree_id", t.ID, "warning", w)
	}
	if err != nil {
		return err
	}
	stored := tree.Copy(t)

	e.mu.Lock()
	_, replaced := e.trees[t.ID]
	e.trees[t.ID] = stored
	e.stats[t.ID] = &statsEntry{}
	count := len(e.trees)
	e.mu.Unlock()

	metrics.TreesRegistered.Set(float64(count))
	e.logger.Info("tree registered", "tree_id", t.ID, "name", t.Name, "version", t.Version,
		"nodes", t.Root.Count(), "replaced", replaced)
	return nil
}

// ImportTree parses, validates and registers a JSON tree definition.
func (e *Engine) ImportTree(data []byte) (*tree.Tree, error) {
	t, _, err := tree.FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := e.RegisterTree(t); err != nil {
		return nil, err
	}
	return tree.Copy(t), nil
}

// UnregisterTree removes a tree and its stats.
func (e *Engine) UnregisterTree(id string) error {
	e.mu.Lock()
	if _, ok := e.trees[id]; !ok {
		e.mu.Unlock()
		return &TreeNotFoundError{ID: id}
	}
	delete(e.trees, id)
	delete(e.stats, id)
	count := len(e.trees)
	e.mu.Unlock()

	metrics.TreesRegistered.Set(float64(count))
	e.logger.Info("tree unregistered", "tree_id", id)
	return nil
}

// Tree returns a copy of a registered tree.
func (e *Engine) Tree(id string) (*tree.Tree, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.trees[id]
	if !ok {
		return nil, &TreeNotFoundError{ID: id}
	}
	return tree.Copy(t), nil
}

// Trees returns copies of all registered trees, ordered by id.
func (e *Engine) Trees() []*tree.Tree {
	e.mu.RLock()
	out := make([]*tree.Tree, 0, len(e.trees))
	for _, t := range e.trees {
		out = append(out, tree.Copy(t))
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats returns a snapshot of one tree's execution stats.
func (e *Engine) Stats(id string) (Stats, error) {
	e.mu.RLock()
	st, ok := e.stats[id]
	e.mu.RUnlock()
	if !ok {
		return Stats{}, &TreeNotFoundError{ID: id}
	}
	return st.snapshot(), nil
}

// AllStats returns a snapshot of every tree's stats keyed by tree id.
func (e *Engine) AllStats() map[string]Stats {
	e.mu.RLock()
	entries := make(map[string]*statsEntry, len(e.stats))
	for id, st := range e.stats {
		entries[id] = st
	}
	e.mu.RUnlock()
	out := make(map[string]Stats, len(entries))
	for id, st := range entries {
		out[id] = st.snapshot()
	}
	return out
}

// ExportTree serializes a registered tree.
func (e *Engine) ExportTree(id string) ([]byte, error) {
	t, err := e.Tree(id)
	if err != nil {
		return nil, err
	}
	return tree.ToJSON(t)
}

// CloneTree copies a registered tree under newID with regenerated node ids
// and registers the copy.
func (e *Engine) CloneTree(id, newID, newName string) (*tree.Tree, error) {
	src, err := e.Tree(id)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	_, taken := e.trees[newID]
	e.mu.RUnlock()
	if taken {
		return nil, fmt.Errorf("clone %s: %w: %s", id, ErrTreeExists, newID)
	}
	cp := tree.Clone(src, newID, newName)
	if err := e.RegisterTree(cp); err != nil {
		return nil, fmt.Errorf("clone %s: %w", id, err)
	}
	return cp, nil
}

// Execute walks a registered tree with a fresh ExecutionContext, records the
// outcome in the tree's stats and publishes a tree.executed event.
// Handler failures never surface here as errors; only an unknown tree does.
func (e *Engine) Execute(ctx context.Context, treeID string, data, metadata map[string]interface{}) (*tree.Result, error) {
	e.mu.RLock()
	t, ok := e.trees[treeID]
	st := e.stats[treeID]
	e.mu.RUnlock()
	if !ok {
		return nil, &TreeNotFoundError{ID: treeID}
	}

	ec := tree.NewExecutionContext(uuid.NewString(), t.ID, data, metadata)
	ctx, span := tracer.Start(ctx, "tree.execute", trace.WithAttributes(
		attribute.String("bt.tree.id", t.ID),
		attribute.String("bt.tree.version", t.Version),
		attribute.String("bt.execution.id", ec.ExecutionID),
	))
	defer span.End()

	res := e.walk(ctx, t, ec)

	st.record(res.Status, res.ExecutionTimeMs, time.Now())
	metrics.TreeExecutions.WithLabelValues(t.ID, string(res.Status)).Inc()
	metrics.TreeExecutionDuration.WithLabelValues(t.ID).Observe(float64(res.ExecutionTimeMs))
	span.SetAttributes(attribute.String("bt.status", string(res.Status)))
	if res.Status == tree.StatusFailure {
		span.SetStatus(codes.Error, res.Error)
	}

	e.Publish(event.TreeExecuted(t.ID, t.Name, ec.ExecutionID, string(res.Status), res.ExecutionTimeMs, res.Data))
	return res, nil
}

// walk runs the root, turning any escaped panic into a Failure.
func (e *Engine) walk(ctx context.Context, t *tree.Tree, ec *tree.ExecutionContext) (res *tree.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tree execution panicked", "tree_id", t.ID, "execution_id", ec.ExecutionID, "panic", r)
			res = &tree.Result{
				Status:          tree.StatusFailure,
				Error:           fmt.Sprintf("execution panicked: %v", r),
				ExecutionTimeMs: time.Since(ec.StartTime).Milliseconds(),
			}
		}
	}()
	return e.eval.ExecuteNode(ctx, t.Root, ec)
}

// ExecuteAsync queues an execution for the worker pool. The result is only
// observable through stats and the published event.
func (e *Engine) ExecuteAsync(treeID string, data, metadata map[string]interface{}) error {
	e.mu.RLock()
	_, ok := e.trees[treeID]
	e.mu.RUnlock()
	if !ok {
		return &TreeNotFoundError{ID: treeID}
	}
	if !e.execPool.Submit(&execWork{treeID: treeID, data: data, metadata: metadata}) {
		metrics.ExecutionsDropped.Inc()
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.execPool.QueueCap())
	}
	metrics.ExecutionsEnqueued.Inc()
	return nil
}

// Publish hands ev to the notification sink without blocking. Events are
// dropped when the notification queue is full.
func (e *Engine) Publish(ev *event.Event) {
	if !e.notifyPool.Submit(ev) {
		metrics.NotificationsDropped.Inc()
		e.logger.Warn("notification dropped", "event_id", ev.ID, "type", ev.Type, "source", ev.Source)
	}
}

// QueueUtilization returns async queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.execPool.QueueCap() == 0 {
		return 0
	}
	return float64(e.execPool.QueueLen()) / float64(e.execPool.QueueCap())
}

// Shutdown drains queued executions, then queued notifications.
func (e *Engine) Shutdown() {
	e.execPool.Drain()
	e.notifyPool.Drain()
}
