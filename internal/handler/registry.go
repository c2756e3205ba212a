package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

// ErrHandlerNotFound is returned when a leaf references an unregistered id.
var ErrHandlerNotFound = errors.New("handler not found")

// ActionHandler implements the behavior of one action id.
// Implementations validate their own parameters.
type ActionHandler interface {
	Execute(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (*tree.Result, error)
}

// ConditionHandler implements one boolean predicate.
type ConditionHandler interface {
	Evaluate(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error)
}

// ActionFunc adapts a function to ActionHandler.
type ActionFunc func(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (*tree.Result, error)

func (f ActionFunc) Execute(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (*tree.Result, error) {
	return f(ctx, ec, params)
}

// ConditionFunc adapts a function to ConditionHandler.
type ConditionFunc func(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error)

func (f ConditionFunc) Evaluate(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (bool, error) {
	return f(ctx, ec, params)
}

// Registry maps action and condition ids to their handlers.
// It is safe for concurrent use; registering an existing id replaces it.
type Registry struct {
	mu         sync.RWMutex
	actions    map[string]ActionHandler
	conditions map[string]ConditionHandler
	logger     *slog.Logger
}

// NewRegistry creates an empty Registry. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		actions:    make(map[string]ActionHandler),
		conditions: make(map[string]ConditionHandler),
		logger:     logger,
	}
}

// RegisterAction adds or replaces the handler for an action id.
func (r *Registry) RegisterAction(id string, h ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[id]; exists {
		r.logger.Warn("overwriting action handler", "action_id", id)
	}
	r.actions[id] = h
}

// RegisterCondition adds or replaces the handler for a condition id.
func (r *Registry) RegisterCondition(id string, h ConditionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conditions[id]; exists {
		r.logger.Warn("overwriting condition handler", "condition_id", id)
	}
	r.conditions[id] = h
}

// Action returns the handler for an action id.
func (r *Registry) Action(id string) (ActionHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.actions[id]
	if !ok {
		return nil, fmt.Errorf("action %q: %w", id, ErrHandlerNotFound)
	}
	return h, nil
}

// Condition returns the handler for a condition id.
func (r *Registry) Condition(id string) (ConditionHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conditions[id]
	if !ok {
		return nil, fmt.Errorf("condition %q: %w", id, ErrHandlerNotFound)
	}
	return h, nil
}

// Actions returns all registered action ids, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for k := range r.actions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Conditions returns all registered condition ids, sorted.
func (r *Registry) Conditions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conditions))
	for k := range r.conditions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
