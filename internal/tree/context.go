package tree

import (
	"strings"
	"sync"
	"time"
)

// ExecutionContext carries per-execution state through a tree walk.
// It belongs to exactly one Engine.Execute call. Parallel and Timeout nodes
// touch it from several goroutines, so the mutable parts are guarded.
type ExecutionContext struct {
	ExecutionID string
	TreeID      string
	Data        map[string]interface{} // caller input, read-only during the walk
	Metadata    map[string]interface{}
	StartTime   time.Time

	mu          sync.RWMutex
	variables   map[string]interface{}
	nodeResults map[string]Status
}

// NewExecutionContext returns a context with empty variables.
func NewExecutionContext(executionID, treeID string, data, metadata map[string]interface{}) *ExecutionContext {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &ExecutionContext{
		ExecutionID: executionID,
		TreeID:      treeID,
		Data:        data,
		Metadata:    metadata,
		StartTime:   time.Now(),
		variables:   make(map[string]interface{}),
		nodeResults: make(map[string]Status),
	}
}

// Variable returns the execution-scoped variable key.
func (c *ExecutionContext) Variable(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[key]
	return v, ok
}

// SetVariable stores an execution-scoped variable.
func (c *ExecutionContext) SetVariable(key string, val interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[key] = val
}

// DeleteVariable removes an execution-scoped variable.
func (c *ExecutionContext) DeleteVariable(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.variables, key)
}

// Variables returns a copy of the variable store.
func (c *ExecutionContext) Variables() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// RecordResult stores the last observed status of a node.
func (c *ExecutionContext) RecordResult(nodeID string, s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeResults[nodeID] = s
}

// NodeResult returns the last observed status of a node.
func (c *ExecutionContext) NodeResult(nodeID string) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.nodeResults[nodeID]
	return s, ok
}

// NodeResults returns a copy of the node id → status map.
func (c *ExecutionContext) NodeResults() map[string]Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Status, len(c.nodeResults))
	for k, v := range c.nodeResults {
		out[k] = v
	}
	return out
}

// Resolve turns a leaf parameter into a value. Strings starting with "$" are
// references: the rest of the string is looked up as a variable first, then
// as a dot-path into Data. A missing reference resolves to nil. Anything else
// is returned as-is.
func (c *ExecutionContext) Resolve(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return v
	}
	val, _ := c.Lookup(strings.TrimPrefix(s, "$"))
	return val
}

// Lookup finds ref as a variable or, failing that, as a dot-path into Data.
func (c *ExecutionContext) Lookup(ref string) (interface{}, bool) {
	if ref == "" {
		return nil, false
	}
	if v, ok := c.Variable(ref); ok {
		return v, true
	}
	return resolveMap(c.Data, strings.Split(ref, "."))
}

func resolveMap(m map[string]interface{}, path []string) (interface{}, bool) {
	if len(path) == 0 || m == nil {
		return nil, false
	}
	val, ok := m[path[0]]
	if !ok {
		return nil, false
	}
	if len(path) == 1 {
		return val, true
	}
	sub, ok := val.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return resolveMap(sub, path[1:])
}
