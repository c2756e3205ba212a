package tree

import "time"

// NodeType discriminates the node kinds a tree may contain.
type NodeType string

const (
	// Composites.
	NodeTypeSequence NodeType = "sequence"
	NodeTypeSelector NodeType = "selector"
	NodeTypeParallel NodeType = "parallel"

	// Decorators.
	NodeTypeInverter  NodeType = "inverter"
	NodeTypeRepeater  NodeType = "repeater"
	NodeTypeRetry     NodeType = "retry"
	NodeTypeTimeout   NodeType = "timeout"
	NodeTypeSucceeder NodeType = "succeeder"
	NodeTypeFailer    NodeType = "failer"

	// Leaves.
	NodeTypeAction    NodeType = "action"
	NodeTypeCondition NodeType = "condition"
)

// IsComposite reports whether t combines the results of several children.
func (t NodeType) IsComposite() bool {
	switch t {
	case NodeTypeSequence, NodeTypeSelector, NodeTypeParallel:
		return true
	}
	return false
}

// IsDecorator reports whether t wraps exactly one child.
func (t NodeType) IsDecorator() bool {
	switch t {
	case NodeTypeInverter, NodeTypeRepeater, NodeTypeRetry, NodeTypeTimeout, NodeTypeSucceeder, NodeTypeFailer:
		return true
	}
	return false
}

// IsLeaf reports whether t performs work directly.
func (t NodeType) IsLeaf() bool {
	return t == NodeTypeAction || t == NodeTypeCondition
}

// Known reports whether t is one of the supported node kinds.
func (t NodeType) Known() bool {
	return t.IsComposite() || t.IsDecorator() || t.IsLeaf()
}

// Node is a single node of a behavior tree. A node owns its children.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Name     string   `json:"name"`
	Children []*Node  `json:"children,omitempty"`

	// Decorator settings. Zero means "use the default".
	MaxRetries  int   `json:"maxRetries,omitempty"`
	RepeatCount int   `json:"repeatCount,omitempty"`
	TimeoutMs   int64 `json:"timeoutMs,omitempty"`

	// Leaf settings.
	ActionID    string                 `json:"actionId,omitempty"`
	ConditionID string                 `json:"conditionId,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// Tree is a named, versioned behavior tree.
type Tree struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	Root        *Node     `json:"root"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Walk visits n and all of its descendants depth-first, pre-order.
// Returning false from fn stops descent below the current node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node) bool {
		total++
		return true
	})
	return total
}
