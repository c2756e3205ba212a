package tree

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// DefaultVersion is assigned to imported trees that carry no version.
const DefaultVersion = "1.0.0"

// FromJSON parses a tree definition, fills in a default version and
// timestamps when absent, and validates it. Validation warnings are returned
// alongside the tree.
func FromJSON(data []byte) (*Tree, []string, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, nil, fmt.Errorf("parse tree: %w", err)
	}
	now := time.Now().UTC()
	if t.Version == "" {
		t.Version = DefaultVersion
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	warnings, err := Validate(&t)
	if err != nil {
		return nil, warnings, err
	}
	return &t, warnings, nil
}

// ReadFile loads a tree definition from disk via FromJSON.
func ReadFile(path string) (*Tree, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read tree %s: %w", path, err)
	}
	t, warnings, err := FromJSON(data)
	if err != nil {
		return nil, warnings, fmt.Errorf("%s: %w", path, err)
	}
	return t, warnings, nil
}

// ToJSON serializes t in the on-disk/wire format.
func ToJSON(t *Tree) ([]byte, error) {
	out, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tree %s: %w", t.ID, err)
	}
	return out, nil
}

// Copy returns a deep copy of t, node ids included.
func Copy(t *Tree) *Tree {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Root = copyNode(t.Root)
	return &cp
}

// Clone deep-copies t under newID, renames it (newName, or "<name> (copy)"
// when empty), stamps fresh timestamps, and gives every node a new id.
// The parent/child shape is preserved; t is left untouched.
func Clone(t *Tree, newID, newName string) *Tree {
	cp := Copy(t)
	cp.ID = newID
	if newName != "" {
		cp.Name = newName
	} else {
		cp.Name = t.Name + " (copy)"
	}
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	cp.Root.Walk(func(n *Node) bool {
		n.ID = uuid.NewString()
		return true
	})
	return cp
}

func copyNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Parameters = copyMap(n.Parameters)
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = copyNode(c)
		}
	}
	return &cp
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		return copyMap(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
