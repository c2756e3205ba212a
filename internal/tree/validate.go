package tree

import (
	"fmt"
	"strings"
)

// ValidationError lists every structural problem found in a tree.
type ValidationError struct {
	TreeID   string
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("tree %q invalid: %s", e.TreeID, e.Problems[0])
	}
	return fmt.Sprintf("tree %q invalid:\n  - %s", e.TreeID, strings.Join(e.Problems, "\n  - "))
}

// Validate checks t for:
//   - Required tree fields (id, name, root)
//   - Required node fields (id, type, name) and known node types
//   - Duplicate node ids
//   - Decorators with anything other than exactly one child
//   - Leaves without a handler id
//
// Composites without children are legal; they are returned as warnings.
func Validate(t *Tree) (warnings []string, err error) {
	if t == nil {
		return nil, &ValidationError{Problems: []string{"tree is nil"}}
	}
	var errs []string
	if t.ID == "" {
		errs = append(errs, "id is required")
	}
	if t.Name == "" {
		errs = append(errs, "name is required")
	}
	if t.Root == nil {
		errs = append(errs, "root is required")
	} else {
		v := &validator{seen: make(map[string]string)}
		v.visit(t.Root, "root")
		errs = append(errs, v.errs...)
		warnings = v.warnings
	}
	if len(errs) > 0 {
		return warnings, &ValidationError{TreeID: t.ID, Problems: errs}
	}
	return warnings, nil
}

type validator struct {
	seen     map[string]string // node id → location
	errs     []string
	warnings []string
}

func (v *validator) visit(n *Node, loc string) {
	if n == nil {
		v.errs = append(v.errs, fmt.Sprintf("%s: node is nil", loc))
		return
	}
	if n.ID == "" {
		v.errs = append(v.errs, fmt.Sprintf("%s: id is required", loc))
	} else {
		if prev, ok := v.seen[n.ID]; ok {
			v.errs = append(v.errs, fmt.Sprintf("duplicate node id %q (first seen at %s, again at %s)", n.ID, prev, loc))
		} else {
			v.seen[n.ID] = loc
		}
		loc = fmt.Sprintf("%s(%s)", loc, n.ID)
	}
	if n.Name == "" {
		v.errs = append(v.errs, fmt.Sprintf("%s: name is required", loc))
	}

	switch {
	case n.Type == "":
		v.errs = append(v.errs, fmt.Sprintf("%s: type is required", loc))
	case !n.Type.Known():
		v.errs = append(v.errs, fmt.Sprintf("%s: unknown node type %q", loc, n.Type))
	case n.Type.IsDecorator():
		if len(n.Children) != 1 {
			v.errs = append(v.errs, fmt.Sprintf("%s: %s decorator must have exactly one child, has %d", loc, n.Type, len(n.Children)))
		}
	case n.Type.IsComposite():
		if len(n.Children) == 0 {
			v.warnings = append(v.warnings, fmt.Sprintf("%s: %s composite has no children", loc, n.Type))
		}
	case n.Type == NodeTypeAction:
		if n.ActionID == "" {
			v.errs = append(v.errs, fmt.Sprintf("%s: action node requires actionId", loc))
		}
	case n.Type == NodeTypeCondition:
		if n.ConditionID == "" {
			v.errs = append(v.errs, fmt.Sprintf("%s: condition node requires conditionId", loc))
		}
	}

	for i, c := range n.Children {
		v.visit(c, fmt.Sprintf("%s.children[%d]", loc, i))
	}
}
