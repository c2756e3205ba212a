package tree_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

func action(id string) *tree.Node {
	return &tree.Node{ID: id, Type: tree.NodeTypeAction, Name: id, ActionID: "log"}
}

func wrap(id string, typ tree.NodeType, children ...*tree.Node) *tree.Node {
	return &tree.Node{ID: id, Type: typ, Name: id, Children: children}
}

func newTree(root *tree.Node) *tree.Tree {
	return &tree.Tree{ID: "t1", Name: "test tree", Version: "1.0.0", Root: root}
}

func TestValidate_OK(t *testing.T) {
	root := wrap("seq", tree.NodeTypeSequence,
		&tree.Node{ID: "cond", Type: tree.NodeTypeCondition, Name: "cond", ConditionID: "exists"},
		wrap("inv", tree.NodeTypeInverter, action("a1")),
	)
	warnings, err := tree.Validate(newTree(root))
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidate_TreeFields(t *testing.T) {
	_, err := tree.Validate(&tree.Tree{})
	var verr *tree.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 3)
}

func TestValidate_DecoratorChildCount(t *testing.T) {
	decorators := []tree.NodeType{
		tree.NodeTypeInverter, tree.NodeTypeRepeater, tree.NodeTypeRetry,
		tree.NodeTypeTimeout, tree.NodeTypeSucceeder, tree.NodeTypeFailer,
	}
	for _, typ := range decorators {
		t.Run(string(typ)+"/none", func(t *testing.T) {
			_, err := tree.Validate(newTree(wrap("d", typ)))
			require.Error(t, err)
			require.Contains(t, err.Error(), "exactly one child")
		})
		t.Run(string(typ)+"/two", func(t *testing.T) {
			_, err := tree.Validate(newTree(wrap("d", typ, action("a1"), action("a2"))))
			require.Error(t, err)
			require.Contains(t, err.Error(), "exactly one child")
		})
	}
}

func TestValidate_DuplicateNodeID(t *testing.T) {
	root := wrap("seq", tree.NodeTypeSequence, action("same"), action("same"))
	_, err := tree.Validate(newTree(root))
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate node id")
}

func TestValidate_EmptyCompositeWarns(t *testing.T) {
	warnings, err := tree.Validate(newTree(wrap("sel", tree.NodeTypeSelector)))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "no children")
}

func TestValidate_LeafHandlerIDs(t *testing.T) {
	cases := []struct {
		name string
		node *tree.Node
		want string
	}{
		{"action", &tree.Node{ID: "a", Type: tree.NodeTypeAction, Name: "a"}, "actionId"},
		{"condition", &tree.Node{ID: "c", Type: tree.NodeTypeCondition, Name: "c"}, "conditionId"},
		{"no type", &tree.Node{ID: "x", Name: "x"}, "type is required"},
		{"unknown type", &tree.Node{ID: "x", Name: "x", Type: "loop"}, "unknown node type"},
		{"no name", &tree.Node{ID: "x", Type: tree.NodeTypeSequence}, "name is required"},
		{"no id", &tree.Node{Name: "x", Type: tree.NodeTypeSequence}, "id is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tree.Validate(newTree(tc.node))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
