package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	c := NewExecutionContext("exec", "tree", map[string]interface{}{
		"host":   "db-1",
		"shadow": "from-data",
		"metrics": map[string]interface{}{
			"cpu": float64(93),
		},
	}, nil)
	c.SetVariable("shadow", "from-vars")
	c.SetVariable("metrics.cpu", "literal key")

	assert.Equal(t, 42, c.Resolve(42))
	assert.Equal(t, "plain", c.Resolve("plain"))
	assert.Equal(t, "db-1", c.Resolve("$host"))
	assert.Equal(t, "from-vars", c.Resolve("$shadow"))
	assert.Equal(t, "literal key", c.Resolve("$metrics.cpu"))
	assert.Nil(t, c.Resolve("$missing.path"))

	c.DeleteVariable("metrics.cpu")
	assert.Equal(t, float64(93), c.Resolve("$metrics.cpu"))
}

func TestLookup(t *testing.T) {
	c := NewExecutionContext("exec", "tree", map[string]interface{}{
		"a": map[string]interface{}{"b": nil},
		"s": "x",
	}, nil)

	_, ok := c.Lookup("a.b")
	assert.True(t, ok, "present nil value still exists")
	_, ok = c.Lookup("s.deeper")
	assert.False(t, ok)
	_, ok = c.Lookup("")
	assert.False(t, ok)
}

func TestNodeResults_Copy(t *testing.T) {
	c := NewExecutionContext("exec", "tree", nil, nil)
	c.RecordResult("n1", StatusSuccess)
	snap := c.NodeResults()
	snap["n1"] = StatusFailure

	s, ok := c.NodeResult("n1")
	assert.True(t, ok)
	assert.Equal(t, StatusSuccess, s)
}
