package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

type p = map[string]interface{}

func testContext() *tree.ExecutionContext {
	ec := tree.NewExecutionContext("exec-1", "tree-1", p{
		"host":     "db-1.prod",
		"category": "food",
		"amount":   float64(1500),
		"tags":     []interface{}{"vip", "eu"},
		"metrics":  p{"cpu": float64(93), "mem": 41},
		"empty":    "",
	}, nil)
	ec.SetVariable("threshold", 90)
	return ec
}

type condCase struct {
	name    string
	id      string
	params  p
	want    bool
	wantErr bool
}

func TestBuiltinConditions(t *testing.T) {
	r := NewRegistry(nil)
	RegisterBuiltins(r, nil, nil)

	cases := []condCase{
		{name: "equals string", id: ConditionEquals, params: p{"left": "$category", "right": "food"}, want: true},
		{name: "equals numeric across types", id: ConditionEquals, params: p{"left": "$metrics.mem", "right": float64(41)}, want: true},
		{name: "equals missing ref is nil", id: ConditionEquals, params: p{"left": "$nope", "right": nil}, want: true},
		{name: "equals missing param", id: ConditionEquals, params: p{"left": 1}, wantErr: true},
		{name: "notEquals", id: ConditionNotEquals, params: p{"left": "$category", "right": "books"}, want: true},
		{name: "greaterThan variable", id: ConditionGreaterThan, params: p{"left": "$metrics.cpu", "right": "$threshold"}, want: true},
		{name: "greaterThan equal", id: ConditionGreaterThan, params: p{"left": 5, "right": 5}, want: false},
		{name: "greaterThan non-numeric", id: ConditionGreaterThan, params: p{"left": "$host", "right": 1}, wantErr: true},
		{name: "lessThan", id: ConditionLessThan, params: p{"left": "$amount", "right": 2000}, want: true},
		{name: "contains substring", id: ConditionContains, params: p{"value": "$host", "search": "prod"}, want: true},
		{name: "contains list", id: ConditionContains, params: p{"value": "$tags", "search": "vip"}, want: true},
		{name: "contains list miss", id: ConditionContains, params: p{"value": "$tags", "search": "us"}, want: false},
		{name: "contains map key", id: ConditionContains, params: p{"value": "$metrics", "search": "cpu"}, want: true},
		{name: "matches", id: ConditionMatches, params: p{"value": "$host", "pattern": `^db-\d+\.prod$`}, want: true},
		{name: "matches false", id: ConditionMatches, params: p{"value": "$host", "pattern": `^web`}, want: false},
		{name: "matches bad regex", id: ConditionMatches, params: p{"value": "$host", "pattern": `(`}, wantErr: true},
		{name: "exists data path", id: ConditionExists, params: p{"path": "metrics.cpu"}, want: true},
		{name: "exists variable with $", id: ConditionExists, params: p{"path": "$threshold"}, want: true},
		{name: "exists missing", id: ConditionExists, params: p{"path": "metrics.disk"}, want: false},
		{name: "isEmpty empty string", id: ConditionIsEmpty, params: p{"value": "$empty"}, want: true},
		{name: "isEmpty missing ref", id: ConditionIsEmpty, params: p{"value": "$nope"}, want: true},
		{name: "isEmpty list", id: ConditionIsEmpty, params: p{"value": "$tags"}, want: false},
		{name: "expression", id: ConditionExpression, params: p{"expression": `data.metrics.cpu > 90 && vars.threshold == 90`}, want: true},
		{name: "expression false", id: ConditionExpression, params: p{"expression": `data.category == "books"`}, want: false},
		{name: "expression syntax error", id: ConditionExpression, params: p{"expression": `data.cpu >`}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := r.Condition(tc.id)
			require.NoError(t, err)
			got, err := h.Evaluate(context.Background(), testContext(), tc.params)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
