package handler

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

// resolved returns params[key] passed through the value resolver.
func resolved(ec *tree.ExecutionContext, params map[string]interface{}, key string) (interface{}, bool) {
	v, ok := params[key]
	if !ok {
		return nil, false
	}
	return ec.Resolve(v), true
}

// required is resolved, but a missing key is an error.
func required(ec *tree.ExecutionContext, params map[string]interface{}, key string) (interface{}, error) {
	v, ok := resolved(ec, params, key)
	if !ok {
		return nil, fmt.Errorf("parameter %q is required", key)
	}
	return v, nil
}

// requiredString reads a literal, non-empty string parameter.
func requiredString(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("parameter %q is required", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string, got %T", key, v)
	}
	return s, nil
}

// resolveDeep resolves every "$" reference inside nested maps and lists.
func resolveDeep(ec *tree.ExecutionContext, v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = resolveDeep(ec, e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = resolveDeep(ec, e)
		}
		return out
	case string:
		if strings.HasPrefix(x, "$") {
			return ec.Resolve(x)
		}
	}
	return v
}
