package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/alerttree/internal/event"
	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

// Built-in action ids.
const (
	ActionLog           = "log"
	ActionSetVariable   = "setVariable"
	ActionClearVariable = "clearVariable"
	ActionEmit          = "emit"
	ActionWait          = "wait"
)

// LogAction writes "message" at "level" (debug|info|warn|error, default info).
type LogAction struct {
	Logger *slog.Logger
}

func (a LogAction) Execute(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (*tree.Result, error) {
	msg, err := required(ec, params, "message")
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if lv, ok := params["level"].(string); ok {
		if err := level.UnmarshalText([]byte(strings.ToUpper(lv))); err != nil {
			return nil, fmt.Errorf("log: invalid level %q", lv)
		}
	}
	l := a.Logger
	if l == nil {
		l = slog.Default()
	}
	text := fmt.Sprintf("%v", msg)
	l.Log(ctx, level, text, "tree_id", ec.TreeID, "execution_id", ec.ExecutionID)
	return tree.Success(map[string]interface{}{"message": text}), nil
}

// setVariable stores the resolved "value" under the literal "key".
func setVariableAction(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (*tree.Result, error) {
	key, err := requiredString(params, "key")
	if err != nil {
		return nil, err
	}
	val, err := required(ec, params, "value")
	if err != nil {
		return nil, err
	}
	ec.SetVariable(key, val)
	return tree.Success(map[string]interface{}{"key": key, "value": val}), nil
}

func clearVariableAction(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (*tree.Result, error) {
	key, err := requiredString(params, "key")
	if err != nil {
		return nil, err
	}
	ec.DeleteVariable(key)
	return tree.Success(map[string]interface{}{"key": key}), nil
}

// EmitAction forwards an "event" with a resolved "payload" to the
// notification publisher. It does no I/O itself.
type EmitAction struct {
	Publisher event.Publisher
}

func (a EmitAction) Execute(_ context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (*tree.Result, error) {
	name, err := requiredString(params, "event")
	if err != nil {
		return nil, err
	}
	if a.Publisher == nil {
		return nil, fmt.Errorf("emit: no publisher configured")
	}
	var payload map[string]interface{}
	if raw, ok := params["payload"]; ok {
		switch p := resolveDeep(ec, raw).(type) {
		case map[string]interface{}:
			payload = p
		default:
			payload = map[string]interface{}{"value": p}
		}
	}
	ev := event.New(name, ec.TreeID, ec.ExecutionID, payload)
	a.Publisher.Publish(ev)
	return tree.Success(map[string]interface{}{"event": name, "eventId": ev.ID}), nil
}

// wait sleeps for "durationMs". It gives up early when ctx is done.
func waitAction(ctx context.Context, ec *tree.ExecutionContext, params map[string]interface{}) (*tree.Result, error) {
	raw, err := required(ec, params, "durationMs")
	if err != nil {
		return nil, err
	}
	ms, ok := toFloat64(raw)
	if !ok || ms < 0 {
		return nil, fmt.Errorf("wait: durationMs must be a non-negative number, got %v", raw)
	}
	timer := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return tree.Success(map[string]interface{}{"waitedMs": ms}), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wait interrupted: %w", ctx.Err())
	}
}
