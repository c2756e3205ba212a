package handler

import (
	"log/slog"

	"github.com/gyaneshwarpardhi/alerttree/internal/event"
)

// RegisterBuiltins installs the stock actions and conditions. emit forwards
// to pub; log writes to logger (nil = slog.Default()).
func RegisterBuiltins(r *Registry, pub event.Publisher, logger *slog.Logger) {
	r.RegisterAction(ActionLog, LogAction{Logger: logger})
	r.RegisterAction(ActionSetVariable, ActionFunc(setVariableAction))
	r.RegisterAction(ActionClearVariable, ActionFunc(clearVariableAction))
	r.RegisterAction(ActionEmit, EmitAction{Publisher: pub})
	r.RegisterAction(ActionWait, ActionFunc(waitAction))

	r.RegisterCondition(ConditionEquals, ConditionFunc(equalsCondition))
	r.RegisterCondition(ConditionNotEquals, ConditionFunc(notEqualsCondition))
	r.RegisterCondition(ConditionGreaterThan, ConditionFunc(greaterThanCondition))
	r.RegisterCondition(ConditionLessThan, ConditionFunc(lessThanCondition))
	r.RegisterCondition(ConditionContains, ConditionFunc(containsCondition))
	r.RegisterCondition(ConditionMatches, ConditionFunc(matchesCondition))
	r.RegisterCondition(ConditionExists, ConditionFunc(existsCondition))
	r.RegisterCondition(ConditionIsEmpty, ConditionFunc(isEmptyCondition))
	r.RegisterCondition(ConditionExpression, &ExpressionCondition{})
}
