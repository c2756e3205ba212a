package event

import (
	"time"

	"github.com/google/uuid"
)

// TypeTreeExecuted is published once per completed tree execution.
const TypeTreeExecuted = "tree.executed"

// Event is the envelope handed to notification sinks.
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"` // "tree.executed" or a name chosen by an emit action
	OccurredAt  time.Time              `json:"occurred_at"`
	Source      string                 `json:"source"`       // tree id
	ExecutionID string                 `json:"execution_id"` // the execution that produced it
	Payload     map[string]interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(typ, source, executionID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Type:        typ,
		OccurredAt:  time.Now().UTC(),
		Source:      source,
		ExecutionID: executionID,
		Payload:     payload,
	}
}

// TreeExecuted builds the post-execution notification.
func TreeExecuted(treeID, treeName, executionID string, status string, executionTimeMs int64, data map[string]interface{}) *Event {
	return New(TypeTreeExecuted, treeID, executionID, map[string]interface{}{
		"treeId":          treeID,
		"treeName":        treeName,
		"status":          status,
		"executionTimeMs": executionTimeMs,
		"data":            data,
	})
}
