package tree

// Status is the outcome of executing a node.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	// StatusRunning marks a node that did not reach a terminal outcome in
	// this walk. It short-circuits its parents and is never resumed.
	StatusRunning Status = "running"
)

// Result is the outcome of executing a node or a whole tree.
type Result struct {
	Status          Status                 `json:"status"`
	Data            map[string]interface{} `json:"data,omitempty"`
	Error           string                 `json:"error,omitempty"`
	ExecutionTimeMs int64                  `json:"executionTimeMs"`
}

// Success builds a successful result carrying data.
func Success(data map[string]interface{}) *Result {
	return &Result{Status: StatusSuccess, Data: data}
}

// Failure builds a failed result with the given message.
func Failure(msg string) *Result {
	return &Result{Status: StatusFailure, Error: msg}
}

// Running builds a running result.
func Running() *Result {
	return &Result{Status: StatusRunning}
}
