package engine

import (
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

// Stats aggregates the executions of one tree.
type Stats struct {
	TotalExecutions        int64     `json:"totalExecutions"`
	SuccessCount           int64     `json:"successCount"`
	FailureCount           int64     `json:"failureCount"`
	RunningCount           int64     `json:"runningCount"`
	AverageExecutionTimeMs float64   `json:"averageExecutionTimeMs"`
	LastExecutionTime      time.Time `json:"lastExecutionTime"`
}

// statsEntry serializes updates for one tree id. Concurrent executions of
// the same tree all funnel through mu, so no increment or average sample
// is lost.
type statsEntry struct {
	mu sync.Mutex
	s  Stats
}

func (e *statsEntry) record(status tree.Status, durationMs int64, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.TotalExecutions++
	switch status {
	case tree.StatusSuccess:
		e.s.SuccessCount++
	case tree.StatusRunning:
		e.s.RunningCount++
	default:
		e.s.FailureCount++
	}
	n := float64(e.s.TotalExecutions)
	e.s.AverageExecutionTimeMs = (e.s.AverageExecutionTimeMs*(n-1) + float64(durationMs)) / n
	e.s.LastExecutionTime = at
}

func (e *statsEntry) snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s
}
