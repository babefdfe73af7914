// Package task tracks asynchronous tool invocations: one Task per
// background run, owned by a Manager and polled by the host until the
// task reaches a terminal state. All state is memory-resident; a process
// restart discards every record.
package task

import "time"

// Status is the lifecycle state of a task. Transitions move forward only:
// pending -> running -> completed|failed. Terminal states are sticky.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// progressFor derives the progress percentage from the status.
func progressFor(s Status) int {
	switch s {
	case StatusRunning:
		return 50
	case StatusCompleted:
		return 100
	default:
		return 0
	}
}

// Task is one asynchronous invocation record. Result is set only when the
// task completed; Error only when it failed.
type Task struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Status    Status         `json:"status"`
	Params    map[string]any `json:"params"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Result    any            `json:"result"`
	Error     string         `json:"error,omitempty"`
	Progress  int            `json:"progress"`
}

// StatusPayload is the task shape returned by the task-status query.
// Error is null (not "") when the task has no error.
func (t Task) StatusPayload() map[string]any {
	var errVal any
	if t.Error != "" {
		errVal = t.Error
	}
	return map[string]any{
		"id":         t.ID,
		"type":       t.Type,
		"status":     string(t.Status),
		"progress":   t.Progress,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
		"result":     t.Result,
		"error":      errVal,
	}
}
