package task

import (
	"fmt"
	"sync"
	"time"
)

// Manager owns the registry of task records. It is the only component that
// mutates a Task; every access goes through the mutex so id allocation and
// map insertion are a single atomic step.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	seq   uint64
}

// NewManager creates an empty task manager.
func NewManager() *Manager {
	return &Manager{
		tasks: make(map[string]*Task),
	}
}

// Create allocates a new pending task and returns its id. Ids combine a
// monotonic counter with the creation timestamp so they stay unique under
// concurrent creation and are never reused, even after pruning.
func (m *Manager) Create(taskType string, params map[string]any) string {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	id := fmt.Sprintf("task_%d_%d", m.seq, now.Unix())
	m.tasks[id] = &Task{
		ID:        id,
		Type:      taskType,
		Status:    StatusPending,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  progressFor(StatusPending),
	}
	return id
}

// Get returns a copy of the task, or ok=false when the id is unknown.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Update transitions a task to the given status, recording result or error
// and recomputing progress. An unknown id is a silent no-op, matching the
// polling contract: callers never learn about updates to missing tasks.
// Updates to a task already in a terminal state are ignored.
func (m *Manager) Update(id string, status Status, result any, errMsg string) {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return
	}
	if t.Status.Terminal() {
		return
	}

	t.Status = status
	t.Result = result
	t.Error = errMsg
	t.Progress = progressFor(status)
	t.UpdatedAt = now
}

// Len returns the number of tracked tasks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

// Prune removes terminal tasks whose last transition is older than maxAge
// and returns how many were removed. In-flight tasks are never touched.
func (m *Manager) Prune(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, t := range m.tasks {
		if t.Status.Terminal() && t.UpdatedAt.Before(cutoff) {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}
