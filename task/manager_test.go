package task

import (
	"sync"
	"testing"
	"time"
)

func TestManager_CreateStartsPending(t *testing.T) {
	m := NewManager()
	id := m.Create("generate_research_idea", map[string]any{
		"keyword":     "dark matter",
		"paper_count": 3,
	})
	if id == "" {
		t.Fatal("Create returned an empty id")
	}

	got, ok := m.Get(id)
	if !ok {
		t.Fatal("Get should find a freshly created task")
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.Progress != 0 {
		t.Errorf("Progress = %d, want 0", got.Progress)
	}
	if got.Result != nil {
		t.Errorf("Result = %v, want nil", got.Result)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
	if got.Type != "generate_research_idea" {
		t.Errorf("Type = %q", got.Type)
	}
}

func TestManager_ConcurrentCreateIDsAreDistinct(t *testing.T) {
	m := NewManager()
	const n = 200

	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = m.Create("generate_research_idea", nil)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if m.Len() != n {
		t.Errorf("Len = %d, want %d", m.Len(), n)
	}
}

func TestManager_GetUnknown(t *testing.T) {
	m := NewManager()
	if _, ok := m.Get("task_999_0"); ok {
		t.Error("Get should report ok=false for an unknown id")
	}
}

func TestManager_UpdateUnknownIsSilentNoOp(t *testing.T) {
	m := NewManager()
	m.Update("task_999_0", StatusCompleted, "result", "")
	if m.Len() != 0 {
		t.Error("Update on an unknown id must not create a task")
	}
}

func TestManager_ProgressTracksStatus(t *testing.T) {
	m := NewManager()
	id := m.Create("generate_research_idea", nil)

	m.Update(id, StatusRunning, nil, "")
	if got, _ := m.Get(id); got.Progress != 50 {
		t.Errorf("running progress = %d, want 50", got.Progress)
	}

	m.Update(id, StatusCompleted, "idea", "")
	if got, _ := m.Get(id); got.Progress != 100 {
		t.Errorf("completed progress = %d, want 100", got.Progress)
	}
}

func TestManager_FailedProgressIsZero(t *testing.T) {
	m := NewManager()
	id := m.Create("generate_research_idea", nil)
	m.Update(id, StatusRunning, nil, "")
	m.Update(id, StatusFailed, nil, "upstream exploded")

	got, _ := m.Get(id)
	if got.Progress != 0 {
		t.Errorf("failed progress = %d, want 0", got.Progress)
	}
	if got.Error != "upstream exploded" {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestManager_CompletedCapturesResult(t *testing.T) {
	m := NewManager()
	id := m.Create("generate_research_idea", nil)
	m.Update(id, StatusRunning, nil, "")
	m.Update(id, StatusCompleted, "the idea", "")

	got, _ := m.Get(id)
	if got.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.Result != "the idea" {
		t.Errorf("Result = %v, want %q", got.Result, "the idea")
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
}

func TestManager_TerminalStatesAreSticky(t *testing.T) {
	m := NewManager()
	id := m.Create("generate_research_idea", nil)
	m.Update(id, StatusCompleted, "done", "")
	m.Update(id, StatusFailed, nil, "late failure")

	got, _ := m.Get(id)
	if got.Status != StatusCompleted {
		t.Errorf("Status = %q, completed must not transition away", got.Status)
	}
	if got.Result != "done" {
		t.Errorf("Result = %v, want %q", got.Result, "done")
	}
}

func TestManager_UpdateRefreshesUpdatedAt(t *testing.T) {
	m := NewManager()
	id := m.Create("generate_research_idea", nil)
	before, _ := m.Get(id)

	time.Sleep(5 * time.Millisecond)
	m.Update(id, StatusRunning, nil, "")

	after, _ := m.Get(id)
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("UpdatedAt should advance on every transition")
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("CreatedAt must not change on transition")
	}
}

func TestManager_PruneRemovesOnlyOldTerminalTasks(t *testing.T) {
	m := NewManager()
	terminal := m.Create("generate_research_idea", nil)
	running := m.Create("generate_research_idea", nil)
	m.Update(terminal, StatusCompleted, "done", "")
	m.Update(running, StatusRunning, nil, "")

	if removed := m.Prune(time.Hour); removed != 0 {
		t.Errorf("fresh tasks pruned: %d", removed)
	}
	if removed := m.Prune(-time.Second); removed != 1 {
		t.Errorf("Prune removed %d tasks, want 1", removed)
	}
	if _, ok := m.Get(terminal); ok {
		t.Error("terminal task should be pruned")
	}
	if _, ok := m.Get(running); !ok {
		t.Error("in-flight task must never be pruned")
	}
}

func TestTask_StatusPayloadNullsEmptyError(t *testing.T) {
	m := NewManager()
	id := m.Create("generate_research_idea", nil)
	m.Update(id, StatusCompleted, "R", "")

	got, _ := m.Get(id)
	payload := got.StatusPayload()
	if payload["error"] != nil {
		t.Errorf("error = %v, want nil", payload["error"])
	}
	if payload["result"] != "R" {
		t.Errorf("result = %v, want R", payload["result"])
	}
	if payload["progress"] != 100 {
		t.Errorf("progress = %v, want 100", payload["progress"])
	}
}

func TestRunner_WaitsForUnits(t *testing.T) {
	r := NewRunner(0)
	var mu sync.Mutex
	count := 0
	for i := 0; i < 20; i++ {
		r.Go(func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	r.Wait()
	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}
}

func TestRunner_BoundedLimitsConcurrency(t *testing.T) {
	r := NewRunner(2)
	var mu sync.Mutex
	active, peak := 0, 0

	for i := 0; i < 10; i++ {
		r.Go(func() {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		})
	}
	r.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}
