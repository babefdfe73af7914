package tool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/daiduo2/TaShan-SciSpark/task"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		Registry: NewRegistry(),
		Tasks:    task.NewManager(),
	})
}

func TestDispatch_UnknownTool(t *testing.T) {
	d := newTestDispatcher()
	payload := d.Dispatch(context.Background(), "no_such_tool", nil)

	if payload["success"] != false {
		t.Errorf("success = %v, want false", payload["success"])
	}
	if payload["message"] == "" {
		t.Error("failure payload should carry a message")
	}
}

func TestDispatch_SyncSuccess(t *testing.T) {
	d := newTestDispatcher()
	d.Registry().Register(Definition{
		Name: "echo",
		Mode: ModeSync,
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"success": true, "message": "ok", "echo": args["v"]}, nil
		},
	})

	payload := d.Dispatch(context.Background(), "echo", map[string]any{"v": "hi"})
	if payload["success"] != true {
		t.Fatalf("success = %v, want true", payload["success"])
	}
	if payload["echo"] != "hi" {
		t.Errorf("echo = %v, want hi", payload["echo"])
	}
}

func TestDispatch_SyncFailureKeepsPayloadShape(t *testing.T) {
	d := newTestDispatcher()
	d.Registry().Register(Definition{
		Name:    "broken",
		Mode:    ModeSync,
		Failure: map[string]any{"papers": []any{}},
		Handler: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("upstream unavailable")
		},
	})

	payload := d.Dispatch(context.Background(), "broken", nil)
	if payload["success"] != false {
		t.Errorf("success = %v, want false", payload["success"])
	}
	if payload["message"] != "upstream unavailable" {
		t.Errorf("message = %v", payload["message"])
	}
	papers, ok := payload["papers"].([]any)
	if !ok || len(papers) != 0 {
		t.Errorf("papers = %v, want empty array", payload["papers"])
	}
}

func TestDispatch_SyncPanicIsAbsorbed(t *testing.T) {
	d := newTestDispatcher()
	d.Registry().Register(Definition{
		Name: "panics",
		Mode: ModeSync,
		Handler: func(context.Context, map[string]any) (any, error) {
			panic("boom")
		},
	})

	payload := d.Dispatch(context.Background(), "panics", nil)
	if payload["success"] != false {
		t.Errorf("success = %v, want false", payload["success"])
	}
}

func TestDispatch_AsyncLifecycle(t *testing.T) {
	d := newTestDispatcher()
	release := make(chan struct{})
	d.Registry().Register(Definition{
		Name: "slow",
		Mode: ModeAsync,
		Handler: func(context.Context, map[string]any) (any, error) {
			<-release
			return "the result", nil
		},
	})

	payload := d.Dispatch(context.Background(), "slow", map[string]any{"keyword": "dark matter"})
	if payload["success"] != true {
		t.Fatalf("success = %v, want true", payload["success"])
	}
	if payload["message"] != "task started" {
		t.Errorf("message = %v, want %q", payload["message"], "task started")
	}
	id, ok := payload["task_id"].(string)
	if !ok || id == "" {
		t.Fatalf("task_id = %v", payload["task_id"])
	}

	// Polling immediately reflects a non-terminal state.
	got, ok := d.Tasks().Get(id)
	if !ok {
		t.Fatal("task should exist immediately after dispatch")
	}
	if got.Status != task.StatusPending && got.Status != task.StatusRunning {
		t.Errorf("early status = %q", got.Status)
	}

	close(release)
	d.Drain()

	got, _ = d.Tasks().Get(id)
	if got.Status != task.StatusCompleted {
		t.Fatalf("final status = %q, want completed", got.Status)
	}
	if got.Result != "the result" {
		t.Errorf("Result = %v", got.Result)
	}
	if got.Progress != 100 {
		t.Errorf("Progress = %d, want 100", got.Progress)
	}
}

func TestDispatch_AsyncFailureOnlyVisibleByPolling(t *testing.T) {
	d := newTestDispatcher()
	d.Registry().Register(Definition{
		Name: "doomed",
		Mode: ModeAsync,
		Handler: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("collaborator exploded")
		},
	})

	payload := d.Dispatch(context.Background(), "doomed", nil)
	if payload["success"] != true {
		t.Fatalf("caller must not see the background failure: %v", payload)
	}
	id := payload["task_id"].(string)

	d.Drain()
	got, _ := d.Tasks().Get(id)
	if got.Status != task.StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.Error != "collaborator exploded" {
		t.Errorf("Error = %q", got.Error)
	}
	if got.Progress != 0 {
		t.Errorf("Progress = %d, want 0", got.Progress)
	}
}

func TestDispatch_AsyncPanicIsAbsorbed(t *testing.T) {
	d := newTestDispatcher()
	d.Registry().Register(Definition{
		Name: "async_panics",
		Mode: ModeAsync,
		Handler: func(context.Context, map[string]any) (any, error) {
			panic("boom")
		},
	})

	payload := d.Dispatch(context.Background(), "async_panics", nil)
	id := payload["task_id"].(string)
	d.Drain()

	got, _ := d.Tasks().Get(id)
	if got.Status != task.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
}

func TestDispatch_ConcurrentAsyncCalls(t *testing.T) {
	d := newTestDispatcher()
	d.Registry().Register(Definition{
		Name: "work",
		Mode: ModeAsync,
		Handler: func(context.Context, map[string]any) (any, error) {
			return "ok", nil
		},
	})

	const n = 50
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := d.Dispatch(context.Background(), "work", nil)
			ids[i] = payload["task_id"].(string)
		}(i)
	}
	wg.Wait()
	d.Drain()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate task id %q", id)
		}
		seen[id] = true
		got, ok := d.Tasks().Get(id)
		if !ok || got.Status != task.StatusCompleted {
			t.Fatalf("task %q not completed: %+v", id, got)
		}
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	begins []string
	errs   []error
}

func (o *recordingObserver) DispatchBegin(ctx context.Context, name string, mode Mode) (context.Context, DispatchEnd) {
	o.mu.Lock()
	o.begins = append(o.begins, name+"/"+string(mode))
	o.mu.Unlock()
	return ctx, func(err error) {
		o.mu.Lock()
		o.errs = append(o.errs, err)
		o.mu.Unlock()
	}
}

func TestDispatch_ObserverSeesOutcome(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDispatcher(DispatcherConfig{
		Registry: NewRegistry(),
		Tasks:    task.NewManager(),
		Observer: obs,
	})
	d.Registry().Register(Definition{
		Name: "fails",
		Mode: ModeSync,
		Handler: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("nope")
		},
	})

	d.Dispatch(context.Background(), "fails", nil)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.begins) != 1 || obs.begins[0] != "fails/sync" {
		t.Errorf("begins = %v", obs.begins)
	}
	if len(obs.errs) != 1 || obs.errs[0] == nil {
		t.Errorf("errs = %v, want one non-nil error", obs.errs)
	}
}
