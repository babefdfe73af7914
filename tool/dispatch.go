package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/daiduo2/TaShan-SciSpark/task"
)

// Observer receives dispatch lifecycle notifications. Implementations must
// be safe for concurrent use; a nil observer disables observation.
type Observer interface {
	// DispatchBegin is called before a tool invocation (sync call or
	// background unit). The returned DispatchEnd is called exactly once
	// with the invocation outcome.
	DispatchBegin(ctx context.Context, name string, mode Mode) (context.Context, DispatchEnd)
}

// DispatchEnd finishes one observed invocation.
type DispatchEnd func(err error)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Registry *Registry
	Tasks    *task.Manager
	Runner   *task.Runner
	Observer Observer
	Logger   *slog.Logger
}

// Dispatcher orchestrates one tool call: it resolves the definition,
// invokes the collaborator, and converts every outcome into a response
// payload. No error or panic ever escapes Dispatch; failures inside
// background units land on the task record and are only observable by
// polling.
type Dispatcher struct {
	registry *Registry
	tasks    *task.Manager
	runner   *task.Runner
	observer Observer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. Registry and Tasks are required by
// callers that register async tools; Runner defaults to an unbounded one.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = task.NewRunner(0)
	}
	tasks := cfg.Tasks
	if tasks == nil {
		tasks = task.NewManager()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Dispatcher{
		registry: registry,
		tasks:    tasks,
		runner:   runner,
		observer: cfg.Observer,
		logger:   logger,
	}
}

// Registry returns the dispatcher's tool registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Tasks returns the dispatcher's task manager.
func (d *Dispatcher) Tasks() *task.Manager { return d.tasks }

// Drain waits for all in-flight background units to finish.
func (d *Dispatcher) Drain() { d.runner.Wait() }

// Dispatch executes the named tool with the given arguments and returns
// the response payload. Failures of any kind become {success:false,
// message} merged with the tool's empty data fields.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) map[string]any {
	def, ok := d.registry.Get(name)
	if !ok {
		return failurePayload(Definition{}, newDispatchError(ErrorCodeNotFound, fmt.Sprintf("unknown tool %q", name), nil))
	}
	if def.Mode == ModeAsync {
		return d.dispatchAsync(ctx, def, args)
	}
	return d.dispatchSync(ctx, def, args)
}

func (d *Dispatcher) dispatchSync(ctx context.Context, def Definition, args map[string]any) map[string]any {
	ctx, done := d.observeBegin(ctx, def.Name, ModeSync)

	res, err := d.invoke(ctx, def, args)
	done(err)
	if err != nil {
		d.logger.Warn("tool call failed", "tool", def.Name, "error", err)
		return failurePayload(def, err)
	}

	payload, ok := res.(map[string]any)
	if !ok {
		// Sync handlers own their payload shape; anything else is a
		// programming error surfaced as a collaborator failure.
		d.logger.Error("tool returned non-payload result", "tool", def.Name)
		return failurePayload(def, collaboratorFailure(fmt.Sprintf("tool %q returned an invalid payload", def.Name), nil))
	}
	return payload
}

func (d *Dispatcher) dispatchAsync(ctx context.Context, def Definition, args map[string]any) map[string]any {
	id := d.tasks.Create(def.Name, args)

	// The background unit outlives the request; detach cancellation but
	// keep context values for tracing.
	bgCtx := context.WithoutCancel(ctx)
	d.runner.Go(func() {
		d.runBackground(bgCtx, def, id, args)
	})

	return map[string]any{
		"success": true,
		"message": "task started",
		"task_id": id,
	}
}

func (d *Dispatcher) runBackground(ctx context.Context, def Definition, id string, args map[string]any) {
	d.tasks.Update(id, task.StatusRunning, nil, "")
	d.logger.Info("background task running", "tool", def.Name, "task_id", id)

	obsCtx, done := d.observeBegin(ctx, def.Name, ModeAsync)
	res, err := d.invoke(obsCtx, def, args)
	done(err)

	if err != nil {
		msg := failureMessage(err)
		d.tasks.Update(id, task.StatusFailed, nil, msg)
		d.logger.Warn("background task failed", "tool", def.Name, "task_id", id, "error", msg)
		return
	}

	d.tasks.Update(id, task.StatusCompleted, res, "")
	d.logger.Info("background task completed", "tool", def.Name, "task_id", id)
}

// invoke runs the handler, converting panics into collaborator failures so
// nothing crosses the dispatch boundary as a fault.
func (d *Dispatcher) invoke(ctx context.Context, def Definition, args map[string]any) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = collaboratorFailure(fmt.Sprintf("tool %q panicked: %v", def.Name, r), nil)
		}
	}()
	if def.Handler == nil {
		return nil, collaboratorFailure(fmt.Sprintf("tool %q has no handler", def.Name), nil)
	}
	return def.Handler(ctx, args)
}

func (d *Dispatcher) observeBegin(ctx context.Context, name string, mode Mode) (context.Context, DispatchEnd) {
	if d.observer == nil {
		return ctx, func(error) {}
	}
	return d.observer.DispatchBegin(ctx, name, mode)
}

// failurePayload builds the uniform failure response: the tool's empty
// data fields plus success=false and the failure description.
func failurePayload(def Definition, err error) map[string]any {
	payload := make(map[string]any, len(def.Failure)+2)
	for k, v := range def.Failure {
		payload[k] = v
	}
	payload["success"] = false
	payload["message"] = failureMessage(err)
	return payload
}
