// Package tool declares the callable operations exposed to the host
// runtime and dispatches calls to their collaborators. Synchronous tools
// return a payload immediately; asynchronous tools return a task id and
// run their collaborator as a background unit tracked by the task manager.
package tool

import (
	"context"
	"sync"
)

// Mode selects how a tool executes.
type Mode string

const (
	// ModeSync tools run on the calling path and return their payload.
	ModeSync Mode = "sync"
	// ModeAsync tools return a task id immediately and run in background.
	ModeAsync Mode = "async"
)

// Handler invokes the tool's collaborator with the raw named arguments.
// Sync handlers return the complete response payload (a map); async
// handlers return the result blob stored on the task.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Param describes one named parameter in a tool's fixed schema.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// Definition is the declarative record for one tool: its schema, its
// execution mode, and the handler bound to its collaborator. Failure holds
// the tool's empty data fields, merged into {success:false} payloads so
// the response shape stays fixed even on errors.
type Definition struct {
	Name        string
	Description string
	Mode        Mode
	Params      []Param
	Failure     map[string]any
	Handler     Handler
}

// Registry maps tool names to definitions. Registration order is preserved
// for listing.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]Definition),
	}
}

// Register adds a tool definition. Re-registering a name overwrites the
// definition but keeps its position.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Has reports whether the name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
