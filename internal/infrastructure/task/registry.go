package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Handler runs one invocation of a task
type Handler func(ctx context.Context, inv *Invocation) error

// Typed adapts a handler that takes a decoded payload of type T. Struct
// payloads are checked against their validate tags before fn runs.
func Typed[T any](fn func(ctx context.Context, inv *Invocation, payload T) error) Handler {
	return func(ctx context.Context, inv *Invocation) error {
		var payload T
		if err := inv.Task.Decode(&payload); err != nil {
			return err
		}
		if err := validatePayload(inv.Task.Name, payload); err != nil {
			return err
		}
		return fn(ctx, inv, payload)
	}
}

// RetryPolicy bounds and spaces retries requested through Invocation.Retry
type RetryPolicy struct {
	MaxRetries int
	Backoff    Backoff
}

// Definition binds a task name to its handler
type Definition struct {
	Name        string
	Description string
	Handler     Handler
	Retry       RetryPolicy
	// Interval makes the task periodic when positive
	Interval time.Duration
}

// Periodic reports whether the task is triggered on an interval
func (d *Definition) Periodic() bool {
	return d.Interval > 0
}

// Registry maps task names to definitions. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("register task: empty name")
	}
	if def.Handler == nil {
		return fmt.Errorf("register task %q: nil handler", def.Name)
	}
	if def.Retry.MaxRetries < 0 {
		return fmt.Errorf("register task %q: negative max retries", def.Name)
	}
	if def.Retry.Backoff == nil {
		def.Retry.Backoff = Power{Base: 60 * time.Second}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, def.Name)
	}
	r.defs[def.Name] = &def
	return nil
}

// MustRegister is Register that panics on error, for startup wiring
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns the definition for name
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return def, nil
}

// Definitions returns all definitions sorted by name
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Periodic returns the periodic definitions sorted by name
func (r *Registry) Periodic() []*Definition {
	var periodic []*Definition
	for _, d := range r.Definitions() {
		if d.Periodic() {
			periodic = append(periodic, d)
		}
	}
	return periodic
}
