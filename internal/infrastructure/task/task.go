// Package task is the background task runtime: a registry of named task
// definitions, brokers that hold queued tasks, a submitter that enqueues them,
// and a worker pool that runs them.
//
// A task submitted while a tenant scope is active carries that tenant; the
// worker re-enters the tenant's scope before calling the handler.
package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/google/uuid"
)

// Task is a unit of queued work
type Task struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	TenantID     uuid.UUID       `json:"tenant_id,omitempty"`
	TenantSchema string          `json:"tenant_schema,omitempty"`
	Retries      int             `json:"retries"`
	ETA          time.Time       `json:"eta"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
}

// New creates a task with a JSON-encoded payload. A nil payload is omitted.
func New(name string, payload any) (*Task, error) {
	t := &Task{ID: uuid.New(), Name: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload for task %q: %w", name, err)
		}
		t.Payload = raw
	}
	return t, nil
}

// HasTenant reports whether the task must run inside a tenant scope
func (t *Task) HasTenant() bool {
	return t.TenantSchema != ""
}

// Tenant returns the tenant the task was submitted for
func (t *Task) Tenant() tenancy.Tenant {
	return tenancy.Tenant{ID: t.TenantID, SchemaName: t.TenantSchema}
}

// Decode unmarshals the payload into v
func (t *Task) Decode(v any) error {
	if len(t.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode payload for task %q: %w", t.Name, err)
	}
	return nil
}

// clone returns a copy safe to mutate for a retry
func (t *Task) clone() *Task {
	c := *t
	if t.Payload != nil {
		c.Payload = append(json.RawMessage(nil), t.Payload...)
	}
	return &c
}

func encode(t *Task) ([]byte, error) {
	return json.Marshal(t)
}

func jsonMarshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

func jsonUnmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func decode(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}
