package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-cms-replace/pkg/interfaces"
)

// AuditEvent captures one record rewritten by a job.
type AuditEvent struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	OccurredAt time.Time      `json:"occurred_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context) ([]AuditEvent, error)
	Clear(ctx context.Context) error
}

// InMemoryAuditRecorder accumulates audit events in memory.
type InMemoryAuditRecorder struct {
	mu     sync.Mutex
	events []AuditEvent
	err    error
}

func NewInMemoryAuditRecorder() *InMemoryAuditRecorder {
	return &InMemoryAuditRecorder{}
}

func (r *InMemoryAuditRecorder) Record(_ context.Context, event AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, cloneEvent(event))
	return nil
}

// Events returns a snapshot of recorded audit entries.
func (r *InMemoryAuditRecorder) Events() []AuditEvent {
	events, _ := r.List(context.Background())
	return events
}

// ForEntity returns the events recorded for one record id, oldest first.
func (r *InMemoryAuditRecorder) ForEntity(entityID string) []AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AuditEvent
	for _, event := range r.events {
		if event.EntityID == entityID {
			out = append(out, cloneEvent(event))
		}
	}
	return out
}

// Fail makes subsequent Record calls return err.
func (r *InMemoryAuditRecorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *InMemoryAuditRecorder) List(context.Context) ([]AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditEvent, len(r.events))
	for i, event := range r.events {
		out[i] = cloneEvent(event)
	}
	return out, nil
}

func (r *InMemoryAuditRecorder) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	return nil
}

// LoggerAuditRecorder writes events to a logger and keeps the most recent
// ones in memory for listing.
type LoggerAuditRecorder struct {
	logger interfaces.Logger
	memory *InMemoryAuditRecorder
}

func NewLoggerAuditRecorder(logger interfaces.Logger) *LoggerAuditRecorder {
	return &LoggerAuditRecorder{logger: logger, memory: NewInMemoryAuditRecorder()}
}

func (r *LoggerAuditRecorder) Record(ctx context.Context, event AuditEvent) error {
	if r.logger != nil {
		r.logger.Info("jobs.audit."+event.Action,
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
			"count", event.Metadata["count"],
			"langcode", event.Metadata["langcode"],
			"report", event.Metadata["report"],
		)
	}
	return r.memory.Record(ctx, event)
}

func (r *LoggerAuditRecorder) List(ctx context.Context) ([]AuditEvent, error) {
	return r.memory.List(ctx)
}

func (r *LoggerAuditRecorder) Clear(ctx context.Context) error {
	return r.memory.Clear(ctx)
}

func cloneEvent(event AuditEvent) AuditEvent {
	copied := event
	if event.Metadata != nil {
		copied.Metadata = make(map[string]any, len(event.Metadata))
		for k, v := range event.Metadata {
			copied.Metadata[k] = v
		}
	}
	return copied
}
