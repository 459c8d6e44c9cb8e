// Package audit records security-relevant events: authorization denials and
// order status transitions. Recording is fire-and-forget — a recorder that
// fails must never fail the operation that produced the event.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event is a single audit record.
type Event struct {
	ID       uuid.UUID  `json:"id"`
	ActorID  *uuid.UUID `json:"actor_id,omitempty"`
	Action   string     `json:"action"`
	TargetID *uuid.UUID `json:"target_id,omitempty"`
	Allowed  bool       `json:"allowed"`
	Note     string     `json:"note,omitempty"`
	At       time.Time  `json:"at"`
}

// Recorder persists audit events.
type Recorder interface {
	// Record stores the event. Implementations swallow their own errors.
	Record(ctx context.Context, e Event)
}

// LogRecorder writes audit events to the structured log. It is the fallback
// recorder when no database-backed one is configured, and doubles as a test
// double.
type LogRecorder struct {
	Log *slog.Logger
}

func NewLogRecorder(log *slog.Logger) *LogRecorder {
	return &LogRecorder{Log: log}
}

func (r *LogRecorder) Record(_ context.Context, e Event) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	attrs := []any{
		"action", e.Action,
		"allowed", e.Allowed,
		"at", e.At,
	}
	if e.ActorID != nil {
		attrs = append(attrs, "actor_id", e.ActorID.String())
	}
	if e.TargetID != nil {
		attrs = append(attrs, "target_id", e.TargetID.String())
	}
	if e.Note != "" {
		attrs = append(attrs, "note", e.Note)
	}
	log.Info("audit", attrs...)
}

// Nop is a recorder that drops every event. Useful in tests.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
