package audit

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type postgresRecorder struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresRecorder creates a recorder backed by the audit_events table.
// Insert failures are logged and dropped, never returned.
func NewPostgresRecorder(db *sql.DB, log *slog.Logger) Recorder {
	return &postgresRecorder{db: db, log: log}
}

func (r *postgresRecorder) Record(ctx context.Context, e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor_id, action, target_id, allowed, note, at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.ActorID, e.Action, e.TargetID, e.Allowed, e.Note, e.At)
	if err != nil {
		r.log.Warn("audit insert failed", "action", e.Action, "error", err)
	}
}
