// Package repository persists scaling history in the app's embedded SQLite
// database. The coordinator itself holds no persisted state; history is an
// append-only record of resolved sessions for the activity view.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kubedeck/kubedeck-backend/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS scaling_events (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	namespace       TEXT NOT NULL DEFAULT '',
	name            TEXT NOT NULL,
	target_replicas INTEGER NOT NULL,
	status          TEXT NOT NULL,
	started_at      TIMESTAMP NOT NULL,
	resolved_at     TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_scaling_events_resource
	ON scaling_events (kind, namespace, name);
`

// SQLiteRepository stores scaling history in SQLite.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository opens (or creates) the database and applies the
// schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// RecordScalingEvent appends one resolved session to the history.
func (r *SQLiteRepository) RecordScalingEvent(ctx context.Context, ev *models.ScalingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.ResolvedAt == nil {
		now := time.Now().UTC()
		ev.ResolvedAt = &now
	}

	query := `
		INSERT INTO scaling_events (id, kind, namespace, name, target_replicas, status, started_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.Kind,
		ev.Namespace,
		ev.Name,
		ev.TargetReplicas,
		ev.Status,
		ev.StartedAt,
		ev.ResolvedAt,
	)
	return err
}

// ListScalingEvents returns the most recent history entries, newest first.
func (r *SQLiteRepository) ListScalingEvents(ctx context.Context, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.ScalingEvent
	query := `SELECT * FROM scaling_events ORDER BY resolved_at DESC LIMIT ?`

	err := r.db.SelectContext(ctx, &events, query, limit)
	return events, err
}
