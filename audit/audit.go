// Package audit records save and export activity in a local SQLite log.
//
// The log is strictly observational: a failing audit store is reported
// via slog and never blocks or fails the operation being recorded.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vishalpatel2890/slidecore/idgen"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id   TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	entity_id  TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	success    INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type_time ON events(event_type, created_at);
`

// Event types recorded by the core.
const (
	EventSaveDispatched = "save_dispatched"
	EventSaveResult     = "save_result"
	EventExportStarted  = "export_started"
	EventExportFinished = "export_finished"
)

// Event is one audit row.
type Event struct {
	Type     string
	EntityID string // slide number, job id
	Detail   string // optional JSON or free text
	Success  bool
}

// Log writes events to an SQLite database.
type Log struct {
	db    *sql.DB
	newID idgen.Generator
}

// Open opens (creating if needed) the audit database at path and applies
// the schema. Production pragmas: WAL journal, busy timeout.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("audit: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: apply schema: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open database that has the schema applied.
func New(db *sql.DB) *Log {
	return &Log{db: db, newID: idgen.Prefixed("evt_", idgen.Default)}
}

// Init applies the schema to an externally opened database.
func Init(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("audit: apply schema: %w", err)
	}
	return nil
}

// Record writes one event. Errors are logged, never returned.
func (l *Log) Record(ctx context.Context, ev Event) {
	if l == nil {
		return
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO events (event_id, event_type, entity_id, detail, success, created_at)
		VALUES (?,?,?,?,?,?)`,
		l.newID(), ev.Type, ev.EntityID, ev.Detail, ev.Success, time.Now().Unix())
	if err != nil {
		slog.Error("audit: record failed", "event_type", ev.Type, "error", err)
	}
}

// CountByType returns how many events of the given type are recorded.
func (l *Log) CountByType(ctx context.Context, eventType string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE event_type = ?`, eventType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit: count %s: %w", eventType, err)
	}
	return n, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
