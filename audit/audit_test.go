package audit

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

func testLog(t *testing.T) *Log {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Init(db); err != nil {
		t.Fatal(err)
	}
	return New(db)
}

func TestRecordAndCount(t *testing.T) {
	l := testLog(t)
	ctx := context.Background()

	l.Record(ctx, Event{Type: EventSaveDispatched, EntityID: "2", Success: true})
	l.Record(ctx, Event{Type: EventSaveDispatched, EntityID: "3", Success: true})
	l.Record(ctx, Event{Type: EventExportFinished, EntityID: "exp_1", Detail: `{"total":4,"errors":1}`, Success: true})

	n, err := l.CountByType(ctx, EventSaveDispatched)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("save events: %d, want 2", n)
	}
	n, err = l.CountByType(ctx, EventExportFinished)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("export events: %d, want 1", n)
	}
}

func TestNilLogIsSafe(t *testing.T) {
	var l *Log
	l.Record(context.Background(), Event{Type: EventSaveResult})
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpen(t *testing.T) {
	path := t.TempDir() + "/audit/events.db"
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	l.Record(context.Background(), Event{Type: EventExportStarted, EntityID: "exp_1"})
	n, err := l.CountByType(context.Background(), EventExportStarted)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("events: %d", n)
	}
}
