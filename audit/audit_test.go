package audit

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestLog_NilDBIsNoOp(t *testing.T) {
	l := New(nil)
	if err := l.RecordAction(1, "dev1", "tap", StatusDone, ""); err != nil {
		t.Fatalf("expected nil-db RecordAction to be a no-op, got %v", err)
	}
	if err := l.RecordEngineError(1, "dev1", "boom"); err != nil {
		t.Fatalf("expected nil-db RecordEngineError to be a no-op, got %v", err)
	}
}

func TestLog_RecordsRows(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		occurred_at INTEGER NOT NULL,
		device_id TEXT,
		kind TEXT NOT NULL,
		action_type TEXT,
		status TEXT NOT NULL,
		detail TEXT
	)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	l := New(db)
	if err := l.RecordAction(100, "dev1", "tap", StatusDone, ""); err != nil {
		t.Fatalf("RecordAction failed: %v", err)
	}
	if err := l.RecordEngineError(200, "dev2", "scrcpy handshake failed"); err != nil {
		t.Fatalf("RecordEngineError failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&count); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}

	var kind, status string
	if err := db.QueryRow("SELECT kind, status FROM audit_log WHERE device_id = 'dev2'").Scan(&kind, &status); err != nil {
		t.Fatalf("failed to read engine_error row: %v", err)
	}
	if kind != KindEngineError || status != StatusFailed {
		t.Errorf("expected kind=%s status=%s, got kind=%s status=%s", KindEngineError, StatusFailed, kind, status)
	}
}
