package audit

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	correlation_id TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	guardrail TEXT NOT NULL,
	mode TEXT NOT NULL,
	action TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	would_have_blocked INTEGER NOT NULL DEFAULT 0,
	dropped INTEGER NOT NULL DEFAULT 0,
	elapsed_ns INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_correlation ON audit_entries(correlation_id);
CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_entries(session_id);
`

// SQLiteSink persists audit entries to a SQLite database. It implements Sink
// and additionally supports querying persisted entries by correlation id, so
// a front end can serve audit queries across process restarts.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if necessary) the audit database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to open audit database", err)
	}

	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to apply audit schema", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Write appends an entry to the database.
func (s *SQLiteSink) Write(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries
			(correlation_id, session_id, guardrail, mode, action, confidence, reason,
			 would_have_blocked, dropped, elapsed_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CorrelationID.String(),
		entry.SessionID.String(),
		entry.Guardrail,
		string(entry.Mode),
		string(entry.Result.Action),
		entry.Result.Confidence,
		entry.Result.Reason,
		entry.WouldHaveBlocked,
		entry.Dropped,
		entry.Result.Elapsed.Nanoseconds(),
		entry.Timestamp.UTC(),
	)
	if err != nil {
		return types.WrapError(types.AUDIT_SINK_FAILED, "failed to insert audit entry", err)
	}
	return nil
}

// Query returns persisted entries for a correlation id in insertion order.
func (s *SQLiteSink) Query(ctx context.Context, correlationID types.CorrelationID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT correlation_id, session_id, guardrail, mode, action, confidence, reason,
		       would_have_blocked, dropped, elapsed_ns, created_at
		FROM audit_entries
		WHERE correlation_id = ?
		ORDER BY id ASC`,
		correlationID.String(),
	)
	if err != nil {
		return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to query audit entries", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			corr      string
			session   string
			mode      string
			action    string
			elapsedNS int64
			createdAt time.Time
		)
		if err := rows.Scan(&corr, &session, &e.Guardrail, &mode, &action,
			&e.Result.Confidence, &e.Result.Reason, &e.WouldHaveBlocked,
			&e.Dropped, &elapsedNS, &createdAt); err != nil {
			return nil, types.WrapError(types.AUDIT_SINK_FAILED, "failed to scan audit entry", err)
		}
		e.CorrelationID = types.CorrelationID(corr)
		e.SessionID = types.ID(session)
		e.Mode = guardrail.ExecutionMode(mode)
		e.Result.Guardrail = e.Guardrail
		e.Result.Action = guardrail.Action(action)
		e.Result.Elapsed = time.Duration(elapsedNS)
		e.Result.Timestamp = createdAt
		e.Timestamp = createdAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
