package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/blockfeed/sidecar/pkg/sse"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT    NOT NULL,
	data       BLOB    NOT NULL,
	created_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`

// SQLiteLog is a Log backed by a local sqlite database. It is the default
// backend for single-node deployments.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a sqlite-backed log at dsn.
// Use ":memory:" for an ephemeral log.
func OpenSQLite(dsn string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite event log: %w", err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite event log schema: %w", err)
	}
	return &SQLiteLog{db: db}, nil
}

func (l *SQLiteLog) Append(ctx context.Context, eventType sse.EventType, data []byte) (uint64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO events (event_type, data) VALUES (?, ?)`,
		string(eventType), data)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append event id: %w", err)
	}
	return uint64(id), nil
}

func (l *SQLiteLog) Since(ctx context.Context, fromID uint64, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, event_type, data FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`,
		fromID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events since %d: %w", fromID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (l *SQLiteLog) LastID(ctx context.Context) (uint64, error) {
	var id sql.NullInt64
	err := l.db.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("query last event id: %w", err)
	}
	if !id.Valid {
		return 0, nil
	}
	return uint64(id.Int64), nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			typ string
		)
		if err := rows.Scan(&e.ID, &typ, &e.Data); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Type = sse.EventType(typ)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return entries, nil
}
