package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/blockfeed/sidecar/pkg/sse"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	id         BIGSERIAL PRIMARY KEY,
	event_type TEXT  NOT NULL,
	data       BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`

// PostgresLog is a Log backed by PostgreSQL, for deployments where several
// sidecars share one event history.
type PostgresLog struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and ensures the events schema exists.
func OpenPostgres(dsn string) (*PostgresLog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres event log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres event log: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init postgres event log schema: %w", err)
	}
	return &PostgresLog{db: db}, nil
}

// NewPostgresLog wraps an existing connection without touching the schema.
func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Append(ctx context.Context, eventType sse.EventType, data []byte) (uint64, error) {
	var id uint64
	err := l.db.QueryRowContext(ctx,
		`INSERT INTO events (event_type, data) VALUES ($1, $2) RETURNING id`,
		string(eventType), data).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return id, nil
}

func (l *PostgresLog) Since(ctx context.Context, fromID uint64, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, event_type, data FROM events WHERE id > $1 ORDER BY id ASC LIMIT $2`,
		fromID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events since %d: %w", fromID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (l *PostgresLog) LastID(ctx context.Context) (uint64, error) {
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

func (l *PostgresLog) Close() error {
	return l.db.Close()
}
