// Package store persists the outbound event feed. Every published event gets
// a monotonically increasing id at append time; ids are the replay cursor the
// transport hands to late subscribers.
package store

import (
	"context"
	"errors"

	"github.com/blockfeed/sidecar/pkg/sse"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("store: unknown driver")

// Entry is one persisted event record.
type Entry struct {
	ID   uint64
	Type sse.EventType
	Data []byte
}

// Log is an append-only event log with id-based replay.
type Log interface {
	// Append stores one encoded event and returns its assigned id. Ids are
	// assigned in append order starting at 1.
	Append(ctx context.Context, eventType sse.EventType, data []byte) (uint64, error)

	// Since returns up to limit entries with id strictly greater than fromID,
	// in ascending id order.
	Since(ctx context.Context, fromID uint64, limit int) ([]Entry, error)

	// LastID returns the highest assigned id, or 0 for an empty log.
	LastID(ctx context.Context) (uint64, error)

	Close() error
}

// Open selects a Log implementation by driver name.
func Open(driver, dsn string) (Log, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(dsn)
	default:
		return nil, ErrUnknownDriver
	}
}
