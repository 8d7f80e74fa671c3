// Package ledger records the queue items of a run in an in-memory SQLite
// database. Nothing survives the process; the ledger only serves end-of-run
// reporting and watch-mode bookkeeping.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	input      TEXT NOT NULL DEFAULT '',
	dry_run    INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	run_id      TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	path        TEXT NOT NULL,
	status      TEXT NOT NULL,
	stage       TEXT NOT NULL,
	skipped     INTEGER NOT NULL DEFAULT 0,
	error_kind  TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	note_path   TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	summary_ms  INTEGER NOT NULL DEFAULT 0,
	tokens      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, path)
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(run_id, status);
`

// DB wraps a sql.DB with ledger operations. It is safe for concurrent use;
// the in-memory database is served by a single connection, so writes are
// serialized.
type DB struct {
	conn *sql.DB
}

// Open creates a fresh in-memory ledger.
func Open() (*DB, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	// Every new connection to :memory: is a different database.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	db, err := New(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// New applies the schema on conn and returns a ledger using it.
func New(conn *sql.DB) (*DB, error) {
	if _, err := conn.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Recorder is the part of the ledger the orchestrator writes to.
type Recorder interface {
	StartRun(ctx context.Context, run RunRow) error
	Record(ctx context.Context, row ItemRow) error
}

var _ Recorder = (*DB)(nil)
