// Package storage persists the outbound call ledger in SQLite.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver
)

// The schema is applied on every start; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS calls (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id    TEXT NOT NULL,
    kind          TEXT NOT NULL,
    target        TEXT NOT NULL DEFAULT '',
    provider      TEXT NOT NULL DEFAULT '',
    model         TEXT NOT NULL DEFAULT '',
    success       BOOLEAN NOT NULL DEFAULT 0,
    status_code   INTEGER,
    duration_ms   INTEGER,
    error_message TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_calls_request_id ON calls(request_id);
CREATE INDEX IF NOT EXISTS idx_calls_kind ON calls(kind, success);
CREATE INDEX IF NOT EXISTS idx_calls_created_at ON calls(created_at);
`

// NewDatabase opens a SQLite connection and runs migrations.
//
// Go note: the constructor creates the resource AND validates it (Ping).
// If anything fails the half-built handle is closed before returning.
func NewDatabase(dbPath string) (*sqlx.DB, error) {
	// WAL allows concurrent reads while writing; busy_timeout waits on lock
	// contention instead of failing immediately.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "pinging database")
	}

	// A fan-out of 150 fetches records 150 rows concurrently; a single
	// connection serializes them instead of tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "running migrations")
	}

	return db, nil
}
