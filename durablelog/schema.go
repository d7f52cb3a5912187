// Package durablelog owns the SQLite-backed execution history (C8):
// executions, render frames, transitions, agent runs, tool calls, reports
// and task-lifecycle rows. It applies forward-only, idempotent migrations
// on startup and resolves resume semantics for a given execution source.
package durablelog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (creating if absent) the SQLite database at path and applies
// every pending migration. The returned *sql.DB is shared by the durable
// log and the persistent state store (§5): both serialize writes through
// this single connection, so the pool is capped at one open connection to
// avoid SQLITE_BUSY under modernc.org/sqlite's default locking.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %q: %w", path, err)
	}
	return db, nil
}
