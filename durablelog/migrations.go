package durablelog

import (
	"database/sql"
	"fmt"
)

// SchemaMigration is one forward-only, idempotent schema step, numbered by
// Version. Unlike the data-shape VersionMigration the rest of the pack uses
// for structural payload upgrades, a SchemaMigration runs raw DDL/DML
// against the durable log's connection; ordering is by Version, not a
// from/to graph, since schema migrations never branch.
type SchemaMigration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

// migrations is applied strictly in ascending Version order. Each step must
// be safe to re-run (CREATE TABLE IF NOT EXISTS, etc.) so Migrate is
// idempotent even if schema_version bookkeeping itself were ever lost.
var migrations = []SchemaMigration{
	{
		Version: 1,
		Name:    "initial schema",
		Apply: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
				`CREATE TABLE IF NOT EXISTS executions (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					source TEXT NOT NULL,
					status TEXT NOT NULL,
					started_at TIMESTAMP NOT NULL,
					completed_at TIMESTAMP,
					reason TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS state (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS transitions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					key TEXT NOT NULL,
					old_value TEXT,
					new_value TEXT,
					trigger TEXT,
					origin TEXT,
					timestamp TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS render_frames (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					execution_id TEXT NOT NULL,
					sequence_number INTEGER NOT NULL,
					content TEXT NOT NULL,
					timestamp TIMESTAMP NOT NULL,
					UNIQUE(execution_id, sequence_number)
				)`,
				`CREATE TABLE IF NOT EXISTS tasks (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					status TEXT NOT NULL,
					started_at TIMESTAMP,
					completed_at TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS agents (
					id TEXT PRIMARY KEY,
					execution_id TEXT NOT NULL,
					node_path TEXT NOT NULL,
					model TEXT,
					status TEXT NOT NULL,
					prompt TEXT,
					output TEXT,
					structured_output TEXT,
					error TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS tool_calls (
					id TEXT PRIMARY KEY,
					agent_id TEXT NOT NULL,
					tool_name TEXT NOT NULL,
					input TEXT,
					output TEXT,
					timestamp TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS reports (
					id TEXT PRIMARY KEY,
					execution_id TEXT NOT NULL,
					agent_id TEXT,
					type TEXT NOT NULL,
					title TEXT,
					content TEXT,
					severity TEXT,
					data TEXT,
					created_at TIMESTAMP NOT NULL
				)`,
			}
			for _, s := range stmts {
				if _, err := tx.Exec(s); err != nil {
					return fmt.Errorf("exec %q: %w", s, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies every SchemaMigration with Version greater than the
// highest version already recorded. A resume-mismatch is reported if the
// on-disk schema_version is newer than any migration this binary knows —
// the engine cannot safely run against a schema from a newer version.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	current := 0
	row := db.QueryRow(`SELECT MAX(version) FROM schema_version`)
	var maxVersion sql.NullInt64
	if err := row.Scan(&maxVersion); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}
	if maxVersion.Valid {
		current = int(maxVersion.Int64)
	}

	latestKnown := 0
	for _, m := range migrations {
		if m.Version > latestKnown {
			latestKnown = m.Version
		}
	}
	if current > latestKnown {
		return fmt.Errorf("resume-mismatch: on-disk schema version %d is newer than this binary's latest known version %d", current, latestKnown)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := m.Apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (?)`, m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}
