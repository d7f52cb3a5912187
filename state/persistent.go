package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PersistentStore wraps a Store whose commits are additionally durably
// recorded on SQLite: a `state` table holding current values and an
// append-only `transitions` table recording every change. It shares its
// *sql.DB connection with the durable log (§5 "Shared resources") — both
// serialize writes through that single connection.
type PersistentStore struct {
	*Store
	db *sql.DB
}

// NewPersistentStore loads every row of the `state` table into memory and
// returns a store whose Commit also appends `transitions` rows and upserts
// `state` rows within a single transaction.
func NewPersistentStore(db *sql.DB) (*PersistentStore, error) {
	ps := &PersistentStore{db: db}
	ps.Store = NewStore(nil)

	rows, err := db.Query(`SELECT key, value FROM state`)
	if err != nil {
		return nil, fmt.Errorf("load persistent state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan persistent state row: %w", err)
		}
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode state value for %q: %w", key, err)
		}
		ps.Store.values[key] = v
		ps.Store.versions[key] = 1
	}
	return ps, rows.Err()
}

// transitionRow is one changed key captured by Store.Commit's onCommit hook
// during a single PersistentStore.Commit call.
type transitionRow struct {
	key             string
	old, new        interface{}
	trigger, origin string
}

// Commit applies every queued write to the in-memory store and durably
// persists each changed key's new value and its transitions row in one SQL
// transaction — satisfying P3 write atomicity: a reader never observes the
// state table updated without its matching transitions row, or vice versa.
// trigger/origin are used only as a fallback label for changes whose
// WriteOp did not carry one (e.g. a write enqueued with an empty trigger or
// origin); SetImmediate writes never pass through Commit.
func (ps *PersistentStore) Commit(trigger, origin string) ([]WriteOp, error) {
	var changed []transitionRow
	ps.Store.onCommit = func(key string, old, new interface{}, trig, org string) {
		if trig == "" {
			trig = trigger
		}
		if org == "" {
			org = origin
		}
		changed = append(changed, transitionRow{key: key, old: old, new: new, trigger: trig, origin: org})
	}
	ops := ps.Store.Commit()
	ps.Store.onCommit = nil

	if len(changed) == 0 {
		return ops, nil
	}

	tx, err := ps.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin commit transaction: %w", err)
	}

	now := time.Now().UTC()
	for _, c := range changed {
		newRaw, err := json.Marshal(c.new)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("encode state value for %q: %w", c.key, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO state(key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			c.key, string(newRaw), now,
		); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("upsert state row for %q: %w", c.key, err)
		}

		oldRaw, _ := json.Marshal(c.old)
		if _, err := tx.Exec(
			`INSERT INTO transitions(key, old_value, new_value, trigger, origin, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
			c.key, string(oldRaw), string(newRaw), c.trigger, c.origin, now,
		); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("insert transition row for %q: %w", c.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit state transaction: %w", err)
	}
	return ops, nil
}

// SetImmediate applies a write outside of a tick (§4.4: legal only from
// effects that explicitly opt in), bumping the version and durably
// persisting the change in the same transaction, shadowing the embedded
// Store's in-memory-only SetImmediate.
func (ps *PersistentStore) SetImmediate(key string, value interface{}, trigger, origin string) {
	var row *transitionRow
	ps.Store.onCommit = func(k string, old, new interface{}, trig, org string) {
		row = &transitionRow{key: k, old: old, new: new, trigger: trig, origin: org}
	}
	ps.Store.SetImmediate(key, value, trigger, origin)
	ps.Store.onCommit = nil

	if row == nil {
		return
	}
	newRaw, err := json.Marshal(row.new)
	if err != nil {
		return
	}
	oldRaw, _ := json.Marshal(row.old)
	now := time.Now().UTC()
	tx, err := ps.db.Begin()
	if err != nil {
		return
	}
	if _, err := tx.Exec(
		`INSERT INTO state(key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		row.key, string(newRaw), now,
	); err != nil {
		tx.Rollback()
		return
	}
	if _, err := tx.Exec(
		`INSERT INTO transitions(key, old_value, new_value, trigger, origin, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		row.key, string(oldRaw), string(newRaw), row.trigger, row.origin, now,
	); err != nil {
		tx.Rollback()
		return
	}
	tx.Commit()
}
