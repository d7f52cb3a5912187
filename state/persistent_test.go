package state

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickforge/orchestra/durablelog"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := durablelog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPersistentStore_CommitWritesStateAndTransitionAtomically(t *testing.T) {
	db := openTestDB(t)
	ps, err := NewPersistentStore(db)
	require.NoError(t, err)

	ps.Enqueue("milestone", "M1", "promote", "agent")
	ops, err := ps.Commit("tick", "engine")
	require.NoError(t, err)
	assert.Len(t, ops, 1)

	var stateCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM state WHERE key = 'milestone'`).Scan(&stateCount))
	assert.Equal(t, 1, stateCount)

	var transitionCount int
	var trigger, origin string
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*), trigger, origin FROM transitions WHERE key = 'milestone' GROUP BY trigger, origin`,
	).Scan(&transitionCount, &trigger, &origin))
	assert.Equal(t, 1, transitionCount)
	assert.Equal(t, "promote", trigger)
	assert.Equal(t, "agent", origin)
}

func TestPersistentStore_CommitWithNoChangesTouchesNoTables(t *testing.T) {
	db := openTestDB(t)
	ps, err := NewPersistentStore(db)
	require.NoError(t, err)

	// Enqueue then commit once to establish a baseline value.
	ps.Enqueue("k", "v", "t", "o")
	_, err = ps.Commit("tick", "engine")
	require.NoError(t, err)

	// Enqueue the identical value again: no change, so Commit must be a
	// no-op against SQL (no new transitions row).
	ps.Enqueue("k", "v", "t", "o")
	_, err = ps.Commit("tick", "engine")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transitions WHERE key = 'k'`).Scan(&count))
	assert.Equal(t, 1, count, "identical re-write must not append a second transition")
}

func TestPersistentStore_ReloadsStateFromDB(t *testing.T) {
	db := openTestDB(t)
	ps, err := NewPersistentStore(db)
	require.NoError(t, err)

	ps.Enqueue("phase", "render", "t", "o")
	_, err = ps.Commit("tick", "engine")
	require.NoError(t, err)

	// A fresh PersistentStore over the same DB must observe the persisted
	// value, mirroring resume-from-durable-log semantics (§4.9).
	reopened, err := NewPersistentStore(db)
	require.NoError(t, err)
	v, ok := reopened.Get("phase")
	assert.True(t, ok)
	assert.Equal(t, "render", v)
}

func TestPersistentStore_SetImmediatePersistsDurably(t *testing.T) {
	db := openTestDB(t)
	ps, err := NewPersistentStore(db)
	require.NoError(t, err)

	ps.SetImmediate("flag", true, "manual", "effect")

	var raw string
	require.NoError(t, db.QueryRow(`SELECT value FROM state WHERE key = 'flag'`).Scan(&raw))
	assert.Equal(t, "true", raw)

	var transitionCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transitions WHERE key = 'flag'`).Scan(&transitionCount))
	assert.Equal(t, 1, transitionCount)
}

func TestPersistentStore_SetImmediateNoOpDoesNotWriteTransition(t *testing.T) {
	db := openTestDB(t)
	ps, err := NewPersistentStore(db)
	require.NoError(t, err)

	ps.SetImmediate("flag", true, "first", "effect")
	ps.SetImmediate("flag", true, "second", "effect")

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transitions WHERE key = 'flag'`).Scan(&count))
	assert.Equal(t, 1, count)
}
