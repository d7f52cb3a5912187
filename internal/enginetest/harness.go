package enginetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tickforge/orchestra/durablelog"
	"github.com/tickforge/orchestra/engine"
	"github.com/tickforge/orchestra/reconcile"
	"github.com/tickforge/orchestra/state"
)

// Harness bundles an isolated Engine plus the fake executor driving it, so
// tests can assert on dispatch counts and tree shape. New backs it with an
// in-memory SQLite database; NewAt opens a SQLite file at a given path.
type Harness struct {
	Engine   *engine.Engine
	Executor *FakeExecutor
}

// New creates a Harness wired to an in-memory SQLite database and the given
// root component.
func New(t *testing.T, name, source string, root reconcile.Component) *Harness {
	return NewAt(t, ":memory:", name, source, root)
}

// NewAt creates a Harness wired to the SQLite database at path. Tests that
// exercise resume (§4.9) use a shared temp-file path across two NewAt calls
// to simulate a process restart against the same durable log.
func NewAt(t *testing.T, path, name, source string, root reconcile.Component) *Harness {
	t.Helper()
	db, err := durablelog.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	persistent, err := state.NewPersistentStore(db)
	require.NoError(t, err)

	exec := NewFakeExecutor()
	e, err := engine.New(engine.Config{
		Name:       name,
		Source:     source,
		Root:       root,
		Volatile:   state.NewStore(nil),
		Persistent: persistent,
		Log:        durablelog.New(db),
		Executor:   exec,
	})
	require.NoError(t, err)

	return &Harness{Engine: e, Executor: exec}
}
