package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickforge/orchestra/durablelog"
	"github.com/tickforge/orchestra/executor"
	"github.com/tickforge/orchestra/reconcile"
	"github.com/tickforge/orchestra/state"
)

func newTestEngine(t *testing.T, root reconcile.Component, exec executor.Executor) *Engine {
	t.Helper()
	db, err := durablelog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	persistent, err := state.NewPersistentStore(db)
	require.NoError(t, err)

	e, err := New(Config{
		Name:       "test",
		Source:     "test://source",
		Root:       root,
		Volatile:   state.NewStore(nil),
		Persistent: persistent,
		Log:        durablelog.New(db),
		Executor:   exec,
	})
	require.NoError(t, err)
	return e
}

// TestTick_ObservableLifecycle mirrors scenario S2: a single observable node
// whose on_finished callback queues a persistent write; the engine must
// transition idle→started→completed and the write must be visible on the
// next tick's snapshot.
func TestTick_ObservableLifecycle(t *testing.T) {
	var promoted bool
	root := reconcile.ComponentFunc(func(ctx *reconcile.RenderContext) reconcile.Element {
		milestone, _ := ctx.Snapshot().Get("milestone")
		promoted = milestone == "M1"
		return reconcile.Elem("agent", map[string]interface{}{
			"model": "gpt",
			"on_finished": OnFinished(func(wq executor.WriteQueuer, result executor.Result) {
				wq.Enqueue("milestone", "M1", "promote", "agent")
			}),
		})
	})

	exec := executor.Func(func(ctx context.Context, req executor.Request) executor.Result {
		return executor.Result{Output: "ok"}
	})

	e := newTestEngine(t, root, exec)

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.RunnableCount)
	assert.Equal(t, LifecycleCompleted, e.CurrentTree().Scratch.Lifecycle)
	assert.False(t, promoted, "milestone write is not visible until the following tick's snapshot")

	res2, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res2.FrameSequence)
	assert.True(t, promoted)
	assert.True(t, res2.Done)
}

// TestTick_IterationCapHaltsLoopingExecution mirrors scenario S4's cap
// behavior: an execution that never runs out of work (its agent runs once,
// but an uncapped loop whose predicate stays true never turns terminal) is
// forced to stop at the configured cap.
func TestTick_IterationCapHaltsLoopingExecution(t *testing.T) {
	count := 0
	root := reconcile.ComponentFunc(func(ctx *reconcile.RenderContext) reconcile.Element {
		count++
		return reconcile.Elem("agent", map[string]interface{}{
			"seq": count,
			"key": "a",
		})
	})

	exec := executor.Func(func(ctx context.Context, req executor.Request) executor.Result {
		return executor.Result{Output: "ok"}
	})

	e := newTestEngine(t, root, exec)
	e.iterationCap = 3
	// Register a loop that never reaches a terminal condition on its own, so
	// hasMoreWork keeps the engine ticking until the iteration cap forces it
	// to stop rather than the tree naturally going idle.
	e.Loop("L", 0, func(int) bool { return true })

	var last TickResult
	for i := 0; i < 10; i++ {
		res, err := e.Tick(context.Background())
		require.NoError(t, err)
		last = res
		if res.Done {
			break
		}
	}
	assert.True(t, last.Done)
}
