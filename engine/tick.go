package engine

import (
	"context"
	"time"

	"github.com/tickforge/orchestra/executor"
	"github.com/tickforge/orchestra/observability"
	"github.com/tickforge/orchestra/registry"
	"github.com/tickforge/orchestra/serialize"
	"github.com/tickforge/orchestra/state"
	"github.com/tickforge/orchestra/tree"
)

// persistentWriteQueue adapts *state.PersistentStore to executor.WriteQueuer.
// Node callbacks and the Executor queue writes here; they become visible together at
// the tick's Commit phase (§4.5).
type persistentWriteQueue struct{ store *state.PersistentStore }

func (w persistentWriteQueue) Enqueue(key string, value interface{}, trigger, origin string) {
	w.store.Enqueue(key, value, trigger, origin)
}

// TickResult summarizes the outcome of one Tick call.
type TickResult struct {
	FrameSequence  int64
	RunnableCount  int
	WriteCount     int
	Done           bool
	TerminationReason string
}

// Tick runs exactly one Snapshot→Render→Persist→Execute→Commit→Effects pass.
// Callers must not invoke Tick concurrently with itself (§5).
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	if e.stopped {
		return TickResult{Done: true}, nil
	}

	start := time.Now()
	e.tickCount++
	if e.tickCount > e.iterationCap {
		e.stopped = true
		_ = e.log.Finish(e.execution.ID, "completed", string(KindIterationCap))
		return TickResult{Done: true, TerminationReason: string(KindIterationCap)}, nil
	}

	// 1. Snapshot
	volSnap := e.volatile.Snapshot()
	persSnap := e.persistent.Snapshot()
	merged := state.Merge(volSnap, persSnap)

	// 2. Render
	newTree, err := e.reconciler.Reconcile(e.root, merged, e.currentTree)
	if err != nil {
		e.abort(err, KindConstruction)
		return TickResult{}, NewFault(KindConstruction, "", err)
	}
	e.currentTree = newTree

	// 3. Persist
	seq, err := e.log.NextSequenceNumber(e.execution.ID)
	if err != nil {
		e.abort(err, KindStateConflict)
		return TickResult{}, NewFault(KindStateConflict, "", err)
	}
	content := ""
	if newTree != nil {
		content = serialize.Text(newTree)
	}
	if err := e.log.AppendFrame(e.execution.ID, seq, content); err != nil {
		e.abort(err, KindStateConflict)
		return TickResult{}, NewFault(KindStateConflict, "", err)
	}
	e.metrics.RecordFrame(e.execution.ID, seq)

	// 4. Find runnables
	groups := findRunnableGroups(newTree, e.parallel)
	runnableCount := 0
	for _, g := range groups {
		runnableCount += len(g.nodes)
	}

	// 5. Execute
	e.executeGroups(ctx, groups)

	// 6. Commit
	writeDepth := e.persistent.QueueLen() + e.volatile.QueueLen()
	e.volatile.Commit()
	if _, err := e.persistent.Commit("tick", "engine"); err != nil {
		e.abort(err, KindStateConflict)
		return TickResult{}, NewFault(KindStateConflict, "", err)
	}
	e.metrics.RecordWriteQueueDepth(e.execution.ID, writeDepth)

	// 7. Effects
	e.effects.Flush(func(path string, v interface{}) {
		if e.reporter != nil {
			e.reporter.ReportFault(
				&observability.Fault{NodePath: path, Phase: "effect", PanicValue: v},
				&observability.ErrorContext{ExecutionID: e.execution.ID, NodePath: path, Kind: "effect", Timestamp: time.Now().UTC()},
			)
		}
	})

	e.metrics.RecordTick(e.execution.ID, time.Since(start))

	// Advance every registered loop's iteration counter and evaluate its
	// termination condition once per tick (§4.7); a loop that reaches either
	// its max_iterations cap or a false predicate stops counting toward
	// hasMoreWork below.
	for _, l := range e.loops {
		if terminal, _ := l.Terminal(); !terminal {
			l.Tick()
		}
	}

	done := !e.hasMoreWork(runnableCount, writeDepth)
	reason := ""
	if done {
		e.stopped = true
		for _, l := range e.loops {
			if _, r := l.Terminal(); r == registry.IterationCapReason {
				reason = r
			}
		}
		_ = e.log.Finish(e.execution.ID, "completed", reason)
	}

	return TickResult{
		FrameSequence: seq,
		RunnableCount: runnableCount,
		WriteCount:    writeDepth,
		Done:          done,
		TerminationReason: reason,
	}, nil
}

// RunUntilIdle ticks repeatedly until Tick reports Done or ctx is cancelled.
func (e *Engine) RunUntilIdle(ctx context.Context) (TickResult, error) {
	var last TickResult
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		default:
		}
		res, err := e.Tick(ctx)
		if err != nil {
			return res, err
		}
		last = res
		if res.Done {
			return last, nil
		}
	}
}

// Stop requests the engine halt at the next opportunity; in-flight
// dispatches are cancelled via ctx by the caller.
func (e *Engine) Stop(reason string) {
	e.stopped = true
	_ = e.log.Finish(e.execution.ID, "aborted", reason)
}

func (e *Engine) abort(cause error, kind Kind) {
	e.stopped = true
	content := ""
	if e.currentTree != nil {
		content = serialize.Text(e.currentTree)
	}
	seq, _ := e.log.NextSequenceNumber(e.execution.ID)
	_ = e.log.AppendFrame(e.execution.ID, seq, content)
	_ = e.log.Finish(e.execution.ID, "failed", cause.Error())
	e.report(cause, kind, "")
}

// hasMoreWork implements the §4.5 loop-termination predicate: continue
// while any runnable exists, the last tick enqueued writes, or a registered
// loop has not reached its terminal condition.
func (e *Engine) hasMoreWork(runnableCount, writeDepth int) bool {
	if runnableCount > 0 || writeDepth > 0 {
		return true
	}
	for _, l := range e.loops {
		terminal, _ := l.Terminal()
		if !terminal {
			return true
		}
	}
	return false
}

// runnableGroup is a maximal run of declared-order observable idle nodes
// sharing the same nearest parallel ancestor (nil for sequential siblings).
type runnableGroup struct {
	parallelAncestor *tree.Node
	nodes            []*tree.Node
}

// findRunnableGroups walks the tree collecting idle observable nodes into
// maximal declared-order runs sharing the same nearest parallel ancestor. A
// node counts as a parallel ancestor either by its literal type="parallel"
// tag or by having been marked in parallel (e.g. an isParallel phase's
// steps, §4.7) — the registry is consulted additively alongside the
// structural check, never in place of it.
func findRunnableGroups(root *tree.Node, parallel *registry.Parallel) []runnableGroup {
	var groups []runnableGroup
	var walk func(n *tree.Node, nearestParallel *tree.Node)
	walk = func(n *tree.Node, nearestParallel *tree.Node) {
		if n == nil {
			return
		}
		next := nearestParallel
		if n.Type == "parallel" || (parallel != nil && parallel.IsParallel(n.Path())) {
			next = n
		}
		if tree.IsObservable(n.Type) && n.Scratch.Lifecycle == LifecycleIdle {
			if len(groups) > 0 && groups[len(groups)-1].parallelAncestor == nearestParallel && nearestParallel != nil {
				last := &groups[len(groups)-1]
				last.nodes = append(last.nodes, n)
			} else {
				groups = append(groups, runnableGroup{parallelAncestor: nearestParallel, nodes: []*tree.Node{n}})
			}
		}
		for _, c := range n.Children {
			walk(c, next)
		}
	}
	walk(root, nil)
	return groups
}

func (e *Engine) executeGroups(ctx context.Context, groups []runnableGroup) {
	for _, g := range groups {
		if g.parallelAncestor != nil {
			e.executeConcurrent(ctx, g.nodes)
		} else {
			for _, n := range g.nodes {
				e.executeOne(ctx, n)
			}
		}
	}
}

func (e *Engine) executeConcurrent(ctx context.Context, nodes []*tree.Node) {
	done := make(chan struct{}, len(nodes))
	for _, n := range nodes {
		n := n
		go func() {
			defer func() { done <- struct{}{} }()
			e.executeOne(ctx, n)
		}()
	}
	for range nodes {
		<-done
	}
}

// executeOne drives one observable node through idle→started→terminal,
// invoking its callbacks and dispatching through the Executor. run-token
// dedup (P4) gates at-most-once dispatch per run-token within one node
// instance: the seen set lives in the node's scratch and Scratch.RunToken is
// not assigned here, so the token is the node path, and a node recreated at
// the same path starts with an empty set and is dispatched again.
func (e *Engine) executeOne(ctx context.Context, n *tree.Node) {
	path := n.Path()
	runToken := n.Scratch.RunToken
	if runToken == "" {
		runToken = path
	}
	if n.Scratch.DedupSeen[runToken] {
		return
	}
	n.Scratch.DedupSeen[runToken] = true

	wq := persistentWriteQueue{store: e.persistent}

	n.Scratch.Lifecycle = LifecycleStarted
	if cb, ok := n.Props[tree.CallbackOnStart].(OnStart); ok {
		e.safeCall(path, "on_start", func() { cb(wq) })
	}

	req := executor.Request{NodePath: path, NodeType: n.Type, RunToken: runToken, Input: n.Props, WriteQueue: wq}
	start := time.Now()
	result := e.exec.Dispatch(ctx, req)
	e.metrics.RecordDispatch(n.Type, outcomeLabel(result), time.Since(start))

	switch {
	case result.Succeeded():
		n.Scratch.Lifecycle = LifecycleCompleted
		n.Scratch.ResultHandle = result
		if cb, ok := n.Props[tree.CallbackOnFinished].(OnFinished); ok {
			e.safeCall(path, "on_finished", func() { cb(wq, result) })
		}
	case result.Failure == executor.FailureCancelled:
		n.Scratch.Lifecycle = LifecycleCancelled
		if cb, ok := n.Props[tree.CallbackOnCancel].(OnCancel); ok {
			e.safeCall(path, "on_cancel", func() { cb(wq) })
		}
	default:
		n.Scratch.Lifecycle = LifecycleFailed
		e.report(result.Err, KindExecutorFailure, path)
		if cb, ok := n.Props[tree.CallbackOnError].(OnError); ok {
			e.safeCall(path, "on_error", func() { cb(wq, result.Err) })
		}
	}
}

func outcomeLabel(r executor.Result) string {
	switch {
	case r.Succeeded():
		return "completed"
	case r.Failure == executor.FailureCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// safeCall recovers a panicking callback so one node's faulty callback never
// unwinds the tick (§7 "Effect errors are logged and swallowed" generalizes
// to node callbacks too).
func (e *Engine) safeCall(path, phase string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			if e.reporter != nil {
				e.reporter.ReportFault(
					&observability.Fault{NodePath: path, Phase: phase, PanicValue: v},
					&observability.ErrorContext{ExecutionID: e.execution.ID, NodePath: path, Kind: phase, Timestamp: time.Now().UTC()},
				)
			}
		}
	}()
	fn()
}
