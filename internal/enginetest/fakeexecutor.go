// Package enginetest provides fixtures for exercising the tick engine in
// isolation: an in-memory durable log/state store pair and a scriptable
// fake Executor, in the spirit of the teacher's test-context helpers
// (isolated context construction, lifecycle triggers, mock composables)
// adapted to the tick engine's own suspension points.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tickforge/orchestra/executor"
)

// FakeExecutor is a scriptable Executor for tests. By default every
// dispatch succeeds with Output "ok"; register per-node-type or
// per-node-path responses to script specific scenarios (S2, S3, S4).
type FakeExecutor struct {
	mu        sync.Mutex
	byPath    map[string]executor.Result
	byType    map[string]executor.Result
	Default   executor.Result
	Dispatched []executor.Request
}

// NewFakeExecutor creates a FakeExecutor whose default response is a plain
// success.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		byPath:  make(map[string]executor.Result),
		byType:  make(map[string]executor.Result),
		Default: executor.Result{Output: "ok"},
	}
}

// OnPath scripts the result returned for dispatches at a specific node path.
func (f *FakeExecutor) OnPath(path string, result executor.Result) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPath[path] = result
	return f
}

// OnType scripts the result returned for dispatches of a specific node type.
func (f *FakeExecutor) OnType(nodeType string, result executor.Result) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byType[nodeType] = result
	return f
}

// Dispatch implements executor.Executor.
func (f *FakeExecutor) Dispatch(ctx context.Context, req executor.Request) executor.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Dispatched = append(f.Dispatched, req)

	select {
	case <-ctx.Done():
		return executor.Result{Failure: executor.FailureCancelled, Err: ctx.Err()}
	default:
	}

	if r, ok := f.byPath[req.NodePath]; ok {
		return r
	}
	if r, ok := f.byType[req.NodeType]; ok {
		return r
	}
	return f.Default
}

// CallCount returns how many times Dispatch was invoked for the given path,
// used to assert at-most-once dispatch (P4).
func (f *FakeExecutor) CallCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.Dispatched {
		if r.NodePath == path {
			n++
		}
	}
	return n
}

// FailingResult builds an executor-failure outcome with the given message.
func FailingResult(msg string) executor.Result {
	return executor.Result{Failure: executor.FailureExecutor, Err: fmt.Errorf("%s", msg)}
}
