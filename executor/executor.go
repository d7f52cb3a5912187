// Package executor defines the boundary to runnable-node handlers (C9).
// The core defines the contract only; LLM clients, tool execution, and
// sub-orchestrator launches are pluggable implementations supplied by the
// host.
package executor

import "context"

// Request carries an observable node's input projection to the Executor,
// plus a handle the implementation can use to queue writes visible at the
// tick's commit (§6).
type Request struct {
	NodePath   string
	NodeType   string
	RunToken   string
	Input      map[string]interface{}
	WriteQueue WriteQueuer
}

// WriteQueuer is the narrow handle callbacks (on_start/on_finished/
// on_error/on_cancel) and Executor implementations use to queue a write op
// without depending on the full state package.
type WriteQueuer interface {
	Enqueue(key string, value interface{}, trigger, origin string)
}

// FailureKind classifies a non-success Result per the §7 error taxonomy.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureExecutor  FailureKind = "executor-failure"
	FailureCancelled FailureKind = "cancelled"
)

// Result is what dispatch produces: either a successful output or a
// classified failure. A cancelled dispatch always carries FailureCancelled.
type Result struct {
	Output        string
	Structured    map[string]interface{}
	PromptTokens  int
	OutputTokens  int
	DurationMS    int64
	StopReason    string
	Failure       FailureKind
	Err           error
}

// Succeeded reports whether the dispatch produced a usable result.
func (r Result) Succeeded() bool {
	return r.Failure == FailureNone
}

// Executor turns a runnable's input projection into a Result. Implementations
// must be safe to invoke concurrently from distinct runnables of a parallel
// enclosure (§6), and must honor ctx cancellation promptly. The engine passes
// the ctx given to Tick through unchanged; it does not itself cancel
// in-flight dispatches on node removal, a loop's max-iteration hit, or Stop.
type Executor interface {
	Dispatch(ctx context.Context, req Request) Result
}

// Func adapts a plain function to the Executor interface.
type Func func(ctx context.Context, req Request) Result

func (f Func) Dispatch(ctx context.Context, req Request) Result { return f(ctx, req) }
