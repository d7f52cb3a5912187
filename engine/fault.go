// Package engine implements the tick engine (C6): the six-phase
// Snapshot→Render→Persist→Execute→Commit→Effects loop that binds the node
// tree, reconciler, reactive store and durable log together and drives the
// Executor boundary.
package engine

import "fmt"

// Kind classifies a Fault per the §7 error taxonomy. Kinds are bookkeeping
// labels, not distinct Go types, so callers can switch on Kind without a
// type-assertion ladder.
type Kind string

const (
	// KindConstruction: invalid tree shape discovered at reconciliation.
	// Fatal — aborts the execution.
	KindConstruction Kind = "construction"
	// KindExecutorFailure: a dispatched runnable returned an error.
	// Recoverable — delivered to on_error, tick commits normally.
	KindExecutorFailure Kind = "executor-failure"
	// KindCancelled: a dispatched runnable was cancelled.
	// Recoverable — delivered to on_cancel, tick commits normally.
	KindCancelled Kind = "cancelled"
	// KindStateConflict: commit detected an invariant violation that
	// should not occur under single-threaded discipline. Fatal.
	KindStateConflict Kind = "state-conflict"
	// KindResumeMismatch: on-disk schema/version incompatible with this
	// engine. Fatal with a diagnostic message.
	KindResumeMismatch Kind = "resume-mismatch"
	// KindIterationCap: the engine exceeded its configured max ticks.
	// Graceful stop, not an abort.
	KindIterationCap Kind = "iteration-cap"
)

// Fatal reports whether faults of this kind abort the execution rather than
// being delivered to a node callback and absorbed into the normal tick.
func (k Kind) Fatal() bool {
	switch k {
	case KindConstruction, KindStateConflict, KindResumeMismatch:
		return true
	default:
		return false
	}
}

// Fault wraps an engine-level error with its taxonomy Kind and the node
// path it occurred at, if any. It is the error type engine operations
// return; observability.Fault (a recovered panic) is a different, narrower
// concept reported separately.
type Fault struct {
	Kind     Kind
	NodePath string
	Cause    error
}

func (f *Fault) Error() string {
	if f.NodePath != "" {
		return fmt.Sprintf("%s at %q: %v", f.Kind, f.NodePath, f.Cause)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Cause)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// NewFault constructs a Fault, wrapping cause.
func NewFault(kind Kind, nodePath string, cause error) *Fault {
	return &Fault{Kind: kind, NodePath: nodePath, Cause: cause}
}
