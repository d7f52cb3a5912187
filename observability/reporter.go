// Package observability provides pluggable error reporting for the tick
// engine. Reporting is optional and has zero overhead when no reporter is
// configured.
package observability

import (
	"sync"
	"time"
)

// Fault wraps a panic recovered while running an on_start/on_finished/
// on_error/on_cancel callback or an effect. It is reported, never re-raised,
// matching the recoverable-error propagation rule in the error taxonomy.
type Fault struct {
	NodePath   string
	Phase      string // "on_start", "on_finished", "on_error", "on_cancel", "effect"
	PanicValue interface{}
}

func (f *Fault) Error() string {
	return "panic in " + f.Phase + " at " + f.NodePath
}

// ErrorReporter is a pluggable sink for errors the tick engine surfaces.
// Implementations must be safe for concurrent use.
type ErrorReporter interface {
	// ReportFault reports a recovered panic from a node callback or effect.
	ReportFault(fault *Fault, ctx *ErrorContext)

	// ReportError reports a general engine error (construction, state-conflict,
	// resume-mismatch, iteration-cap, executor-failure).
	ReportError(err error, ctx *ErrorContext)

	// Flush blocks until pending reports are sent or the timeout elapses.
	Flush(timeout time.Duration) error
}

// ErrorContext carries the execution/node coordinates of a reported error.
type ErrorContext struct {
	ExecutionID string
	NodePath    string
	Kind        string // §7 taxonomy kind for ReportError; the Fault's Phase for ReportFault
	Timestamp   time.Time
	Tags        map[string]string
	Extra       map[string]interface{}
	StackTrace  []byte
}

var (
	globalReporterMu sync.RWMutex
	globalReporter   ErrorReporter
)

// SetErrorReporter configures the process-wide error reporter. Pass nil to
// disable reporting.
func SetErrorReporter(reporter ErrorReporter) {
	globalReporterMu.Lock()
	defer globalReporterMu.Unlock()
	globalReporter = reporter
}

// GetErrorReporter returns the currently configured reporter, or nil.
func GetErrorReporter() ErrorReporter {
	globalReporterMu.RLock()
	defer globalReporterMu.RUnlock()
	return globalReporter
}
