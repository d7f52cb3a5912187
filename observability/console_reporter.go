package observability

import (
	"log"
	"sync"
	"time"
)

// ConsoleReporter logs faults and errors to stderr via the standard log
// package. Intended for local development and tests.
type ConsoleReporter struct {
	verbose bool
	mu      sync.Mutex
}

// NewConsoleReporter creates a console reporter. When verbose is true,
// stack traces are included in the output.
func NewConsoleReporter(verbose bool) *ConsoleReporter {
	return &ConsoleReporter{verbose: verbose}
}

func (r *ConsoleReporter) ReportFault(fault *Fault, ctx *ErrorContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.Printf("[ERROR] panic in execution %q node %q (%s): %v",
		ctx.ExecutionID, ctx.NodePath, fault.Phase, fault.PanicValue)
	if r.verbose && len(ctx.StackTrace) > 0 {
		log.Printf("stack trace:\n%s", ctx.StackTrace)
	}
}

func (r *ConsoleReporter) ReportError(err error, ctx *ErrorContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.Printf("[ERROR] %s in execution %q node %q: %v", ctx.Kind, ctx.ExecutionID, ctx.NodePath, err)
	if r.verbose && len(ctx.StackTrace) > 0 {
		log.Printf("stack trace:\n%s", ctx.StackTrace)
	}
}

// Flush is a no-op: console output is synchronous.
func (r *ConsoleReporter) Flush(timeout time.Duration) error {
	return nil
}
