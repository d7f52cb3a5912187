package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryReporter sends faults and errors to Sentry. Intended for production
// use; pass an empty DSN to construct a reporter that never sends (useful in
// tests).
type SentryReporter struct {
	hub *sentry.Hub
}

// SentryOption configures the underlying Sentry client.
type SentryOption func(*sentry.ClientOptions)

// WithDebug enables Sentry SDK debug logging.
func WithDebug(debug bool) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Debug = debug }
}

// WithEnvironment tags all reported events with the given environment.
func WithEnvironment(environment string) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Environment = environment }
}

// WithRelease tags all reported events with the given release identifier.
func WithRelease(release string) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Release = release }
}

// NewSentryReporter initializes the Sentry SDK and returns a reporter bound
// to the current hub.
func NewSentryReporter(dsn string, opts ...SentryOption) (*SentryReporter, error) {
	clientOpts := sentry.ClientOptions{Dsn: dsn}
	for _, opt := range opts {
		opt(&clientOpts)
	}
	if err := sentry.Init(clientOpts); err != nil {
		return nil, fmt.Errorf("initialize sentry: %w", err)
	}
	return &SentryReporter{hub: sentry.CurrentHub()}, nil
}

func (r *SentryReporter) ReportFault(fault *Fault, ctx *ErrorContext) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("execution_id", ctx.ExecutionID)
		scope.SetTag("node_path", ctx.NodePath)
		scope.SetTag("phase", fault.Phase)
		for k, v := range ctx.Tags {
			scope.SetTag(k, v)
		}
		scope.SetExtra("panic_value", fault.PanicValue)
		for k, v := range ctx.Extra {
			scope.SetExtra(k, v)
		}
		r.hub.CaptureException(fmt.Errorf("panic in %s at node %q: %v", fault.Phase, fault.NodePath, fault.PanicValue))
	})
}

func (r *SentryReporter) ReportError(err error, ctx *ErrorContext) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("execution_id", ctx.ExecutionID)
		scope.SetTag("node_path", ctx.NodePath)
		scope.SetTag("kind", ctx.Kind)
		for k, v := range ctx.Tags {
			scope.SetTag(k, v)
		}
		for k, v := range ctx.Extra {
			scope.SetExtra(k, v)
		}
		r.hub.CaptureException(err)
	})
}

// Flush blocks until Sentry has sent pending events or timeout elapses.
func (r *SentryReporter) Flush(timeout time.Duration) error {
	if !r.hub.Flush(timeout) {
		return fmt.Errorf("sentry flush timed out after %s", timeout)
	}
	return nil
}
