package engine

import (
	"fmt"
	"time"

	"github.com/tickforge/orchestra/durablelog"
	"github.com/tickforge/orchestra/executor"
	"github.com/tickforge/orchestra/monitoring"
	"github.com/tickforge/orchestra/observability"
	"github.com/tickforge/orchestra/reconcile"
	"github.com/tickforge/orchestra/registry"
	"github.com/tickforge/orchestra/state"
	"github.com/tickforge/orchestra/tree"
)

// DefaultIterationCap is the hard stop on tick count per execution when the
// caller does not configure one (§4.5, §9 — the source varied between 100
// and 200; this implementation picks 200).
const DefaultIterationCap = 200

// Config configures one Engine instance.
type Config struct {
	Name         string
	Source       string
	Root         reconcile.Component
	Volatile     *state.Store
	Persistent   *state.PersistentStore
	Log          *durablelog.Log
	Executor     executor.Executor
	IterationCap int
	Metrics      monitoring.EngineMetrics
	Reporter     observability.ErrorReporter
}

// Engine drives one execution's tick loop. It is single-threaded and
// cooperative (§5): callers must not invoke Tick concurrently with itself.
type Engine struct {
	name         string
	source       string
	root         reconcile.Component
	volatile     *state.Store
	persistent   *state.PersistentStore
	log          *durablelog.Log
	exec         executor.Executor
	effects      *reconcile.EffectRegistry
	reconciler   *reconcile.Reconciler
	parallel     *registry.Parallel
	loops        map[string]*registry.Loop
	phases       map[string]*registry.PhaseStep
	metrics      monitoring.EngineMetrics
	reporter     observability.ErrorReporter
	iterationCap int

	currentTree *tree.Node
	execution   *durablelog.Execution
	tickCount   int
	stopped     bool
}

// New constructs an Engine and attaches it to a running execution for cfg.Source,
// or starts a fresh one (§4.9 resume).
func New(cfg Config) (*Engine, error) {
	if cfg.Root == nil {
		return nil, NewFault(KindConstruction, "", fmt.Errorf("engine requires a root component"))
	}
	exec, err := cfg.Log.Attach(cfg.Name, cfg.Source)
	if err != nil {
		return nil, NewFault(KindResumeMismatch, "", err)
	}

	cap := cfg.IterationCap
	if cap <= 0 {
		cap = DefaultIterationCap
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = monitoring.NoOpMetrics{}
	}
	effects := reconcile.NewEffectRegistry()

	return &Engine{
		name:         cfg.Name,
		source:       cfg.Source,
		root:         cfg.Root,
		volatile:     cfg.Volatile,
		persistent:   cfg.Persistent,
		log:          cfg.Log,
		exec:         cfg.Executor,
		effects:      effects,
		reconciler:   reconcile.NewReconciler(effects),
		parallel:     registry.NewParallel(),
		loops:        make(map[string]*registry.Loop),
		phases:       make(map[string]*registry.PhaseStep),
		metrics:      metrics,
		reporter:     cfg.Reporter,
		iterationCap: cap,
		execution:    exec,
	}, nil
}

// ExecutionID returns the attached or newly created execution's id.
func (e *Engine) ExecutionID() string {
	return e.execution.ID
}

// CurrentTree returns the most recently rendered tree, or nil before the
// first tick.
func (e *Engine) CurrentTree() *tree.Node {
	return e.currentTree
}

// Loop registers (or returns the existing) loop registry entry for id, used
// by loop-node components to track their own iteration state.
func (e *Engine) Loop(id string, max int, predicate func(int) bool) *registry.Loop {
	if l, ok := e.loops[id]; ok {
		return l
	}
	l := registry.NewLoop(id, max, predicate)
	e.loops[id] = l
	return l
}

// PhaseGroup registers (or returns the existing) phase/step registry entry
// for a provider node path, used by phase-provider components to track
// which phase (and, within it, which step) is active (§4.7). Host/authoring
// code drives it explicitly — calling SetStepCount as each phase's steps are
// known and CompleteStep as the phase's tracked tasks finish — the same
// explicit-registration pattern as Loop.
func (e *Engine) PhaseGroup(path string, phaseCount int, onAllCompleted func()) *registry.PhaseStep {
	if p, ok := e.phases[path]; ok {
		return p
	}
	p := registry.NewPhaseStep(phaseCount, onAllCompleted)
	e.phases[path] = p
	return p
}

// Parallel exposes the engine's parallel-enclosure registry so host/
// authoring code can mark a subtree concurrent-dispatch without it being a
// literal type="parallel" node (e.g. an isParallel phase's steps).
func (e *Engine) Parallel() *registry.Parallel {
	return e.parallel
}

// report delivers a fault to the configured reporter, if any, and is always
// safe to call even with a nil reporter.
func (e *Engine) report(err error, kind Kind, nodePath string) {
	if e.reporter == nil {
		return
	}
	e.reporter.ReportError(err, &observability.ErrorContext{
		ExecutionID: e.execution.ID,
		NodePath:    nodePath,
		Kind:        string(kind),
		Timestamp:   time.Now().UTC(),
	})
}
