// Package registry implements the three subtree-scoped coordination
// registries (C7): phase/step sequencing, loop iteration bookkeeping, and
// parallel-enclosure marking.
package registry

import "sync"

// PhaseStep coordinates a provider's phase children and, within the active
// phase, its step children. Exactly one phase (and, absent isParallel, one
// step) is active at a time. The active indices are held in memory only;
// nothing here writes them to state or restores them on resume.
type PhaseStep struct {
	mu               sync.Mutex
	activePhase      int
	phaseCount       int
	activeStep       int
	stepCount        int
	isParallel       bool
	completedSteps   map[int]bool
	onAllCompleted   func()
	firedAllComplete bool
}

// NewPhaseStep creates a registry for a provider with phaseCount phases.
func NewPhaseStep(phaseCount int, onAllCompleted func()) *PhaseStep {
	return &PhaseStep{
		phaseCount:     phaseCount,
		completedSteps: make(map[int]bool),
		onAllCompleted: onAllCompleted,
	}
}

// ActivePhase returns the currently active phase index.
func (r *PhaseStep) ActivePhase() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activePhase
}

// SetStepCount configures the active phase's step count and parallel mode.
// Host code calls it as each phase's steps become known (see
// Engine.PhaseGroup); the reconciler does not call it.
func (r *PhaseStep) SetStepCount(count int, isParallel bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepCount = count
	r.isParallel = isParallel
	r.completedSteps = make(map[int]bool)
	r.activeStep = 0
}

// StepActive reports whether stepIndex is currently active: under
// isParallel every step not yet completed, otherwise only the current
// activeStep.
func (r *PhaseStep) StepActive(stepIndex int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isParallel {
		return !r.completedSteps[stepIndex]
	}
	return stepIndex == r.activeStep
}

// CompleteStep marks stepIndex completed. When every step in the active
// phase has completed, the phase advances (or, if it was the final phase,
// the registry fires onAllCompleted exactly once).
func (r *PhaseStep) CompleteStep(stepIndex int) {
	r.mu.Lock()
	r.completedSteps[stepIndex] = true

	allStepsDone := len(r.completedSteps) >= r.stepCount
	if allStepsDone && !r.isParallel {
		r.activeStep++
	}

	phaseDone := allStepsDone
	var firePhaseAdvance, fireAllComplete bool
	if phaseDone {
		if r.activePhase+1 < r.phaseCount {
			r.activePhase++
			r.stepCount = 0
			r.activeStep = 0
			r.completedSteps = make(map[int]bool)
			firePhaseAdvance = true
		} else if !r.firedAllComplete {
			r.firedAllComplete = true
			fireAllComplete = true
		}
	}
	cb := r.onAllCompleted
	r.mu.Unlock()

	_ = firePhaseAdvance
	if fireAllComplete && cb != nil {
		cb()
	}
}
