package registry

import "sync"

// IterationCapReason is the termination reason the engine reports when a
// loop or the overall tick budget exhausts its hard stop.
const IterationCapReason = "iteration-cap"

// Loop tracks one loop node's iteration count and predicate. The counter is
// held in memory only; nothing here writes it to persistent state, and a
// resumed loop starts from zero unless RestoreIteration seeds it.
type Loop struct {
	mu        sync.Mutex
	ID        string
	Max       int
	Predicate func(iteration int) bool
	iteration int
	terminal  bool
	reason    string
}

// NewLoop creates a loop registry entry. Tick calls predicate with the new
// iteration count each time it advances the loop.
func NewLoop(id string, max int, predicate func(iteration int) bool) *Loop {
	return &Loop{ID: id, Max: max, Predicate: predicate}
}

// Iteration returns the current iteration count.
func (l *Loop) Iteration() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.iteration
}

// RestoreIteration seeds the counter from persisted state on resume.
func (l *Loop) RestoreIteration(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.iteration = n
}

// Terminal reports whether the loop has reached a terminal condition, and
// if so, the reason ("iteration-cap" or "predicate").
func (l *Loop) Terminal() (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.terminal, l.reason
}

// Tick increments the iteration counter and evaluates termination: the
// max_iterations hard stop takes priority over the predicate so a loop
// whose predicate never goes false still halts deterministically.
func (l *Loop) Tick() (shouldContinue bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.terminal {
		return false
	}

	l.iteration++
	if l.Max > 0 && l.iteration >= l.Max {
		l.terminal = true
		l.reason = IterationCapReason
		return false
	}
	if l.Predicate != nil && !l.Predicate(l.iteration) {
		l.terminal = true
		l.reason = "predicate"
		return false
	}
	return true
}
