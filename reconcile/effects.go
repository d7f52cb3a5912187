package reconcile

import (
	"fmt"
	"reflect"
	"sort"
)

// registeredEffect is one effect's bookkeeping between ticks.
type registeredEffect struct {
	path    string
	deps    []interface{}
	run     func() (cleanup func())
	cleanup func()
	ran     bool
	order   int
}

// EffectRegistry deduplicates effects by component path + dependency tuple
// (§4.2 step 4, §4.6) and runs them in declaration order, parent-before-
// child, after each tick's commit.
type EffectRegistry struct {
	pending  []*registeredEffect
	previous map[string]*registeredEffect
	seq      int
}

// NewEffectRegistry creates an empty registry. Reuse the same instance
// across ticks so dependency-tuple comparisons span renders.
func NewEffectRegistry() *EffectRegistry {
	return &EffectRegistry{previous: make(map[string]*registeredEffect)}
}

// Register records an effect seen during the current render. Registration
// itself never runs anything; Flush does, after commit.
func (r *EffectRegistry) Register(path string, deps []interface{}, run func() (cleanup func())) {
	r.seq++
	r.pending = append(r.pending, &registeredEffect{path: path, deps: deps, run: run, order: r.seq})
}

// Flush compares each pending effect's dependency tuple to its previous
// run's tuple: unchanged effects are skipped, changed or first-seen effects
// run their previous cleanup (if any) then execute, recording a new
// cleanup. Effects not re-registered this render (their component was
// unmounted) have their cleanup run once, children before parents, and are
// dropped. Panics from an
// effect are recovered and reported via onPanic so one effect's failure
// never prevents siblings from running.
func (r *EffectRegistry) Flush(onPanic func(path string, v interface{})) {
	sort.SliceStable(r.pending, func(i, j int) bool {
		return pathLess(r.pending[i].path, r.pending[j].path)
	})

	seen := make(map[string]*registeredEffect, len(r.pending))
	for _, eff := range r.pending {
		key := effectKey(eff.path, eff.deps)
		seen[key] = eff

		prev, existed := r.previous[key]
		if existed && depsEqual(prev.deps, eff.deps) {
			eff.cleanup = prev.cleanup
			eff.ran = true
			continue
		}

		func() {
			defer func() {
				if v := recover(); v != nil && onPanic != nil {
					onPanic(eff.path, v)
				}
			}()
			if existed && prev.cleanup != nil {
				prev.cleanup()
			}
			eff.cleanup = eff.run()
			eff.ran = true
		}()
	}

	// Unmounted effects clean up post-order: a descendant's path extends its
	// ancestor's, so descending path order runs children before parents.
	var stale []*registeredEffect
	for key, prev := range r.previous {
		if _, stillPresent := seen[key]; !stillPresent && prev.cleanup != nil {
			stale = append(stale, prev)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if stale[i].path != stale[j].path {
			return pathLess(stale[j].path, stale[i].path)
		}
		return stale[i].order > stale[j].order
	})
	for _, prev := range stale {
		func() {
			defer func() {
				if v := recover(); v != nil && onPanic != nil {
					onPanic(prev.path, v)
				}
			}()
			prev.cleanup()
		}()
	}

	r.previous = seen
	r.pending = nil
	r.seq = 0
}

func effectKey(path string, deps []interface{}) string {
	return fmt.Sprintf("%s#%d", path, len(deps))
}

func depsEqual(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// pathLess orders component paths so that a parent path always sorts
// before its children, matching declaration order parent-before-child.
func pathLess(a, b string) bool {
	return a < b
}
