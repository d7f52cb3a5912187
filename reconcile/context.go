package reconcile

import (
	"strconv"

	"github.com/tickforge/orchestra/state"
)

// RenderContext is bound to one component's stable path for a single
// render. Components read state through Snapshot and register effects
// through UseEffect; they never touch the tree directly.
type RenderContext struct {
	path     string
	snapshot *state.Snapshot
	effects  *EffectRegistry
	childIdx map[string]int
}

// NewRootContext creates the RenderContext for the root component of a tick.
func NewRootContext(snapshot *state.Snapshot, effects *EffectRegistry) *RenderContext {
	return &RenderContext{snapshot: snapshot, effects: effects, childIdx: map[string]int{}}
}

// Path returns this component's stable path (§9 "component identity +
// stable slot index").
func (c *RenderContext) Path() string {
	return c.path
}

// Snapshot returns the frozen state view for this render.
func (c *RenderContext) Snapshot() *state.Snapshot {
	return c.snapshot
}

// Child derives a nested RenderContext for a child component. key, when
// non-empty, makes the child path stable across reorders; otherwise the
// child is identified by its positional slot index among unkeyed siblings
// at this path.
func (c *RenderContext) Child(key string) *RenderContext {
	slot := key
	if slot == "" {
		slot = "#" + strconv.Itoa(c.childIdx["#"])
		c.childIdx["#"]++
	} else {
		slot = "@" + slot
	}
	path := slot
	if c.path != "" {
		path = c.path + "/" + slot
	}
	return &RenderContext{path: path, snapshot: c.snapshot, effects: c.effects, childIdx: map[string]int{}}
}

// UseEffect registers an effect at this component's path with the given
// dependency tuple. See EffectRegistry for dedup/scheduling semantics.
func (c *RenderContext) UseEffect(deps []interface{}, run func() (cleanup func())) {
	c.effects.Register(c.path, deps, run)
}
