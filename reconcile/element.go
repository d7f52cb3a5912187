// Package reconcile implements the declarative-to-imperative reconciler
// (C3): it evaluates components against a state snapshot and diffs the
// result into the tree.Node graph (C1) through the host contract (C2).
package reconcile

// Element is the descriptor a Component yields: either an intrinsic element
// (Type non-empty) or a text leaf (IsText true). Children are themselves
// Elements or further Components to evaluate, never tree.Node values —
// components never touch the tree directly.
type Element struct {
	Type     string
	Key      string
	Props    map[string]interface{}
	Children []Element
	IsText   bool
	Text     string
	// Component, when non-nil, defers evaluation of this element to a
	// nested component rather than treating Type/Props/Children as final.
	Component Component
}

// TextElement returns a text-leaf element.
func TextElement(s string) Element {
	return Element{IsText: true, Text: s}
}

// Elem returns an intrinsic element with the given type, props and children.
func Elem(elemType string, props map[string]interface{}, children ...Element) Element {
	if props == nil {
		props = map[string]interface{}{}
	}
	return Element{Type: elemType, Props: props, Children: children}
}

// Component is the author-facing unit of composition. Render receives a
// RenderContext bound to the component's stable path (used for effect
// dedup) and the frozen state snapshot for this tick.
type Component interface {
	Render(ctx *RenderContext) Element
}

// ComponentFunc adapts a plain function to the Component interface.
type ComponentFunc func(ctx *RenderContext) Element

func (f ComponentFunc) Render(ctx *RenderContext) Element { return f(ctx) }
