package reconcile

import (
	"fmt"

	"github.com/tickforge/orchestra/state"
	"github.com/tickforge/orchestra/tree"
)

// ConstructionError is a fatal construction-kind error from §7: an invalid
// tree shape discovered during reconciliation, e.g. an event callback
// attached to a non-observable node type.
type ConstructionError struct {
	NodePath string
	Message  string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construction error at %q: %s", e.NodePath, e.Message)
}

// Reconciler evaluates a root Component against a state snapshot and diffs
// the result into a tree.Node graph, reusing the previous tick's tree where
// structurally possible.
type Reconciler struct {
	effects *EffectRegistry
}

// NewReconciler creates a reconciler backed by effects, which must be
// reused across ticks so dependency-tuple comparisons span renders.
func NewReconciler(effects *EffectRegistry) *Reconciler {
	return &Reconciler{effects: effects}
}

// Reconcile renders root against snapshot, reusing and mutating previous (the
// prior tick's root node, or nil on the first tick) in place, and returns the
// resulting root node.
func (r *Reconciler) Reconcile(root Component, snapshot *state.Snapshot, previous *tree.Node) (*tree.Node, error) {
	ctx := NewRootContext(snapshot, r.effects)
	elem := root.Render(ctx)
	return r.reconcileOne(previous, elem, ctx)
}

// reconcileOne diffs a single slot: existing may be nil (first render).
func (r *Reconciler) reconcileOne(existing *tree.Node, elem Element, ctx *RenderContext) (*tree.Node, error) {
	if elem.Component != nil {
		childCtx := ctx.Child(elem.Key)
		inner := elem.Component.Render(childCtx)
		return r.reconcileOne(existing, inner, childCtx)
	}

	if elem.IsText {
		if existing != nil && existing.IsText() {
			if existing.Text() != elem.Text {
				tree.ReplaceText(existing, elem.Text)
			}
			return existing, nil
		}
		return tree.CreateTextNode(elem.Text), nil
	}

	if err := validateCallbacks(elem); err != nil {
		return nil, err
	}

	var node *tree.Node
	if existing != nil && !existing.IsText() && existing.Type == elem.Type {
		node = existing
	} else {
		node = tree.CreateElement(elem.Type)
	}

	for name, value := range elem.Props {
		tree.SetProperty(node, name, value)
	}
	if elem.Key != "" {
		node.Key = elem.Key
	}

	// Conditionals render their children only when their "condition" prop is
	// truthy (§4.2.3); the node itself always survives so a flipped-false
	// predicate re-renders to an empty-bodied element rather than vanishing.
	// The false-path subtree is torn down the same tick the predicate flips,
	// so its effects run cleanup via reconcileChildren's not-reused branch.
	if elem.Type == "conditional" {
		truthy, _ := elem.Props["condition"].(bool)
		if !truthy {
			elem = Element{Type: elem.Type, Props: elem.Props, Key: elem.Key}
		}
	}

	if err := r.reconcileChildren(node, elem.Children, ctx); err != nil {
		return nil, err
	}
	return node, nil
}

func validateCallbacks(elem Element) error {
	if tree.IsObservable(elem.Type) {
		return nil
	}
	for name := range elem.Props {
		if tree.IsCallbackProp(name) {
			return &ConstructionError{Message: fmt.Sprintf("callback %q attached to non-observable type %q", name, elem.Type)}
		}
	}
	return nil
}

// reconcileChildren diffs parent's existing children against target
// elements: same type+key (or positional match among unkeyed siblings)
// reuses the node and recurses; a type or key mismatch tears down the old
// subtree and inserts a fresh one.
func (r *Reconciler) reconcileChildren(parent *tree.Node, elems []Element, ctx *RenderContext) error {
	existing := make([]*tree.Node, len(parent.Children))
	copy(existing, parent.Children)

	byKey := make(map[string]*tree.Node)
	var unkeyed []*tree.Node
	for _, c := range existing {
		if c.Key != "" {
			byKey[c.Key] = c
		} else {
			unkeyed = append(unkeyed, c)
		}
	}

	used := make(map[*tree.Node]bool)
	var ordered []*tree.Node

	unkeyedIdx := 0
	for _, elem := range elems {
		// An element's identity key is its Key field or, as with
		// tree.SetProperty, either reserved key alias among its props.
		key := elem.Key
		if key == "" {
			key, _ = elem.Props[tree.PropKeyA].(string)
		}
		if key == "" {
			key, _ = elem.Props[tree.PropKeyB].(string)
		}
		var match *tree.Node
		if key != "" {
			if c, ok := byKey[key]; ok && !used[c] {
				match = c
			}
		} else {
			if unkeyedIdx < len(unkeyed) {
				match = unkeyed[unkeyedIdx]
			}
			unkeyedIdx++
		}

		result, err := r.reconcileOne(match, elem, ctx.Child(elem.Key))
		if err != nil {
			return err
		}
		if match != nil {
			used[match] = true
		}
		if result != nil {
			ordered = append(ordered, result)
		}
	}

	kept := make(map[*tree.Node]bool, len(ordered))
	for _, c := range ordered {
		kept[c] = true
	}

	// Tear down every existing child not kept this render; its effects'
	// cleanup runs post-order through Flush's not-re-registered path.
	for _, c := range existing {
		if !kept[c] {
			tree.RemoveNode(parent, c)
		}
	}

	// Re-lay the surviving/newly-created children out in target order.
	// InsertNode detaches a child already under parent before appending it,
	// so kept subtrees keep their descendants' back-pointers.
	for _, c := range ordered {
		tree.InsertNode(parent, c, nil)
	}
	return nil
}
