// Package tree implements the in-memory rendered tree (C1) and the host
// contract (C2) the reconciler drives: create, insert, remove, replace and
// inspect nodes. Every operation mutates the tree in place; there are no
// persistent or immutable copies.
package tree

import (
	"strconv"
	"sync"
)

// reserved prop names. Children are never addressable as a prop; the two
// identity-key aliases route into Node.Key instead of Props.
const (
	PropText  = "__text"
	PropKeyA  = "key"
	PropKeyB  = "_key"
	PropEvent = "__events" // synthetic, serializer-only
)

// Callback props an observable node may carry (§4.3). Attaching any of
// these to a non-observable node type is a fatal construction error.
const (
	CallbackOnStart    = "on_start"
	CallbackOnFinished = "on_finished"
	CallbackOnError    = "on_error"
	CallbackOnCancel   = "on_cancel"
)

// ObservableTypes is the closed set of node types that may carry lifecycle
// callbacks — a type query, not a string compare against a magic list
// scattered across packages (§9 "tagged variant").
var ObservableTypes = map[string]bool{
	"agent":            true,
	"sub-orchestrator": true,
}

// IsObservable reports whether nodeType may carry lifecycle callbacks.
func IsObservable(nodeType string) bool {
	return ObservableTypes[nodeType]
}

// IsCallbackProp reports whether name is one of the reserved event-callback
// attribute names.
func IsCallbackProp(name string) bool {
	switch name {
	case CallbackOnStart, CallbackOnFinished, CallbackOnError, CallbackOnCancel:
		return true
	default:
		return false
	}
}

// Scratch holds per-node engine state that is never serialized: lifecycle
// phase, the last executor result handle, and the dedup token that gates
// at-most-once dispatch.
type Scratch struct {
	Lifecycle    string // idle, started, completed, failed, cancelled
	RunToken     string
	ResultHandle interface{}
	DedupSeen    map[string]bool
}

// Node is one element of the rendered tree. Type is the intrinsic tag (e.g.
// "conditional", "phase", "step", "parallel", "loop", "agent",
// "sub-orchestrator") or the literal text tag for text nodes.
type Node struct {
	mu       sync.Mutex
	Type     string
	Key      string
	Props    map[string]interface{}
	Children []*Node
	Parent   *Node
	Scratch  *Scratch
}

// New creates a fresh, detached node of the given type.
func New(nodeType string) *Node {
	return &Node{
		Type:    nodeType,
		Props:   make(map[string]interface{}),
		Scratch: &Scratch{Lifecycle: "idle", DedupSeen: make(map[string]bool)},
	}
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n.Type == "__text"
}

// Text returns the text content of a text node, or "" for element nodes.
func (n *Node) Text() string {
	if v, ok := n.Props[PropText].(string); ok {
		return v
	}
	return ""
}

// Path returns the node's position in the tree as a slash-joined sequence of
// child indices from the root, e.g. "0/2/1". The root's path is "".
// Path scopes executor run-tokens and parallel-registry lookups (§4.3, §9);
// effect dedup keys off reconcile.RenderContext paths instead.
func (n *Node) Path() string {
	if n.Parent == nil {
		return ""
	}
	idx := n.Parent.indexOf(n)
	parent := n.Parent.Path()
	if parent == "" {
		return strconv.Itoa(idx)
	}
	return parent + "/" + strconv.Itoa(idx)
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}
