package serialize

import (
	"sort"

	"github.com/tickforge/orchestra/tree"
)

// NodeSnapshot is a structured, serializer-neutral projection of one node —
// the inspection counterpart to Text, used by the MCP host resources and by
// tests that want to assert on structure rather than diff text.
type NodeSnapshot struct {
	Type     string                 `json:"type"`
	Key      string                 `json:"key,omitempty"`
	Text     string                 `json:"text,omitempty"`
	Props    map[string]interface{} `json:"props,omitempty"`
	Events   []string               `json:"events,omitempty"`
	Children []NodeSnapshot         `json:"children,omitempty"`
}

// Snapshot projects n and its subtree into a NodeSnapshot tree.
func Snapshot(n *tree.Node) NodeSnapshot {
	if n.IsText() {
		return NodeSnapshot{Type: "__text", Text: n.Text()}
	}

	props := make(map[string]interface{})
	var events []string
	for name, value := range n.Props {
		if tree.IsCallbackProp(name) {
			events = append(events, name)
			continue
		}
		props[name] = value
	}
	sort.Strings(events)

	children := make([]NodeSnapshot, len(n.Children))
	for i, c := range n.Children {
		children[i] = Snapshot(c)
	}

	return NodeSnapshot{
		Type:     n.Type,
		Key:      n.Key,
		Props:    props,
		Events:   events,
		Children: children,
	}
}
