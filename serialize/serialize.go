// Package serialize implements the deterministic text projection of the
// rendered tree (C5), used for durable frame persistence, inspection, and
// as a test equivalence oracle (P5).
package serialize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tickforge/orchestra/tree"
)

// Text renders n and its subtree to the deterministic projection described
// in §4.8: element name = node type, attributes sorted by name, children in
// declared order, callbacks/scratch omitted but summarized in a synthetic
// `__events` attribute (tree.PropEvent), self-closing form for childless
// elements.
//
// Text is a pure function of the tree: structurally-equal trees always
// produce byte-identical output (P5), which is why it doubles as a test
// oracle via round-tripping.
func Text(n *tree.Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *tree.Node) {
	if n.IsText() {
		b.WriteString(escapeText(n.Text()))
		return
	}

	attrs := sortedAttrs(n)
	b.WriteByte('<')
	b.WriteString(n.Type)
	for _, a := range attrs {
		fmt.Fprintf(b, " %s=%q", a.name, a.value)
	}

	if len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}

	b.WriteByte('>')
	for _, c := range n.Children {
		writeNode(b, c)
	}
	b.WriteString("</")
	b.WriteString(n.Type)
	b.WriteByte('>')
}

type attr struct{ name, value string }

// sortedAttrs projects a node's identity key and non-callback props into a
// name-sorted attribute list, then appends the synthetic `events` attribute
// summarizing attached callback names (also sorted) for parity with the
// source framework's sibling serializers.
func sortedAttrs(n *tree.Node) []attr {
	var out []attr
	if n.Key != "" {
		out = append(out, attr{"key", n.Key})
	}

	var events []string
	for name, value := range n.Props {
		if tree.IsCallbackProp(name) {
			events = append(events, name)
			continue
		}
		out = append(out, attr{name, fmt.Sprint(value)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })

	if len(events) > 0 {
		sort.Strings(events)
		out = append(out, attr{tree.PropEvent, strings.Join(events, ",")})
	}
	return out
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
