package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertNode_AppendsWhenNoAnchor(t *testing.T) {
	parent := CreateElement("phase")
	a := CreateElement("step")
	b := CreateElement("step")

	InsertNode(parent, a, nil)
	InsertNode(parent, b, nil)

	require.Equal(t, []*Node{a, b}, parent.Children)
	assert.Same(t, parent, a.Parent)
	assert.Same(t, parent, b.Parent)
}

func TestInsertNode_AnchorNotFoundFallsBackToAppend(t *testing.T) {
	parent := CreateElement("phase")
	a := CreateElement("step")
	stray := CreateElement("step")

	InsertNode(parent, a, nil)
	InsertNode(parent, stray, CreateElement("step")) // anchor not a child of parent

	assert.Equal(t, []*Node{a, stray}, parent.Children)
}

func TestInsertNode_ReorderIsStableWithNoDuplication(t *testing.T) {
	parent := CreateElement("phase")
	a := CreateElement("step")
	b := CreateElement("step")
	c := CreateElement("step")
	InsertNode(parent, a, nil)
	InsertNode(parent, b, nil)
	InsertNode(parent, c, nil)

	// Move c before b.
	InsertNode(parent, c, b)

	assert.Equal(t, []*Node{a, c, b}, parent.Children)
}

func TestInsertNode_CrossParentMove(t *testing.T) {
	// S6 — Cross-parent move.
	p1 := CreateElement("phase")
	p2 := CreateElement("phase")
	c := CreateElement("step")

	InsertNode(p1, c, nil)
	InsertNode(p2, c, nil)

	assert.Empty(t, p1.Children)
	assert.Equal(t, []*Node{c}, p2.Children)
	assert.Same(t, p2, c.Parent)
}

func TestRemoveNode_ClearsDescendantBackPointers(t *testing.T) {
	root := CreateElement("phase")
	mid := CreateElement("step")
	leaf := CreateElement("agent")
	InsertNode(root, mid, nil)
	InsertNode(mid, leaf, nil)

	RemoveNode(root, mid)

	assert.Empty(t, root.Children)
	assert.Nil(t, mid.Parent)
	assert.Nil(t, leaf.Parent)
}

func TestRemoveNode_IdempotentWhenNotPresent(t *testing.T) {
	root := CreateElement("phase")
	other := CreateElement("step")

	assert.NotPanics(t, func() { RemoveNode(root, other) })
}

func TestInsertRemove_RoundTripRestoresPreCallState(t *testing.T) {
	parent := CreateElement("phase")
	child := CreateElement("step")

	InsertNode(parent, child, nil)
	RemoveNode(parent, child)

	assert.Empty(t, parent.Children)
	assert.Nil(t, child.Parent)
}

func TestSetProperty_ChildrenIsNoOp(t *testing.T) {
	n := CreateElement("step")
	SetProperty(n, "children", []int{1, 2, 3})
	_, ok := n.Props["children"]
	assert.False(t, ok)
}

func TestSetProperty_IdentityKeyAliasesRouteToKey(t *testing.T) {
	n := CreateElement("step")
	SetProperty(n, PropKeyA, "s1")
	assert.Equal(t, "s1", n.Key)

	SetProperty(n, PropKeyB, "s2")
	assert.Equal(t, "s2", n.Key)
}

func TestReplaceText_PreservesOtherProps(t *testing.T) {
	n := CreateTextNode("hello")
	SetProperty(n, "unrelated", 42)

	ReplaceText(n, "world")

	assert.Equal(t, "world", n.Text())
	assert.Equal(t, 42, n.Props["unrelated"])
}

func TestReflectionHelpers(t *testing.T) {
	parent := CreateElement("phase")
	a := CreateElement("step")
	b := CreateElement("step")
	InsertNode(parent, a, nil)
	InsertNode(parent, b, nil)

	assert.Same(t, a, GetFirstChild(parent))
	assert.Same(t, b, GetNextSibling(a))
	assert.Nil(t, GetNextSibling(b))
	assert.Same(t, parent, GetParentNode(a))
	assert.True(t, CreateTextNode("x").IsText())
}

func TestPath_ReflectsChildIndices(t *testing.T) {
	root := CreateElement("phase")
	a := CreateElement("step")
	b := CreateElement("step")
	leaf := CreateElement("agent")
	InsertNode(root, a, nil)
	InsertNode(root, b, nil)
	InsertNode(b, leaf, nil)

	assert.Equal(t, "1", b.Path())
	assert.Equal(t, "1/0", leaf.Path())
}
