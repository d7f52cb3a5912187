package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tickforge/orchestra/tree"
)

func TestText_ChildlessElementIsSelfClosing(t *testing.T) {
	n := tree.CreateElement("step")
	assert.Equal(t, "<step/>", Text(n))
}

func TestText_AttributesAreSortedByName(t *testing.T) {
	n := tree.CreateElement("phase")
	tree.SetProperty(n, "zeta", "1")
	tree.SetProperty(n, "alpha", "2")
	assert.Equal(t, `<phase alpha="2" zeta="1"/>`, Text(n))
}

func TestText_TextChildRendersAsContent(t *testing.T) {
	parent := tree.CreateElement("step")
	child := tree.CreateTextNode("hello")
	tree.InsertNode(parent, child, nil)
	assert.Equal(t, "<step>hello</step>", Text(parent))
}

func TestText_CallbacksOmittedFromAttrsAndSummarizedInEvents(t *testing.T) {
	n := tree.CreateElement("agent")
	tree.SetProperty(n, tree.CallbackOnFinished, func() {})
	tree.SetProperty(n, tree.CallbackOnStart, func() {})
	tree.SetProperty(n, "model", "gpt")
	assert.Equal(t, `<agent model="gpt" __events="on_finished,on_start"/>`, Text(n))
}

func TestText_DeterministicAcrossStructurallyEqualTrees(t *testing.T) {
	build := func() *tree.Node {
		n := tree.CreateElement("phase")
		tree.SetProperty(n, "name", "R")
		step := tree.CreateElement("step")
		tree.SetProperty(step, "name", "s1")
		tree.InsertNode(n, step, nil)
		tree.InsertNode(step, tree.CreateTextNode("hello"), nil)
		return n
	}
	assert.Equal(t, Text(build()), Text(build()))
}

func TestSnapshot_SeparatesEventsFromProps(t *testing.T) {
	n := tree.CreateElement("agent")
	tree.SetProperty(n, tree.CallbackOnFinished, func() {})
	tree.SetProperty(n, "model", "gpt")

	snap := Snapshot(n)
	assert.Equal(t, "gpt", snap.Props["model"])
	assert.Equal(t, []string{"on_finished"}, snap.Events)
	_, hasCallback := snap.Props[tree.CallbackOnFinished]
	assert.False(t, hasCallback)
}
