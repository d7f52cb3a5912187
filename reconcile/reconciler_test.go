package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickforge/orchestra/serialize"
	"github.com/tickforge/orchestra/state"
)

func TestReconcile_ConditionalTogglesSubtree(t *testing.T) {
	store := state.NewStore(nil)
	effects := NewEffectRegistry()
	rec := NewReconciler(effects)

	root := ComponentFunc(func(ctx *RenderContext) Element {
		phaseVal, _ := ctx.Snapshot().Get("phase")
		cond := phaseVal == "research"
		var children []Element
		if cond {
			children = []Element{Elem("phase", map[string]interface{}{"name": "R"},
				Elem("step", map[string]interface{}{"name": "s1"}, TextElement("hello")))}
		}
		return Element{Type: "conditional", Props: map[string]interface{}{"condition": cond}, Children: children}
	})

	store.SetImmediate("phase", "research", "init", "test")
	snap := store.Snapshot()

	tr, err := rec.Reconcile(root, snap, nil)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Contains(t, serialize.Text(tr), `<phase name="R">`)
	assert.Contains(t, serialize.Text(tr), "hello")

	store.SetImmediate("phase", "implement", "flip", "test")
	snap2 := store.Snapshot()
	tr2, err := rec.Reconcile(root, snap2, tr)
	require.NoError(t, err)
	assert.Equal(t, `<conditional condition="false"/>`, serialize.Text(tr2))
}

func TestReconcile_SameTypeAndKeyReusesNode(t *testing.T) {
	effects := NewEffectRegistry()
	rec := NewReconciler(effects)

	build := func(label string) Component {
		return ComponentFunc(func(ctx *RenderContext) Element {
			return Elem("step", map[string]interface{}{"label": label})
		})
	}

	first, err := rec.Reconcile(build("a"), (&state.Store{}).Snapshot(), nil)
	require.NoError(t, err)

	second, err := rec.Reconcile(build("b"), (&state.Store{}).Snapshot(), first)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "b", second.Props["label"])
}

func TestReconcile_DifferentTypeReplacesNode(t *testing.T) {
	effects := NewEffectRegistry()
	rec := NewReconciler(effects)

	first, err := rec.Reconcile(ComponentFunc(func(ctx *RenderContext) Element {
		return Elem("step", nil)
	}), (&state.Store{}).Snapshot(), nil)
	require.NoError(t, err)

	second, err := rec.Reconcile(ComponentFunc(func(ctx *RenderContext) Element {
		return Elem("phase", nil)
	}), (&state.Store{}).Snapshot(), first)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "phase", second.Type)
}

func TestReconcile_CallbackOnNonObservableIsConstructionError(t *testing.T) {
	effects := NewEffectRegistry()
	rec := NewReconciler(effects)

	_, err := rec.Reconcile(ComponentFunc(func(ctx *RenderContext) Element {
		return Elem("step", map[string]interface{}{"on_finished": func() {}})
	}), (&state.Store{}).Snapshot(), nil)

	require.Error(t, err)
	var ce *ConstructionError
	require.ErrorAs(t, err, &ce)
}

func TestEffectRegistry_DedupsByPathAndDeps(t *testing.T) {
	effects := NewEffectRegistry()
	runs := 0

	register := func(dep int) {
		ctx := NewRootContext(nil, effects)
		ctx.UseEffect([]interface{}{dep}, func() func() {
			runs++
			return nil
		})
	}

	register(1)
	effects.Flush(nil)
	assert.Equal(t, 1, runs)

	register(1)
	effects.Flush(nil)
	assert.Equal(t, 1, runs, "unchanged dependency tuple must not re-run")

	register(2)
	effects.Flush(nil)
	assert.Equal(t, 2, runs, "changed dependency tuple must re-run")
}
