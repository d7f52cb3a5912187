package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoop_StopsAtMaxIterationsWithIterationCapReason(t *testing.T) {
	l := NewLoop("L", 3, func(int) bool { return true })

	assert.True(t, l.Tick())
	assert.True(t, l.Tick())
	assert.False(t, l.Tick()) // third tick hits max=3

	terminal, reason := l.Terminal()
	assert.True(t, terminal)
	assert.Equal(t, IterationCapReason, reason)
	assert.Equal(t, 3, l.Iteration())
}

func TestLoop_StopsWhenPredicateGoesFalse(t *testing.T) {
	l := NewLoop("L", 100, func(i int) bool { return i < 2 })

	assert.True(t, l.Tick())
	assert.False(t, l.Tick())

	terminal, reason := l.Terminal()
	assert.True(t, terminal)
	assert.Equal(t, "predicate", reason)
}

func TestPhaseStep_FiresOnAllCompletedExactlyOnce(t *testing.T) {
	fired := 0
	r := NewPhaseStep(1, func() { fired++ })
	r.SetStepCount(2, false)

	r.CompleteStep(0)
	assert.Equal(t, 0, fired)
	r.CompleteStep(1)
	assert.Equal(t, 1, fired)
}

func TestPhaseStep_ParallelStepsAllActiveAtOnce(t *testing.T) {
	r := NewPhaseStep(1, nil)
	r.SetStepCount(3, true)

	assert.True(t, r.StepActive(0))
	assert.True(t, r.StepActive(1))
	assert.True(t, r.StepActive(2))
}

func TestParallel_MarkUnmark(t *testing.T) {
	p := NewParallel()
	p.Mark("0/1")
	assert.True(t, p.IsParallel("0/1"))
	p.Unmark("0/1")
	assert.False(t, p.IsParallel("0/1"))
}
