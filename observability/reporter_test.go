package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsoleReporter_ReportsWithoutPanicking(t *testing.T) {
	r := NewConsoleReporter(true)

	r.ReportFault(&Fault{NodePath: "0/1", Phase: "on_finished", PanicValue: "boom"},
		&ErrorContext{ExecutionID: "exec-1", NodePath: "0/1", Timestamp: time.Now()})
	r.ReportError(assertError{"construction failed"},
		&ErrorContext{ExecutionID: "exec-1", NodePath: "0", Kind: "construction", Timestamp: time.Now()})

	assert.NoError(t, r.Flush(time.Second))
}

func TestGlobalErrorReporter_RoundTrips(t *testing.T) {
	defer SetErrorReporter(nil)

	SetErrorReporter(nil)
	assert.Nil(t, GetErrorReporter())

	r := NewConsoleReporter(false)
	SetErrorReporter(r)
	assert.Same(t, r, GetErrorReporter())
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
