package durablelog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Log {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestAttach_CreatesNewExecutionWhenNoneRunning(t *testing.T) {
	log := openTestDB(t)

	exec, err := log.Attach("demo", "file://demo.tsx")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, exec.Status)
	require.Equal(t, "file://demo.tsx", exec.Source)
}

func TestAttach_ReattachesToRunningExecution(t *testing.T) {
	log := openTestDB(t)

	first, err := log.Attach("demo", "file://demo.tsx")
	require.NoError(t, err)

	second, err := log.Attach("demo", "file://demo.tsx")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
}

func TestAttach_StartsFreshAfterFinish(t *testing.T) {
	log := openTestDB(t)

	first, err := log.Attach("demo", "file://demo.tsx")
	require.NoError(t, err)
	require.NoError(t, log.Finish(first.ID, StatusCompleted, ""))

	second, err := log.Attach("demo", "file://demo.tsx")
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
}

func TestNextSequenceNumber_IsDenseAndIncreasing(t *testing.T) {
	log := openTestDB(t)
	exec, err := log.Attach("demo", "file://demo.tsx")
	require.NoError(t, err)

	for want := int64(1); want <= 3; want++ {
		seq, err := log.NextSequenceNumber(exec.ID)
		require.NoError(t, err)
		require.Equal(t, want, seq)
		require.NoError(t, log.AppendFrame(exec.ID, seq, "<phase/>"))
	}
}
