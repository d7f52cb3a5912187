package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_EnqueueCommitBumpsVersionOnChange(t *testing.T) {
	s := NewStore(nil)

	s.Enqueue("counter", 1, "init", "test")
	ops := s.Commit()
	assert.Len(t, ops, 1)

	snap := s.Snapshot()
	v, ok := snap.Get("counter")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, uint64(1), snap.Version("counter"))

	// Re-committing the same value must not advance the version.
	s.Enqueue("counter", 1, "noop", "test")
	s.Commit()
	snap2 := s.Snapshot()
	assert.Equal(t, uint64(1), snap2.Version("counter"))

	// A genuinely different value advances it.
	s.Enqueue("counter", 2, "bump", "test")
	s.Commit()
	snap3 := s.Snapshot()
	assert.Equal(t, uint64(2), snap3.Version("counter"))
}

func TestStore_CommitFiresOnCommitOncePerChangedKey(t *testing.T) {
	var calls []string
	s := NewStore(func(key string, old, new interface{}, trigger, origin string) {
		calls = append(calls, key)
	})

	s.Enqueue("a", 1, "t", "o")
	s.Enqueue("b", 1, "t", "o")
	s.Enqueue("a", 1, "t", "o") // same value again, should not refire for "a" twice
	s.Commit()

	assert.ElementsMatch(t, []string{"a", "b"}, calls)
}

func TestStore_CommitClearsQueueRegardlessOfChange(t *testing.T) {
	s := NewStore(nil)
	s.Enqueue("x", 1, "t", "o")
	assert.Equal(t, 1, s.QueueLen())
	s.Commit()
	assert.Equal(t, 0, s.QueueLen())
}

func TestStore_SnapshotIsFrozenAgainstLaterWrites(t *testing.T) {
	s := NewStore(nil)
	s.Enqueue("k", "v1", "t", "o")
	s.Commit()

	snap := s.Snapshot()

	s.Enqueue("k", "v2", "t", "o")
	s.Commit()

	v, _ := snap.Get("k")
	assert.Equal(t, "v1", v, "previously issued snapshot must not observe later commits")

	live := s.Snapshot()
	v2, _ := live.Get("k")
	assert.Equal(t, "v2", v2)
}

func TestStore_SetImmediateBumpsVersionAndFiresOnCommit(t *testing.T) {
	var gotKey string
	s := NewStore(func(key string, old, new interface{}, trigger, origin string) {
		gotKey = key
	})

	s.SetImmediate("flag", true, "manual", "effect")
	assert.Equal(t, "flag", gotKey)

	snap := s.Snapshot()
	v, ok := snap.Get("flag")
	assert.True(t, ok)
	assert.Equal(t, true, v)
	assert.Equal(t, uint64(1), snap.Version("flag"))
}

func TestMerge_PersistentWinsOnCollision(t *testing.T) {
	vol := NewStore(nil)
	vol.Enqueue("k", "volatile-value", "t", "o")
	vol.Commit()
	volSnap := vol.Snapshot()

	per := NewStore(nil)
	per.Enqueue("k", "persistent-value", "t", "o")
	per.Commit()
	perSnap := per.Snapshot()

	merged := Merge(volSnap, perSnap)
	v, ok := merged.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "persistent-value", v)
}

func TestMerge_HandlesNilSnapshots(t *testing.T) {
	per := NewStore(nil)
	per.Enqueue("only", "value", "t", "o")
	per.Commit()

	merged := Merge(nil, per.Snapshot())
	v, ok := merged.Get("only")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	empty := Merge(nil, nil)
	assert.Empty(t, empty.All())
}
