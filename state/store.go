// Package state implements the reactive store (C4): a volatile in-memory
// store and a SQLite-backed persistent store, both exposing the same
// get/set/snapshot/enqueue/commit operations, plus version-tracked reactive
// queries over the persistent store.
package state

import (
	"reflect"
	"sync"
)

// Snapshot is a frozen, read-only view of a store as of the moment it was
// taken. Concurrent Sets against the live store never mutate an already-
// issued Snapshot.
type Snapshot struct {
	values   map[string]interface{}
	versions map[string]uint64
}

// Get returns the value for key and whether it was present in the snapshot.
func (s *Snapshot) Get(key string) (interface{}, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Version returns the version counter for key as of the snapshot, or 0 if
// the key was never written.
func (s *Snapshot) Version(key string) uint64 {
	return s.versions[key]
}

// All returns a copy of every key/value pair in the snapshot, for hosts that
// need to enumerate state rather than read individual keys (e.g. the MCP
// state resource).
func (s *Snapshot) All() map[string]interface{} {
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Merge combines a volatile and a persistent snapshot into the single
// frozen view handed to a render (§4.5 step 1 "freeze both stores"). On key
// collision the persistent value wins, since persistent state is the
// durable source of truth across resume.
func Merge(volatile, persistent *Snapshot) *Snapshot {
	values := make(map[string]interface{})
	versions := make(map[string]uint64)
	if volatile != nil {
		for k, v := range volatile.values {
			values[k] = v
			versions[k] = volatile.versions[k]
		}
	}
	if persistent != nil {
		for k, v := range persistent.values {
			values[k] = v
			versions[k] = persistent.versions[k]
		}
	}
	return &Snapshot{values: values, versions: versions}
}

// WriteOp is a deferred mutation queued during rendering or event-handler
// execution and applied atomically at commit (§3 "Write op").
type WriteOp struct {
	Target      Target
	Key         string
	NewValue    interface{}
	TriggerName string
	Origin      string
}

// Target selects which collaborating store a WriteOp applies to.
type Target int

const (
	Volatile Target = iota
	Persistent
)

// Store is the common shape of the volatile and persistent collaborators.
// Both are driven identically by the tick engine; only durability differs.
type Store struct {
	mu       sync.Mutex
	values   map[string]interface{}
	versions map[string]uint64
	queue    []WriteOp
	onCommit func(key string, old, new interface{}, trigger, origin string)
}

// NewStore creates an empty in-memory store. onCommit, if non-nil, is
// invoked once per changed key after every Commit — the persistent store
// uses it to append transitions rows.
func NewStore(onCommit func(key string, old, new interface{}, trigger, origin string)) *Store {
	return &Store{
		values:   make(map[string]interface{}),
		versions: make(map[string]uint64),
		onCommit: onCommit,
	}
}

// Get returns the current value for key, bypassing any snapshot.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Snapshot freezes the current values and versions into an immutable view.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		values[k] = v
	}
	versions := make(map[string]uint64, len(s.versions))
	for k, v := range s.versions {
		versions[k] = v
	}
	return &Snapshot{values: values, versions: versions}
}

// Enqueue queues a write to be applied at the next Commit. This is the set
// path used during rendering and event-handler execution within a tick.
func (s *Store) Enqueue(key string, value interface{}, trigger, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, WriteOp{Key: key, NewValue: value, TriggerName: trigger, Origin: origin})
}

// SetImmediate applies a write outside of a tick, bumping the version
// immediately. Legal only from effects that explicitly opt out of queued
// semantics (§4.4).
func (s *Store) SetImmediate(key string, value interface{}, trigger, origin string) {
	s.mu.Lock()
	old, existed := s.values[key]
	s.values[key] = value
	changed := !existed || !equalValue(old, value)
	if changed {
		s.versions[key]++
	}
	cb := s.onCommit
	s.mu.Unlock()
	if changed && cb != nil {
		cb(key, old, value, trigger, origin)
	}
}

// QueueLen returns the number of write ops waiting to be applied. Used by
// the engine to report write-queue depth to monitoring.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Commit applies every queued write atomically in enqueue order. For each
// write that changes its key's value, the version counter advances and
// onCommit fires once, so a key written twice with differing values in one
// commit advances and fires twice. The queue is cleared whether or not any
// write changed a value.
func (s *Store) Commit() []WriteOp {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	type change struct {
		key               string
		old, new          interface{}
		trigger, origin   string
	}
	var changes []change
	for _, op := range queue {
		old, existed := s.values[op.Key]
		s.values[op.Key] = op.NewValue
		if !existed || !equalValue(old, op.NewValue) {
			s.versions[op.Key]++
			changes = append(changes, change{op.Key, old, op.NewValue, op.TriggerName, op.Origin})
		}
	}
	cb := s.onCommit
	s.mu.Unlock()

	if cb != nil {
		for _, c := range changes {
			cb(c.key, c.old, c.new, c.trigger, c.origin)
		}
	}
	return queue
}

// equalValue mirrors the teacher's prop-diffing approach: structural
// equality via reflect.DeepEqual, since values may be maps or structures.
func equalValue(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
