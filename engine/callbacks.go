package engine

import (
	"github.com/tickforge/orchestra/executor"
)

// Lifecycle states for an observable node's scratch (§3, §4.3).
const (
	LifecycleIdle      = "idle"
	LifecycleStarted   = "started"
	LifecycleCompleted = "completed"
	LifecycleFailed    = "failed"
	LifecycleCancelled = "cancelled"
)

// Callback signatures an observable node's props may carry under the
// reserved tree.CallbackOn* keys. Each receives a WriteQueuer handle so it
// may queue writes without reaching into the store directly.
type (
	OnStart    func(wq executor.WriteQueuer)
	OnFinished func(wq executor.WriteQueuer, result executor.Result)
	OnError    func(wq executor.WriteQueuer, err error)
	OnCancel   func(wq executor.WriteQueuer)
)
