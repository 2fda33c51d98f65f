// Package status tracks per-service liveness. Knowledge is ephemeral: it is
// rebuilt by the polling loop and never persisted, but it is also never
// discarded on navigation, so a re-rendered view paints from the last known
// state before the next poll tick.
package status

import "sync"

// State is the tracked liveness of a service.
type State string

const (
	// StateUnknown is the implicit state before the first probe result.
	StateUnknown State = ""
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Listener receives state transitions, keyed by stable service id.
type Listener func(serviceID string, state State)

// Tracker is the shared liveness map. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	states    map[string]State
	listeners map[int]Listener
	nextID    int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states:    map[string]State{},
		listeners: map[int]Listener{},
	}
}

// Set records a probe result. Listeners are notified only on transitions, so
// repaints touch only elements whose state actually changed.
func (t *Tracker) Set(serviceID string, state State) {
	t.mu.Lock()
	prev := t.states[serviceID]
	if prev == state {
		t.mu.Unlock()
		return
	}
	t.states[serviceID] = state
	listeners := make([]Listener, 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(serviceID, state)
	}
}

// Get returns the tracked state for a service, StateUnknown if none.
func (t *Tracker) Get(serviceID string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[serviceID]
}

// Snapshot returns a copy of the full map, for synchronous repaints on view
// switches.
func (t *Tracker) Snapshot() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]State, len(t.states))
	for id, st := range t.states {
		out[id] = st
	}
	return out
}

// OnlineCount returns how many tracked services are currently online.
func (t *Tracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, st := range t.states {
		if st == StateOnline {
			n++
		}
	}
	return n
}

// Subscribe registers a transition listener and returns its unsubscribe
// function.
func (t *Tracker) Subscribe(fn Listener) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Forget drops a service from the map, used when it leaves the catalog.
func (t *Tracker) Forget(serviceID string) {
	t.mu.Lock()
	delete(t.states, serviceID)
	t.mu.Unlock()
}
