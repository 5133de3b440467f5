package sse

import (
	"sync"
	"time"
)

// DefaultRetention is how long a finished run's state stays in memory
const DefaultRetention = 10 * time.Minute

// StateManager keeps the state of every known run
type StateManager struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewStateManager creates an empty manager
func NewStateManager() *StateManager {
	return &StateManager{states: make(map[string]*State)}
}

// GetState returns the state of a run, creating it if needed
func (m *StateManager) GetState(runID string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[runID]
	if !ok {
		state = NewState(runID)
		m.states[runID] = state
	}
	return state
}

// Lookup returns the state of a run without creating one
func (m *StateManager) Lookup(runID string) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[runID]
	return state, ok
}

// RemoveState forgets a run
func (m *StateManager) RemoveState(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, runID)
}

// Expire forgets a run after ttl, unless its state was replaced meanwhile.
// Finished runs stay readable for a while so late clients still get the
// final snapshot; the attempts table answers after that.
func (m *StateManager) Expire(runID string, ttl time.Duration) {
	m.mu.RLock()
	state, ok := m.states[runID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	time.AfterFunc(ttl, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.states[runID] == state {
			delete(m.states, runID)
		}
	})
}

// Len returns the number of runs held in memory
func (m *StateManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
