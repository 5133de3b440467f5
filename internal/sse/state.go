package sse

import (
	"context"
	"encoding/json"
	"sync"
)

// State tracks one booking run for SSE streaming
type State struct {
	mu sync.RWMutex

	RunID  string
	Status string // run state, e.g. "on_booking_page", "form_filled"
	Prompt string // message of the checkpoint the run is waiting on
	Error  string
	Result json.RawMessage

	Complete bool

	subscribers map[chan Update]struct{}
	completeCh  chan struct{}
}

// Update represents an SSE update event
type Update struct {
	Type string `json:"type"` // "status", "prompt", "error", "complete"
	Data string `json:"data"`
}

// StatusResponse is the JSON snapshot of a run
type StatusResponse struct {
	RunID    string          `json:"run_id"`
	Status   string          `json:"status"`
	Prompt   string          `json:"prompt,omitempty"`
	Error    string          `json:"error,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Complete bool            `json:"complete"`
}

// NewState creates the state of a run that has not logged in yet
func NewState(runID string) *State {
	return &State{
		RunID:       runID,
		Status:      "not_logged_in",
		subscribers: make(map[chan Update]struct{}),
		completeCh:  make(chan struct{}),
	}
}

// Subscribe creates a new channel for receiving updates
func (s *State) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Update, 10)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber channel
func (s *State) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// broadcast sends an update to all subscribers
func (s *State) broadcast(update Update) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// Channel full, skip
		}
	}
}

// SetStatus records a run state transition and broadcasts it
func (s *State) SetStatus(status string) {
	s.mu.Lock()
	s.Status = status
	s.Prompt = ""
	s.mu.Unlock()

	s.broadcast(Update{Type: "status", Data: status})
}

// SetPrompt records that the run waits on a checkpoint
func (s *State) SetPrompt(message string) {
	s.mu.Lock()
	s.Prompt = message
	s.mu.Unlock()

	s.broadcast(Update{Type: "prompt", Data: message})
}

// SetError marks the run failed
func (s *State) SetError(err string) {
	s.mu.Lock()
	s.Status = "failed"
	s.Error = err
	s.mu.Unlock()

	s.broadcast(Update{Type: "error", Data: err})
	s.MarkComplete(nil)
}

// MarkComplete stores the final result and releases waiters. Later calls
// are ignored.
func (s *State) MarkComplete(result any) {
	s.mu.Lock()
	if s.Complete {
		s.mu.Unlock()
		return
	}
	s.Complete = true
	s.Prompt = ""
	if result != nil {
		if data, err := json.Marshal(result); err == nil {
			s.Result = data
		}
	}
	data := string(s.Result)
	s.mu.Unlock()

	if data == "" {
		data = "{}"
	}
	s.broadcast(Update{Type: "complete", Data: data})

	// Signal completion to waiters
	close(s.completeCh)
}

// IsComplete returns whether the run has finished
func (s *State) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Complete
}

// WaitForCompletion blocks until the run finishes or context is cancelled
func (s *State) WaitForCompletion(ctx context.Context) error {
	select {
	case <-s.completeCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStatus returns the current status as a JSON-serializable struct
func (s *State) GetStatus() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StatusResponse{
		RunID:    s.RunID,
		Status:   s.Status,
		Prompt:   s.Prompt,
		Error:    s.Error,
		Result:   s.Result,
		Complete: s.Complete,
	}
}

// GetStatusJSON returns the current status as JSON
func (s *State) GetStatusJSON() string {
	status := s.GetStatus()
	data, _ := json.Marshal(status)
	return string(data)
}
