package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
)

type pending struct {
	prompt Prompt
	answer chan string
}

// Channel is a Gate resumed from outside the run goroutine, typically by an
// HTTP handler. At most one prompt per run is pending at a time.
type Channel struct {
	mu      sync.Mutex
	pending map[string]*pending
	timeout time.Duration

	// OnPrompt is called when a run suspends
	OnPrompt func(Prompt)
}

// NewChannel creates a gate. A zero timeout waits until ctx ends.
func NewChannel(timeout time.Duration) *Channel {
	return &Channel{
		pending: make(map[string]*pending),
		timeout: timeout,
	}
}

func (c *Channel) Wait(ctx context.Context, prompt Prompt) (string, error) {
	p := &pending{prompt: prompt, answer: make(chan string, 1)}

	c.mu.Lock()
	if _, exists := c.pending[prompt.RunID]; exists {
		c.mu.Unlock()
		return "", fmt.Errorf("run %s is already waiting on a checkpoint", prompt.RunID)
	}
	c.pending[prompt.RunID] = p
	hook := c.OnPrompt
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, prompt.RunID)
		c.mu.Unlock()
	}()

	if hook != nil {
		hook(prompt)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	select {
	case answer := <-p.answer:
		return answer, nil
	case <-ctx.Done():
		return "", apperr.NewNavigationTimeout(fmt.Sprintf("checkpoint %s not answered", prompt.Kind), ctx.Err())
	}
}

// Resume answers the pending prompt of a run
func (c *Channel) Resume(runID, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[runID]
	if !ok {
		return apperr.NewValidation(fmt.Sprintf("run %s is not waiting on a checkpoint", runID))
	}
	select {
	case p.answer <- answer:
		return nil
	default:
		return apperr.NewValidation(fmt.Sprintf("run %s was already resumed", runID))
	}
}

// Pending returns the prompt a run is waiting on
func (c *Channel) Pending(runID string) (Prompt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[runID]
	if !ok {
		return Prompt{}, false
	}
	return p.prompt, true
}
