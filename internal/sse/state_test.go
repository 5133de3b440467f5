package sse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	t.Run("initial state", func(t *testing.T) {
		state := NewState("run-1")

		assert.Equal(t, "run-1", state.RunID)
		assert.Equal(t, "not_logged_in", state.Status)
		assert.False(t, state.Complete)
	})

	t.Run("set status clears prompt", func(t *testing.T) {
		state := NewState("run-1")

		state.SetPrompt("Please log in")
		assert.Equal(t, "Please log in", state.Prompt)

		state.SetStatus("on_booking_page")
		assert.Equal(t, "on_booking_page", state.Status)
		assert.Empty(t, state.Prompt)
	})

	t.Run("set error completes the run", func(t *testing.T) {
		state := NewState("run-1")

		state.SetError("Failed to login to Momentus")

		assert.Equal(t, "failed", state.Status)
		assert.Equal(t, "Failed to login to Momentus", state.Error)
		assert.True(t, state.IsComplete())
	})

	t.Run("get status response", func(t *testing.T) {
		state := NewState("run-1")
		state.SetStatus("submitted")
		state.MarkComplete(map[string]string{"kind": "booking_success"})

		status := state.GetStatus()

		assert.Equal(t, "run-1", status.RunID)
		assert.Equal(t, "submitted", status.Status)
		assert.JSONEq(t, `{"kind":"booking_success"}`, string(status.Result))
		assert.True(t, status.Complete)
		assert.Contains(t, state.GetStatusJSON(), `"complete":true`)
	})

	t.Run("subscribe and receive updates", func(t *testing.T) {
		state := NewState("run-1")
		ch := state.Subscribe()

		go func() {
			time.Sleep(10 * time.Millisecond)
			state.SetStatus("form_filled")
		}()

		select {
		case update := <-ch:
			assert.Equal(t, "status", update.Type)
			assert.Equal(t, "form_filled", update.Data)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timed out waiting for update")
		}

		state.Unsubscribe(ch)
		// Unsubscribing twice is harmless
		state.Unsubscribe(ch)
	})

	t.Run("mark complete", func(t *testing.T) {
		state := NewState("run-1")
		ch := state.Subscribe()

		state.MarkComplete(nil)
		state.MarkComplete(nil)

		assert.True(t, state.IsComplete())

		select {
		case update := <-ch:
			assert.Equal(t, "complete", update.Type)
			assert.Equal(t, "{}", update.Data)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timed out waiting for complete update")
		}

		state.Unsubscribe(ch)
	})

	t.Run("wait for completion", func(t *testing.T) {
		state := NewState("run-1")

		go func() {
			time.Sleep(10 * time.Millisecond)
			state.MarkComplete(nil)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, state.WaitForCompletion(ctx))
	})

	t.Run("wait for completion honours context", func(t *testing.T) {
		state := NewState("run-1")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, state.WaitForCompletion(ctx), context.DeadlineExceeded)
	})
}

func TestStateManager(t *testing.T) {
	t.Run("get state creates new state if not exists", func(t *testing.T) {
		manager := NewStateManager()

		state1 := manager.GetState("run-1")
		require.NotNil(t, state1)

		assert.Same(t, state1, manager.GetState("run-1"))

		_, ok := manager.Lookup("run-2")
		assert.False(t, ok)
	})

	t.Run("different runs have different states", func(t *testing.T) {
		manager := NewStateManager()

		state1 := manager.GetState("run-1")
		state2 := manager.GetState("run-2")

		state1.SetStatus("form_filled")
		assert.Equal(t, "form_filled", state1.Status)
		assert.Equal(t, "not_logged_in", state2.Status)
	})

	t.Run("remove state", func(t *testing.T) {
		manager := NewStateManager()

		manager.GetState("run-1").SetStatus("submitted")
		manager.RemoveState("run-1")

		assert.Equal(t, "not_logged_in", manager.GetState("run-1").Status)
	})

	t.Run("expire forgets a finished run", func(t *testing.T) {
		manager := NewStateManager()
		manager.GetState("run-1").MarkComplete(nil)

		manager.Expire("run-1", 10*time.Millisecond)

		assert.Eventually(t, func() bool {
			_, ok := manager.Lookup("run-1")
			return !ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("expire keeps a replaced state", func(t *testing.T) {
		manager := NewStateManager()
		manager.GetState("run-1")

		manager.Expire("run-1", 20*time.Millisecond)
		manager.RemoveState("run-1")
		replacement := manager.GetState("run-1")

		time.Sleep(60 * time.Millisecond)
		state, ok := manager.Lookup("run-1")
		require.True(t, ok)
		assert.Same(t, replacement, state)
	})

	t.Run("expire ignores unknown runs", func(t *testing.T) {
		manager := NewStateManager()
		manager.Expire("missing", time.Millisecond)
		assert.Zero(t, manager.Len())
	})

	t.Run("concurrent access", func(t *testing.T) {
		manager := NewStateManager()

		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func(runID string) {
				manager.GetState(runID).SetStatus("submitted")
				_, _ = manager.Lookup(runID)
				done <- true
			}(fmt.Sprintf("run-%d", i))
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		assert.Equal(t, 10, manager.Len())
	})
}
