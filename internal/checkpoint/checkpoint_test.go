package checkpoint

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
)

func TestChoiceIndex(t *testing.T) {
	choices := []string{"select name=\"start\"", "text id=\"when\""}

	tests := []struct {
		name    string
		answer  string
		want    int
		wantErr error
	}{
		{name: "number", answer: "2", want: 1},
		{name: "number with spaces", answer: " 1 \n", want: 0},
		{name: "choice text", answer: "TEXT id=\"when\"", want: 1},
		{name: "empty skips", answer: "", want: -1, wantErr: ErrSkipped},
		{name: "skip word", answer: "Skip", want: -1, wantErr: ErrSkipped},
		{name: "out of range", answer: "3", want: -1},
		{name: "unknown", answer: "the blue one", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChoiceIndex(tt.answer, choices)
			assert.Equal(t, tt.want, got)
			if tt.want >= 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConsole_Wait(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(strings.NewReader("2\n"), &out)

	answer, err := console.Wait(context.Background(), Prompt{
		Kind:    KindChooseField,
		Message: "Which control holds the start time?",
		Choices: []string{"first", "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2", answer)
	assert.Contains(t, out.String(), "Which control holds the start time?")
	assert.Contains(t, out.String(), "  2. second")
}

func TestConsole_WaitWithoutTrailingNewline(t *testing.T) {
	console := NewConsole(strings.NewReader("done"), &bytes.Buffer{})

	answer, err := console.Wait(context.Background(), Prompt{Kind: KindManualAuth, Message: "Log in"})
	require.NoError(t, err)
	assert.Equal(t, "done", answer)
}

func TestConsole_CancelledWaitKeepsNextLine(t *testing.T) {
	in, feed := io.Pipe()
	defer feed.Close()
	console := NewConsole(in, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := console.Wait(ctx, Prompt{Kind: KindManualAuth, Message: "Log in"})
	require.ErrorIs(t, err, context.Canceled)

	go func() { _, _ = io.WriteString(feed, "first\nsecond\n") }()

	answer, err := console.Wait(context.Background(), Prompt{Kind: KindConfirm, Message: "Ready?"})
	require.NoError(t, err)
	assert.Equal(t, "first", answer)

	answer, err = console.Wait(context.Background(), Prompt{Kind: KindConfirm, Message: "Sure?"})
	require.NoError(t, err)
	assert.Equal(t, "second", answer)
}

func TestConsole_WaitAfterEOF(t *testing.T) {
	console := NewConsole(strings.NewReader("only\n"), &bytes.Buffer{})

	answer, err := console.Wait(context.Background(), Prompt{Kind: KindConfirm, Message: "One"})
	require.NoError(t, err)
	assert.Equal(t, "only", answer)

	_, err = console.Wait(context.Background(), Prompt{Kind: KindConfirm, Message: "Two"})
	assert.ErrorIs(t, err, io.EOF)
}

func TestChannel_Resume(t *testing.T) {
	gate := NewChannel(time.Second)
	prompted := make(chan Prompt, 1)
	gate.OnPrompt = func(p Prompt) { prompted <- p }

	type result struct {
		answer string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		answer, err := gate.Wait(context.Background(), Prompt{RunID: "run-1", Kind: KindManualAuth, Message: "Log in"})
		done <- result{answer, err}
	}()

	p := <-prompted
	assert.Equal(t, "run-1", p.RunID)

	pendingPrompt, ok := gate.Pending("run-1")
	require.True(t, ok)
	assert.Equal(t, KindManualAuth, pendingPrompt.Kind)

	require.NoError(t, gate.Resume("run-1", "ok"))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "ok", r.answer)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Resume")
	}

	_, ok = gate.Pending("run-1")
	assert.False(t, ok)
}

func TestChannel_ResumeUnknownRun(t *testing.T) {
	gate := NewChannel(0)
	err := gate.Resume("missing", "ok")
	assert.True(t, apperr.Is(err, apperr.ErrorTypeValidation))
}

func TestChannel_Timeout(t *testing.T) {
	gate := NewChannel(20 * time.Millisecond)

	_, err := gate.Wait(context.Background(), Prompt{RunID: "run-2", Kind: KindManualAuth})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrorTypeNavigationTimeout))
}

func TestChannel_Cancelled(t *testing.T) {
	gate := NewChannel(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gate.Wait(ctx, Prompt{RunID: "run-3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuto(t *testing.T) {
	answer, err := Auto{Answer: "1"}.Wait(context.Background(), Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "1", answer)
}
