package llm

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/cache"
)

func TestValidateChoice(t *testing.T) {
	options := []string{"1:00 PM", "2:00 PM", "12:00 PM", "Gates Dell Complex (GDC)"}

	tests := []struct {
		name     string
		raw      string
		expected string
		ok       bool
	}{
		{"verbatim", "2:00 PM", "2:00 PM", true},
		{"case and whitespace", "  2:00 pm ", "2:00 PM", true},
		{"quoted with period", `"12:00 PM".`, "12:00 PM", true},
		{"none sentinel", "NONE", "", false},
		{"none lower case", "none", "", false},
		{"empty", "   ", "", false},
		{"echo with prose prefers longest contained option", "The best match is 12:00 PM", "12:00 PM", true},
		{"near variant contained in option", "Gates Dell Complex", "Gates Dell Complex (GDC)", true},
		{"unrelated answer", "3:30 PM", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			choice, ok := ValidateChoice(tt.raw, options)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, choice)
		})
	}
}

func TestChooseOption(t *testing.T) {
	server, calls := newMockAPI(t, func(system, user string) string {
		assert.Contains(t, system, "Reply with exactly one option")
		assert.Contains(t, user, "Form field: capacity")
		assert.Contains(t, user, "- 10-15 people")
		return "10-15 people"
	})
	mem := cache.NewMemory()
	client := newTestClient(server.URL, mem)
	options := []string{"1-9 people", "10-15 people", "16+ people"}

	for i := 0; i < 2; i++ {
		choice, ok, err := client.ChooseOption(context.Background(), "capacity", "10", options)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "10-15 people", choice)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestChooseOption_RejectsInventedAnswer(t *testing.T) {
	server, _ := newMockAPI(t, func(_, _ string) string {
		return "Room 2.104"
	})
	client := newTestClient(server.URL, nil)

	choice, ok, err := client.ChooseOption(context.Background(), "location", "GDC", []string{"PAI", "WEL"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, choice)
}

func TestChooseOption_NotConfigured(t *testing.T) {
	client := NewClient(Config{})

	_, ok, err := client.ChooseOption(context.Background(), "location", "GDC", []string{"GDC"})
	assert.False(t, ok)
	assert.True(t, apperr.Is(err, apperr.ErrorTypeServiceUnavailable))
}

func TestChooseOption_NoOptions(t *testing.T) {
	client := NewClient(Config{})

	_, ok, err := client.ChooseOption(context.Background(), "location", "GDC", nil)
	assert.NoError(t, err)
	assert.False(t, ok)
}
