package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/cache"
)

// newMockAPI serves chat completions whose assistant content is produced by reply
func newMockAPI(t *testing.T, reply func(system, user string) string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)

		content := reply(req.Messages[0].Content, req.Messages[1].Content)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestClient(serverURL string, c cache.Cache) *Client {
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: serverURL + "/v1",
		Cache:   c,
	})
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name           string
		cfg            Config
		expectedModel  string
		expectedTemp   float32
		expectedTokens int
		expectedConfig bool
	}{
		{
			name:           "defaults",
			cfg:            Config{APIKey: "k"},
			expectedModel:  "gpt-4",
			expectedTemp:   0.1,
			expectedTokens: 500,
			expectedConfig: true,
		},
		{
			name:           "overrides",
			cfg:            Config{APIKey: "k", Model: "gpt-4o", Temperature: 0.3, MaxTokens: 800},
			expectedModel:  "gpt-4o",
			expectedTemp:   0.3,
			expectedTokens: 800,
			expectedConfig: true,
		},
		{
			name:           "no api key",
			cfg:            Config{},
			expectedModel:  "gpt-4",
			expectedTemp:   0.1,
			expectedTokens: 500,
			expectedConfig: false,
		},
		{
			name:           "placeholder key is not configured",
			cfg:            Config{APIKey: "dummy_key_for_testing"},
			expectedModel:  "gpt-4",
			expectedTemp:   0.1,
			expectedTokens: 500,
			expectedConfig: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg)

			require.NotNil(t, client)
			assert.Equal(t, tt.expectedModel, client.model)
			assert.Equal(t, tt.expectedTemp, client.temperature)
			assert.Equal(t, tt.expectedTokens, client.maxTokens)
			assert.Equal(t, tt.expectedConfig, client.IsConfigured())
		})
	}
}

func TestExtract_NotConfigured(t *testing.T) {
	client := NewClient(Config{})

	extraction, err := client.Extract(context.Background(), "room for 4")
	assert.Nil(t, extraction)
	assert.True(t, apperr.Is(err, apperr.ErrorTypeServiceUnavailable))
}

func TestExtract_ParsesJSON(t *testing.T) {
	server, _ := newMockAPI(t, func(system, user string) string {
		assert.Contains(t, system, "room booking assistant")
		assert.Contains(t, user, "Conference room for 10 people tomorrow 2-4 PM")
		assert.Contains(t, user, "Today is Friday, August 1, 2025.")
		return "```json\n" + `{
			"extracted_details": {
				"date": "tomorrow",
				"start_time": "2 PM",
				"duration": "2 hours",
				"capacity": 10,
				"location": null,
				"equipment": [],
				"purpose": "conference"
			},
			"missing_info": ["location"],
			"suggestions": "Consider specifying a building.",
			"next_steps": "I will search for rooms."
		}` + "\n```"
	})

	client := newTestClient(server.URL, nil)
	client.now = func() time.Time { return time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC) }

	extraction, err := client.Extract(context.Background(), "Conference room for 10 people tomorrow 2-4 PM")
	require.NoError(t, err)

	details := extraction.Details()
	assert.Equal(t, "tomorrow", details.Date.String())
	assert.Equal(t, "2 PM", details.StartTime.String())
	assert.Equal(t, "2 hours", details.Duration.String())
	assert.Equal(t, float64(10), details.Capacity)
	assert.False(t, details.Location.Valid)
	assert.Equal(t, []string{"location"}, extraction.MissingInfo)
	assert.Equal(t, "Consider specifying a building.", extraction.Suggestions.String())
}

func TestExtract_ProseFallsBackToSuggestion(t *testing.T) {
	server, _ := newMockAPI(t, func(_, _ string) string {
		return "Sure! What time would you like the room?"
	})
	client := newTestClient(server.URL, nil)

	extraction, err := client.Extract(context.Background(), "I need a room")
	require.NoError(t, err)

	assert.NotNil(t, extraction.ExtractedDetails)
	assert.Empty(t, extraction.MissingInfo)
	assert.Equal(t, "Sure! What time would you like the room?", extraction.Suggestions.String())
	assert.Equal(t, "Please provide more specific details about your booking needs.", extraction.NextSteps.String())
}

func TestExtract_UsesCache(t *testing.T) {
	server, calls := newMockAPI(t, func(_, _ string) string {
		return `{"extracted_details": {"capacity": "6"}}`
	})
	mem := cache.NewMemory()
	client := newTestClient(server.URL, mem)
	client.now = func() time.Time { return time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		extraction, err := client.Extract(context.Background(), "room for six")
		require.NoError(t, err)
		assert.Equal(t, "6", extraction.Details().Capacity)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1, mem.Len())
}

func TestExtract_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, err := client.Extract(context.Background(), "room")
	assert.True(t, apperr.Is(err, apperr.ErrorTypeServiceUnavailable))
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantParsed bool
	}{
		{"plain json", `{"extracted_details": {"date": "2025-08-16"}}`, true},
		{"json after prose", "Here you go: {\"extracted_details\": {}}", true},
		{"prose only", "I could not understand that.", false},
		{"broken json", `{"extracted_details": {"date": }`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extraction, err := ParseExtraction(tt.content)
			require.NotNil(t, extraction)
			require.NotNil(t, extraction.ExtractedDetails)
			if tt.wantParsed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, apperr.ErrorTypeParseFailure))
			assert.Equal(t, tt.content, extraction.Suggestions.String())
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "clean json",
			input:    `{"date": "tomorrow"}`,
			expected: `{"date": "tomorrow"}`,
		},
		{
			name:     "json in markdown fence",
			input:    "```json\n{\"capacity\": 10}\n```",
			expected: `{"capacity": 10}`,
		},
		{
			name:     "json with text before and after",
			input:    "Details:\n{\"location\": \"GDC\"}\nDone.",
			expected: `{"location": "GDC"}`,
		},
		{
			name:     "nested objects",
			input:    `{"extracted_details": {"date": null}, "missing_info": []}`,
			expected: `{"extracted_details": {"date": null}, "missing_info": []}`,
		},
		{
			name:     "brace inside string",
			input:    `{"suggestions": "use {room} names"} trailing }`,
			expected: `{"suggestions": "use {room} names"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestFindJSONStart(t *testing.T) {
	assert.Equal(t, 0, findJSONStart(`{"a": 1}`))
	assert.Equal(t, 8, findJSONStart("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, -1, findJSONStart("no json here"))
	assert.Equal(t, -1, findJSONStart(""))
}

func TestFindJSONEnd(t *testing.T) {
	assert.Equal(t, 7, findJSONEnd(`{"a": 1}`, 0))
	assert.Equal(t, 23, findJSONEnd(`{"outer": {"inner": {}}}`, 0))
	assert.Equal(t, -1, findJSONEnd(`{"unclosed": true`, 0))
	assert.Equal(t, 13, findJSONEnd(`{"s": "a\"}b"}`, 0))
}
