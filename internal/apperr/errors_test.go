package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewSelectorMiss("no submit control"),
			expected: "SELECTOR_MISS: no submit control",
		},
		{
			name:     "with cause",
			err:      NewServiceUnavailable("llm call failed", errors.New("connection refused")),
			expected: "SERVICE_UNAVAILABLE: llm call failed: connection refused",
		},
		{
			name:     "misclassification",
			err:      NewMisclassification("success page mentions an error"),
			expected: "MISCLASSIFICATION: success page mentions an error",
		},
		{
			name:     "parse failure",
			err:      NewParseFailure("model response holds no JSON object", nil),
			expected: "PARSE_FAILURE: model response holds no JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIs(t *testing.T) {
	cause := errors.New("deadline")
	wrapped := fmt.Errorf("waiting for form: %w", NewNavigationTimeout("form did not appear", cause))

	assert.True(t, Is(wrapped, ErrorTypeNavigationTimeout))
	assert.False(t, Is(wrapped, ErrorTypeSelectorMiss))
	assert.True(t, errors.Is(wrapped, cause))
	assert.False(t, Is(errors.New("plain"), ErrorTypeInternal))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeValidation, TypeOf(NewValidation("room_id is required")))
	assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("plain")))
}

func TestMessageOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"app error", NewUnauthorized("Authentication credentials required"), "Authentication credentials required"},
		{"cause is dropped", NewServiceUnavailable("llm call failed", errors.New("connection refused")), "llm call failed"},
		{"wrapped", fmt.Errorf("run r1: %w", NewValidation("Missing required field: date")), "Missing required field: date"},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageOf(tt.err))
		})
	}
}
